package spatial

import (
	"errors"
	"fmt"
)

// Sentinel error kinds returned by Index methods. Use errors.Is to test
// for a kind; StoreError wraps whatever the backing StoreAdapter
// returned, so test with errors.Is against the adapter's own sentinels
// too.
var (
	// ErrNotFound means a requested geometry id does not exist in the
	// store.
	ErrNotFound = errors.New("spatial: geometry not found")

	// ErrNotIndexedHere means the geometry exists but its containing
	// tree root is not this index's IndexRoot.
	ErrNotIndexedHere = errors.New("spatial: geometry not indexed by this tree")

	// ErrInvalidArgument covers unknown config keys, unknown config
	// values, maxNodeReferences < 1, and negative loading factors.
	ErrInvalidArgument = errors.New("spatial: invalid argument")

	// ErrInvariantViolated marks a programmer or data-corruption fault:
	// no viable child on a non-root internal node, h_i - l_t > 1 during
	// bulk insertion, a node with more than one incoming CHILD edge, a
	// bbox property without exactly four values, or a non-root node
	// without a parent during compaction. A node holding both CHILD and
	// REFERENCE edges is not detected and does not produce this error.
	// The current operation is aborted and this error is propagated;
	// callers should not retry without investigating the store.
	ErrInvariantViolated = errors.New("spatial: tree invariant violated")
)

// invalidArgf builds an ErrInvalidArgument with a formatted reason.
func invalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}

// invariantf builds an ErrInvariantViolated with a formatted reason.
func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvariantViolated}, args...)...)
}

// storeErr wraps an error returned by the StoreAdapter so callers can
// still match it with errors.Is against the adapter's own sentinels,
// while the surrounding transaction rolls back.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("spatial: store error during %s: %w", op, err)
}

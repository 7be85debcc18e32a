package spatial

// Monitor is an optional instrumentation sink. Implementations must not
// mutate the tree; the core only ever calls these methods for
// side-effect-free observation. Inject a Monitor via WithMonitor; do not
// register one globally.
type Monitor interface {
	// AddSplit is called once per split resolved by the Splitter.
	AddSplit()
	// AddNbrRebuilt is called once per full rebuild performed by the
	// Bulk Loader.
	AddNbrRebuilt()
	// AddCase reports a named branch taken by the tree maintenance
	// algorithms (e.g. "bulk:rebuild", "bulk:seeded-clustering"),
	// useful for exercising every path in a property test.
	AddCase(tag string)
	// MatchedTreeNode is called by the eager visit traversal once per
	// leaf IndexNode it visits, at that leaf's depth (IndexRoot is depth
	// 0). SearchIndex does not call it, and WarmUp runs visit with a
	// no-op monitor rather than the Index's own.
	MatchedTreeNode(depth int, node NodeID)
}

// noopMonitor is the default Monitor: every method is a no-op.
type noopMonitor struct{}

func (noopMonitor) AddSplit()                           {}
func (noopMonitor) AddNbrRebuilt()                       {}
func (noopMonitor) AddCase(tag string)                   {}
func (noopMonitor) MatchedTreeNode(depth int, node NodeID) {}

// ProgressListener reports progress of mass operations (removeAll,
// clear). All methods are optional to implement meaningfully; the
// default is a no-op.
type ProgressListener interface {
	// Begin is called once with the total amount of work, if known
	// ahead of time (0 if not).
	Begin(total int)
	// Worked is called as work completes, with the incremental amount
	// done (not a running total).
	Worked(n int)
	// Done is called exactly once, after the last Worked call.
	Done()
}

// noopProgress is the default ProgressListener.
type noopProgress struct{}

func (noopProgress) Begin(total int) {}
func (noopProgress) Worked(n int)    {}
func (noopProgress) Done()           {}

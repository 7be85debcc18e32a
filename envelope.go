package spatial

import "math"

// Envelope is an axis-aligned 2D bounding rectangle. MinX <= MaxX and
// MinY <= MaxY always hold for a value returned by this package.
type Envelope struct {
	MinX, MinY, MaxX, MaxY float64
}

// NewEnvelope builds an Envelope from two opposite corners, normalizing
// the coordinate order.
func NewEnvelope(x1, y1, x2, y2 float64) Envelope {
	return Envelope{
		MinX: math.Min(x1, x2),
		MinY: math.Min(y1, y2),
		MaxX: math.Max(x1, x2),
		MaxY: math.Max(y1, y2),
	}
}

// area returns width * height. There is exactly one definition of area
// in this package; callers must not reimplement it.
func (e Envelope) area() float64 {
	return (e.MaxX - e.MinX) * (e.MaxY - e.MinY)
}

// Area returns the rectangle's area. Exported for monitors and callers
// that want to reason about node fill.
func (e Envelope) Area() float64 {
	return e.area()
}

// Contains reports whether other lies inclusively inside e.
func (e Envelope) Contains(other Envelope) bool {
	return e.MinX <= other.MinX && e.MaxX >= other.MaxX &&
		e.MinY <= other.MinY && e.MaxY >= other.MaxY
}

// Intersects reports whether e and other share any point.
func (e Envelope) Intersects(other Envelope) bool {
	return e.MinX <= other.MaxX && e.MaxX >= other.MinX &&
		e.MinY <= other.MaxY && e.MaxY >= other.MinY
}

// ContainsPoint reports whether (x, y) lies inclusively inside e.
func (e Envelope) ContainsPoint(x, y float64) bool {
	return e.MinX <= x && x <= e.MaxX && e.MinY <= y && y <= e.MaxY
}

// expandToInclude grows e in place to be the union of e and other.
func (e *Envelope) expandToInclude(other Envelope) {
	e.MinX = math.Min(e.MinX, other.MinX)
	e.MinY = math.Min(e.MinY, other.MinY)
	e.MaxX = math.Max(e.MaxX, other.MaxX)
	e.MaxY = math.Max(e.MaxY, other.MaxY)
}

// ExpandToInclude is the exported form of expandToInclude.
func (e *Envelope) ExpandToInclude(other Envelope) {
	e.expandToInclude(other)
}

// union returns a new Envelope containing both e and other, without
// mutating either.
func (e Envelope) union(other Envelope) Envelope {
	u := e
	u.expandToInclude(other)
	return u
}

// enlargement returns the area increase needed to grow e so it also
// contains other.
func (e Envelope) enlargement(other Envelope) float64 {
	return e.union(other).area() - e.area()
}

// centre returns the midpoint along dimension 0 (x) or 1 (y).
func (e Envelope) centre(dim int) float64 {
	if dim == 0 {
		return (e.MinX + e.MaxX) / 2
	}
	return (e.MinY + e.MaxY) / 2
}

// separation is the squared Euclidean distance between the centres of e
// and other, used as a dead-space proxy during seed selection. Squared
// distance is used consistently so the metric is stable and monotone
// with the true distance across a run.
func (e Envelope) separation(other Envelope) float64 {
	dx := e.centre(0) - other.centre(0)
	dy := e.centre(1) - other.centre(1)
	return dx*dx + dy*dy
}

// dimSeparation is the one-dimensional separation of the two centres
// along a single axis (0 = x, 1 = y), used by Greene's split to choose
// the split dimension.
func (e Envelope) dimSeparation(other Envelope, dim int) float64 {
	d := e.centre(dim) - other.centre(dim)
	return d * d
}

// emptyEnvelope is the sentinel bounding box for a node with no
// children, mirrored from the source's (0,0,0,0) default. It must never
// leak into query results: callers check isEmpty()/absence of a bbox
// property before trusting an Envelope.
var emptyEnvelope = Envelope{}

// envelopeOfAll returns the union of the given envelopes, or
// emptyEnvelope, false if envs is empty.
func envelopeOfAll(envs []Envelope) (Envelope, bool) {
	if len(envs) == 0 {
		return emptyEnvelope, false
	}
	u := envs[0]
	for _, e := range envs[1:] {
		u.expandToInclude(e)
	}
	return u, true
}

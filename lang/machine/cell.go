package machine

// Cell is a box containing a Value. A local captured by a nested closure
// lives in a cell instead of a plain register slot, so every closure
// sharing it (and the owning activation itself, via GetOpenUpvalue/
// SetOpenUpvalue) sees the same mutable location.
type Cell struct{ V Value }

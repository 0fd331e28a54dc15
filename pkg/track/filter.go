package track

// Filter selects which changes participate in an advisory walk.
type Filter func(Change) bool

// IncludeAll is the shared filter admitting every change. It is stateless;
// callers may use it directly instead of passing nil.
var IncludeAll Filter = func(Change) bool { return true }

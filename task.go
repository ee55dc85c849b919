package flock

// Task is an opaque, nullary, void-returning unit of work. The pool never
// inspects a Task beyond invoking it exactly once; closures own whatever
// state they capture.
type Task = func()

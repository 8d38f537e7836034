// Package async runs functions in the background and exposes their outcome as
// a typed Future.
//
// The auth manager uses it for work that must outlive the caller, such as the
// last identity resolution attempted after a login whose synchronous retries
// were exhausted. Such futures are bound to the manager's lifetime context,
// not the caller's, and are awaited on shutdown with WaitAll.
//
// A panic inside the function is recovered and reported as ErrPanic.
package async

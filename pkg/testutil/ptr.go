// Package testutil provides shared test helpers: pointer construction and an
// in-process fake of the engine's REST API.
package testutil

// Ptr returns a pointer to v, e.g. for optional fields such as a task's
// retry count.
func Ptr[T any](v T) *T { return &v }

package domain

import "errors"

// ErrNotFound is returned by repositories when the requested record does not
// exist. Callers distinguish it from real read failures: a missing record
// degrades or triggers a recomputation, a failing datastore propagates.
var ErrNotFound = errors.New("not found")

package sentinel

import "errors"

// Infrastructure facts. Stores, the storage bridge and the local fallback return these
// (optionally wrapped); services translate them into coded domain errors.
//
//   - ErrNotFound: row, blob or root index entry does not exist
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrInvalidState: the row exists but is in the wrong state for the operation
//   - ErrUnavailable: the storage network (or another remote dependency) could not be reached
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)

package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrReadOnly   = errors.New("repository is in read-only mode")
	ErrValidation = errors.New("invalid note")
	ErrNotFound   = errors.New("note not found")
	ErrStorage    = errors.New("local store failure")
	ErrRemote     = errors.New("remote write failed")
	ErrClosed     = errors.New("service is closed")
)

// StorageError wraps an underlying I/O failure of a Repository.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Storage wraps err as a StorageError for op. A nil err stays nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// RemoteError reports a failed write to the remote sink.
// Status is the HTTP status code when one was received.
type RemoteError struct {
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("remote write failed: status %d: %s", e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("remote write failed: status %d", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("remote write failed: %v", e.Err)
	}
	return "remote write failed"
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

// OfflineError is returned together with a note that was persisted locally
// after its remote write failed. The note carries no RemoteID yet.
type OfflineError struct {
	ID  int64
	Err error
}

func (e *OfflineError) Error() string {
	return fmt.Sprintf("note %d saved offline: %v", e.ID, e.Err)
}

func (e *OfflineError) Unwrap() error { return e.Err }

// LocalWriteError reports a local write that failed after the sink had
// already accepted the note. Saving again with RemoteID set reconciles onto
// the same record.
type LocalWriteError struct {
	RemoteID string
	Err      error
}

func (e *LocalWriteError) Error() string {
	return fmt.Sprintf("note accepted remotely as %s but not stored locally: %v", e.RemoteID, e.Err)
}

func (e *LocalWriteError) Unwrap() error { return e.Err }

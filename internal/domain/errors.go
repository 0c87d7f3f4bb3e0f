package domain

import (
	"errors"
	"strconv"
)

// Domain errors.
var (
	// ErrTransport is returned when a request never reached the server.
	ErrTransport = errors.New("cannot connect to server")

	// ErrUnauthorized is returned when the server rejects the token.
	ErrUnauthorized = errors.New("not authorized")

	// ErrConflict is returned when another client is mid-export.
	ErrConflict = errors.New("sync in progress initiated by a different client")

	// ErrLocked is returned when the server has locked exports for a cooldown window.
	ErrLocked = errors.New("export is locked, wait for an hour before retrying")

	// ErrProtocol is returned when a response body cannot be interpreted.
	ErrProtocol = errors.New("unexpected response from server")

	// ErrSyncInProgress is returned when a cycle is already running.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrPathOutsideVault is returned when a path would escape the vault root.
	ErrPathOutsideVault = errors.New("path outside vault")
)

// RecordError wraps a failure to materialize a single record.
type RecordError struct {
	RecordID int64
	Path     string
	Op       string
	Err      error
}

func (e *RecordError) Error() string {
	msg := e.Op + " [" + strconv.FormatInt(e.RecordID, 10) + "]"
	if e.Path != "" {
		msg += " " + e.Path
	}
	return msg + ": " + e.Err.Error()
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewRecordError creates a new RecordError.
func NewRecordError(id int64, path, op string, err error) *RecordError {
	return &RecordError{
		RecordID: id,
		Path:     path,
		Op:       op,
		Err:      err,
	}
}

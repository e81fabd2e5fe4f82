package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/emrgen/grantcore/internal/codec"
	"github.com/emrgen/grantcore/internal/store"
	"github.com/emrgen/grantcore/internal/vector"
)

var (
	// ErrVersionConflict is returned when the caller's expected version is
	// no longer the head. The caller re-reads the head and retries.
	ErrVersionConflict = errors.New("version conflict")
	// ErrInvalidTransition is returned for an edge the lifecycle does not have.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	// ErrDocumentSealed is returned for any write to a submitted document.
	ErrDocumentSealed = errors.New("document is sealed")
	// ErrDocumentDeleted is returned for content writes to a soft deleted
	// document.
	ErrDocumentDeleted = errors.New("document is deleted")
	// ErrCorruptChain is returned when a version chain has a gap.
	ErrCorruptChain = errors.New("version chain is corrupt")
	// ErrInvalidArgument is returned for malformed requests.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrNotFound           = store.ErrNotFound
	ErrStorageUnavailable = store.ErrUnavailable
	ErrDimensionMismatch  = vector.ErrDimensionMismatch
	ErrDegenerateVector   = vector.ErrDegenerateVector
	ErrEncoding           = codec.ErrEncoding
)

// VersionConflictError carries the head the caller has to merge against.
type VersionConflictError struct {
	DocumentID uuid.UUID
	Expected   uuid.UUID
	Current    uuid.UUID
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on document %s: expected %s, head is %s", e.DocumentID, e.Expected, e.Current)
}

func (e *VersionConflictError) Unwrap() error {
	return ErrVersionConflict
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Package docstore is the document-store binding for per-coach student
// collections: point mutations by id plus a change-notification stream that
// drives live views. Two backends exist, an in-memory one for dev/testing
// and a Postgres one for real deployments.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"coachboard/internal/student"
)

// Fields is a partial-document patch. Keys are the JSON field names of
// student.Student; collection fields (attendance, payments, notes) are
// always replaced wholesale, never merged.
type Fields map[string]any

// Patchable field names.
const (
	FieldName         = "name"
	FieldParentName   = "parentName"
	FieldContact      = "contact"
	FieldPackage      = "package"
	FieldEnrolledDays = "enrolledDays"
	FieldWaiverSigned = "waiverSigned"
	FieldIsActive     = "isActive"
	FieldAttendance   = "attendance"
	FieldPayments     = "payments"
	FieldNotes        = "notes"
)

// Store is the per-coach student collection. All operations may fail with a
// *StoreError; no retry is performed at this layer. Writes become visible to
// readers only through the store itself — callers observe their own writes
// by re-reading (or via Watch), never through an optimistic local echo.
type Store interface {
	List(ctx context.Context, coachID string) ([]student.Student, error)
	Get(ctx context.Context, coachID, id string) (student.Student, error)
	// Create persists a new student and returns its id. Notes, payments and
	// attendance are forced empty regardless of what the caller supplies.
	Create(ctx context.Context, coachID string, s student.Student) (string, error)
	Patch(ctx context.Context, coachID, id string, fields Fields) error
	Delete(ctx context.Context, coachID, id string) error
	// Watch returns a channel that signals whenever this coach's collection
	// changes. The subscription is released when ctx is cancelled, at which
	// point the channel is closed.
	Watch(ctx context.Context, coachID string) (<-chan struct{}, error)
}

// ErrNotFound reports a missing student document.
var ErrNotFound = errors.New("student not found")

// StoreError wraps a failed store operation (network, permission or backend
// fault). Callers surface its message and retry at the user's initiative.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// CollectionPath names a coach's student collection under a deployment
// namespace. Notifier channels and any external tooling key off this path.
func CollectionPath(deployment, coachID string) string {
	return fmt.Sprintf("deployments/%s/coaches/%s/students", deployment, coachID)
}

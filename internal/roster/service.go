// Package roster holds the coach-facing mutation handlers over the student
// collection. Every handler reads the current document snapshot, recomputes
// the affected field in full, and patches that field wholesale — last writer
// wins per field, with no version check. Two sessions editing the same array
// concurrently can lose one edit; that read-modify-write race is a known
// limitation carried over from the product's behavior, not an oversight.
package roster

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coachboard/internal/docstore"
	"coachboard/internal/metrics"
	"coachboard/internal/student"
)

// Service coordinates student mutations against the document store.
type Service struct {
	store docstore.Store
	log   *zap.SugaredLogger
	now   func() time.Time
}

// NewService creates a service backed by a store.
func NewService(store docstore.Store, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{store: store, log: log, now: time.Now}
}

// List returns the coach's current student collection.
func (s *Service) List(ctx context.Context, coachID string) ([]student.Student, error) {
	return s.store.List(ctx, coachID)
}

// Get returns a single student.
func (s *Service) Get(ctx context.Context, coachID, id string) (student.Student, error) {
	return s.store.Get(ctx, coachID, id)
}

// Watch subscribes to change signals for the coach's collection.
func (s *Service) Watch(ctx context.Context, coachID string) (<-chan struct{}, error) {
	return s.store.Watch(ctx, coachID)
}

// Create validates and persists a new student. The store forces notes,
// payments and attendance empty regardless of the input.
func (s *Service) Create(ctx context.Context, coachID string, in student.Student) (string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Contact = strings.TrimSpace(in.Contact)
	if in.Package == "" {
		in.Package = student.PackageOneDay
	}
	in.IsActive = true
	if err := in.Validate(); err != nil {
		return "", err
	}
	id, err := s.store.Create(ctx, coachID, in)
	if err != nil {
		s.log.Errorw("create student failed", "coach", coachID, "err", err)
		return "", err
	}
	metrics.Mutations.WithLabelValues("create").Inc()
	return id, nil
}

// SetAttendance records a mark for one date. Marking the same date again
// replaces the previous status; no other key changes.
func (s *Service) SetAttendance(ctx context.Context, coachID, studentID, date string, status student.AttendanceStatus) error {
	if !status.Valid() {
		return &student.ValidationError{Field: "status", Reason: "must be present or absent"}
	}
	if _, err := time.Parse(student.DateLayout, date); err != nil {
		return &student.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	cur, err := s.store.Get(ctx, coachID, studentID)
	if err != nil {
		return err
	}
	next := make(map[string]student.AttendanceStatus, len(cur.Attendance)+1)
	for k, v := range cur.Attendance {
		next[k] = v
	}
	next[date] = status
	if err := s.patch(ctx, coachID, studentID, docstore.Fields{docstore.FieldAttendance: next}); err != nil {
		return err
	}
	metrics.Mutations.WithLabelValues("attendance").Inc()
	return nil
}

// AddNote prepends a note with a fresh id. Empty text (after trim) is
// rejected before any remote call.
func (s *Service) AddNote(ctx context.Context, coachID, studentID, date, text string) (student.Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return student.Note{}, &student.ValidationError{Field: "text", Reason: "required"}
	}
	if date == "" {
		date = s.now().UTC().Format(student.DateLayout)
	} else if _, err := time.Parse(student.DateLayout, date); err != nil {
		return student.Note{}, &student.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	cur, err := s.store.Get(ctx, coachID, studentID)
	if err != nil {
		return student.Note{}, err
	}
	note := student.Note{ID: uuid.NewString(), Date: date, Text: text}
	next := append([]student.Note{note}, cur.Notes...)
	if err := s.patch(ctx, coachID, studentID, docstore.Fields{docstore.FieldNotes: next}); err != nil {
		return student.Note{}, err
	}
	metrics.Mutations.WithLabelValues("note").Inc()
	return note, nil
}

// UpdateNote replaces the note with a matching id in place; its position in
// the list does not change.
func (s *Service) UpdateNote(ctx context.Context, coachID, studentID string, note student.Note) error {
	note.Text = strings.TrimSpace(note.Text)
	if note.Text == "" {
		return &student.ValidationError{Field: "text", Reason: "required"}
	}
	if _, err := time.Parse(student.DateLayout, note.Date); err != nil {
		return &student.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	cur, err := s.store.Get(ctx, coachID, studentID)
	if err != nil {
		return err
	}
	next := append([]student.Note(nil), cur.Notes...)
	found := false
	for i := range next {
		if next[i].ID == note.ID {
			next[i] = note
			found = true
			break
		}
	}
	if !found {
		return &student.ValidationError{Field: "id", Reason: "note not found"}
	}
	if err := s.patch(ctx, coachID, studentID, docstore.Fields{docstore.FieldNotes: next}); err != nil {
		return err
	}
	metrics.Mutations.WithLabelValues("note").Inc()
	return nil
}

// DeleteNote removes the note with the matching id.
func (s *Service) DeleteNote(ctx context.Context, coachID, studentID, noteID string) error {
	cur, err := s.store.Get(ctx, coachID, studentID)
	if err != nil {
		return err
	}
	next := make([]student.Note, 0, len(cur.Notes))
	for _, n := range cur.Notes {
		if n.ID != noteID {
			next = append(next, n)
		}
	}
	if err := s.patch(ctx, coachID, studentID, docstore.Fields{docstore.FieldNotes: next}); err != nil {
		return err
	}
	metrics.Mutations.WithLabelValues("note").Inc()
	return nil
}

// AddPayment prepends a payment record for the month. Amount must be a
// finite non-negative number and month must be set.
func (s *Service) AddPayment(ctx context.Context, coachID, studentID, month string, amount float64) (student.Payment, error) {
	if month == "" {
		return student.Payment{}, &student.ValidationError{Field: "month", Reason: "required"}
	}
	if _, err := time.Parse(student.MonthLayout, month); err != nil {
		return student.Payment{}, &student.ValidationError{Field: "month", Reason: "must be YYYY-MM"}
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return student.Payment{}, &student.ValidationError{Field: "amount", Reason: "must be a non-negative number"}
	}
	cur, err := s.store.Get(ctx, coachID, studentID)
	if err != nil {
		return student.Payment{}, err
	}
	payment := student.Payment{
		ID:           uuid.NewString(),
		Month:        month,
		Amount:       amount,
		DateReceived: s.now().UTC(),
	}
	next := append([]student.Payment{payment}, cur.Payments...)
	if err := s.patch(ctx, coachID, studentID, docstore.Fields{docstore.FieldPayments: next}); err != nil {
		return student.Payment{}, err
	}
	metrics.Mutations.WithLabelValues("payment").Inc()
	return payment, nil
}

// DeletePayment removes the payment with the matching id.
func (s *Service) DeletePayment(ctx context.Context, coachID, studentID, paymentID string) error {
	cur, err := s.store.Get(ctx, coachID, studentID)
	if err != nil {
		return err
	}
	next := make([]student.Payment, 0, len(cur.Payments))
	for _, p := range cur.Payments {
		if p.ID != paymentID {
			next = append(next, p)
		}
	}
	if err := s.patch(ctx, coachID, studentID, docstore.Fields{docstore.FieldPayments: next}); err != nil {
		return err
	}
	metrics.Mutations.WithLabelValues("payment").Inc()
	return nil
}

// ProfilePatch is a partial update of the top-level profile fields. It never
// touches notes, payments or attendance.
type ProfilePatch struct {
	Name         *string          `json:"name"`
	ParentName   *string          `json:"parentName"`
	Contact      *string          `json:"contact"`
	Package      *student.Package `json:"package"`
	EnrolledDays *[]string        `json:"enrolledDays"`
	WaiverSigned *bool            `json:"waiverSigned"`
	IsActive     *bool            `json:"isActive"`
}

// UpdateProfile patches the supplied subset of profile fields.
func (s *Service) UpdateProfile(ctx context.Context, coachID, studentID string, patch ProfilePatch) error {
	fields := docstore.Fields{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return &student.ValidationError{Field: "name", Reason: "required"}
		}
		fields[docstore.FieldName] = name
	}
	if patch.ParentName != nil {
		fields[docstore.FieldParentName] = strings.TrimSpace(*patch.ParentName)
	}
	if patch.Contact != nil {
		contact := strings.TrimSpace(*patch.Contact)
		if contact == "" {
			return &student.ValidationError{Field: "contact", Reason: "required"}
		}
		fields[docstore.FieldContact] = contact
	}
	if patch.Package != nil {
		if !patch.Package.Valid() {
			return &student.ValidationError{Field: "package", Reason: "unknown package"}
		}
		fields[docstore.FieldPackage] = *patch.Package
	}
	if patch.EnrolledDays != nil {
		for _, d := range *patch.EnrolledDays {
			if !student.IsWeekday(d) {
				return &student.ValidationError{Field: "enrolledDays", Reason: "unknown weekday " + d}
			}
		}
		fields[docstore.FieldEnrolledDays] = *patch.EnrolledDays
	}
	if patch.WaiverSigned != nil {
		fields[docstore.FieldWaiverSigned] = *patch.WaiverSigned
	}
	if patch.IsActive != nil {
		fields[docstore.FieldIsActive] = *patch.IsActive
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.patch(ctx, coachID, studentID, fields); err != nil {
		return err
	}
	metrics.Mutations.WithLabelValues("profile").Inc()
	return nil
}

// Delete removes the student document. Callers holding a selection on this
// student must clear it.
func (s *Service) Delete(ctx context.Context, coachID, studentID string) error {
	if err := s.store.Delete(ctx, coachID, studentID); err != nil {
		s.log.Errorw("delete student failed", "coach", coachID, "student", studentID, "err", err)
		return err
	}
	metrics.Mutations.WithLabelValues("delete").Inc()
	return nil
}

func (s *Service) patch(ctx context.Context, coachID, studentID string, fields docstore.Fields) error {
	start := s.now()
	err := s.store.Patch(ctx, coachID, studentID, fields)
	metrics.ObserveStoreOp("patch", time.Since(start))
	if err != nil {
		s.log.Errorw("patch failed", "coach", coachID, "student", studentID, "err", err)
	}
	return err
}

// IsValidation reports whether err was a local input rejection rather than a
// store fault.
func IsValidation(err error) bool {
	var ve *student.ValidationError
	return errors.As(err, &ve)
}

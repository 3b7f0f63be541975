package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"coachboard/internal/student"
)

// Memory is an in-process Store used in dev mode and tests. Semantics match
// the Postgres backend: wholesale field patches, creation-order listing, and
// a change signal after every successful write.
type Memory struct {
	mu       sync.Mutex
	byCoach  map[string]map[string]student.Student
	order    map[string][]string
	notifier Notifier
	now      func() time.Time
}

// NewMemory creates an empty store wired to the notifier.
func NewMemory(notifier Notifier) *Memory {
	if notifier == nil {
		notifier = NewMemoryNotifier()
	}
	return &Memory{
		byCoach:  make(map[string]map[string]student.Student),
		order:    make(map[string][]string),
		notifier: notifier,
		now:      time.Now,
	}
}

// List returns the coach's students in creation order.
func (m *Memory) List(_ context.Context, coachID string) ([]student.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]student.Student, 0, len(m.order[coachID]))
	for _, id := range m.order[coachID] {
		out = append(out, cloneStudent(m.byCoach[coachID][id]))
	}
	return out, nil
}

// Get returns a single student or ErrNotFound.
func (m *Memory) Get(_ context.Context, coachID, id string) (student.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byCoach[coachID][id]
	if !ok {
		return student.Student{}, storeErr("get", ErrNotFound)
	}
	return cloneStudent(s), nil
}

// Create persists a new student, forcing empty collections.
func (m *Memory) Create(ctx context.Context, coachID string, s student.Student) (string, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.Attendance = map[string]student.AttendanceStatus{}
	s.Payments = []student.Payment{}
	s.Notes = []student.Note{}
	if s.Package == "" {
		s.Package = student.PackageOneDay
	}
	s.CreatedAt = m.now().UTC()

	m.mu.Lock()
	if m.byCoach[coachID] == nil {
		m.byCoach[coachID] = make(map[string]student.Student)
	}
	m.byCoach[coachID][s.ID] = cloneStudent(s)
	m.order[coachID] = append(m.order[coachID], s.ID)
	m.mu.Unlock()

	_ = m.notifier.Publish(ctx, coachID)
	return s.ID, nil
}

// Patch overwrites the named fields on the document.
func (m *Memory) Patch(ctx context.Context, coachID, id string, fields Fields) error {
	m.mu.Lock()
	s, ok := m.byCoach[coachID][id]
	if !ok {
		m.mu.Unlock()
		return storeErr("patch", ErrNotFound)
	}
	if err := applyFields(&s, fields); err != nil {
		m.mu.Unlock()
		return err
	}
	m.byCoach[coachID][id] = cloneStudent(s)
	m.mu.Unlock()

	_ = m.notifier.Publish(ctx, coachID)
	return nil
}

// Delete removes the document.
func (m *Memory) Delete(ctx context.Context, coachID, id string) error {
	m.mu.Lock()
	if _, ok := m.byCoach[coachID][id]; !ok {
		m.mu.Unlock()
		return storeErr("delete", ErrNotFound)
	}
	delete(m.byCoach[coachID], id)
	ids := m.order[coachID]
	for i, v := range ids {
		if v == id {
			m.order[coachID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	_ = m.notifier.Publish(ctx, coachID)
	return nil
}

// Watch subscribes to change signals for the coach's collection.
func (m *Memory) Watch(ctx context.Context, coachID string) (<-chan struct{}, error) {
	return m.notifier.Subscribe(ctx, coachID)
}

// applyFields writes a patch onto the document, one field at a time.
// Collection values replace the stored value wholesale.
func applyFields(s *student.Student, fields Fields) error {
	for key, val := range fields {
		ok := true
		switch key {
		case FieldName:
			s.Name, ok = val.(string)
		case FieldParentName:
			s.ParentName, ok = val.(string)
		case FieldContact:
			s.Contact, ok = val.(string)
		case FieldPackage:
			s.Package, ok = val.(student.Package)
		case FieldEnrolledDays:
			s.EnrolledDays, ok = val.([]string)
		case FieldWaiverSigned:
			s.WaiverSigned, ok = val.(bool)
		case FieldIsActive:
			s.IsActive, ok = val.(bool)
		case FieldAttendance:
			s.Attendance, ok = val.(map[string]student.AttendanceStatus)
		case FieldPayments:
			s.Payments, ok = val.([]student.Payment)
		case FieldNotes:
			s.Notes, ok = val.([]student.Note)
		default:
			return storeErr("patch", fmt.Errorf("unknown field %q", key))
		}
		if !ok {
			return storeErr("patch", fmt.Errorf("bad value type for field %q", key))
		}
	}
	return nil
}

func cloneStudent(s student.Student) student.Student {
	out := s
	out.EnrolledDays = append([]string(nil), s.EnrolledDays...)
	out.Payments = append([]student.Payment(nil), s.Payments...)
	out.Notes = append([]student.Note(nil), s.Notes...)
	out.Attendance = make(map[string]student.AttendanceStatus, len(s.Attendance))
	for k, v := range s.Attendance {
		out.Attendance[k] = v
	}
	return out
}

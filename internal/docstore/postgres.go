package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"coachboard/internal/student"
)

// Postgres persists one row per student with JSONB columns for the embedded
// collections, so a patch of attendance/payments/notes overwrites the stored
// document field exactly like the memory backend does.
type Postgres struct {
	db       *sql.DB
	notifier Notifier
}

// NewPostgres wires the store to a database and ensures the schema exists.
func NewPostgres(db *sql.DB, notifier Notifier) (*Postgres, error) {
	if notifier == nil {
		notifier = NewMemoryNotifier()
	}
	p := &Postgres{db: db, notifier: notifier}
	if err := p.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS students (
			id UUID PRIMARY KEY,
			coach_id TEXT NOT NULL,
			name TEXT NOT NULL,
			parent_name TEXT NOT NULL DEFAULT '',
			contact TEXT NOT NULL,
			package TEXT NOT NULL DEFAULT '1-day',
			enrolled_days JSONB NOT NULL DEFAULT '[]',
			waiver_signed BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			attendance JSONB NOT NULL DEFAULT '{}',
			payments JSONB NOT NULL DEFAULT '[]',
			notes JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_students_coach ON students (coach_id, created_at);
	`)
	return storeErr("schema", err)
}

const studentColumns = `id, name, parent_name, contact, package, enrolled_days, waiver_signed, is_active, attendance, payments, notes, created_at`

// List returns the coach's students in creation order.
func (p *Postgres) List(ctx context.Context, coachID string) ([]student.Student, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE coach_id = $1
		ORDER BY created_at, id
	`, coachID)
	if err != nil {
		return nil, storeErr("list", err)
	}
	defer rows.Close()

	var out []student.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, storeErr("list", err)
		}
		out = append(out, s)
	}
	return out, storeErr("list", rows.Err())
}

// Get returns a single student or ErrNotFound.
func (p *Postgres) Get(ctx context.Context, coachID, id string) (student.Student, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE coach_id = $1 AND id = $2
	`, coachID, id)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return student.Student{}, storeErr("get", ErrNotFound)
	}
	if err != nil {
		return student.Student{}, storeErr("get", err)
	}
	return s, nil
}

// Create inserts a new row with empty collections and returns the id.
func (p *Postgres) Create(ctx context.Context, coachID string, s student.Student) (string, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Package == "" {
		s.Package = student.PackageOneDay
	}
	days, err := json.Marshal(orEmptyDays(s.EnrolledDays))
	if err != nil {
		return "", storeErr("create", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO students (id, coach_id, name, parent_name, contact, package, enrolled_days, waiver_signed, is_active, attendance, payments, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '{}', '[]', '[]')
	`, s.ID, coachID, s.Name, s.ParentName, s.Contact, string(s.Package), days, s.WaiverSigned, s.IsActive)
	if err != nil {
		return "", storeErr("create", err)
	}
	_ = p.notifier.Publish(ctx, coachID)
	return s.ID, nil
}

// Patch overwrites the named columns on the row. Collection fields are
// marshalled and replace the stored JSONB value wholesale.
func (p *Postgres) Patch(ctx context.Context, coachID, id string, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}
	set := make([]string, 0, len(fields)+1)
	args := []any{coachID, id}
	for key, val := range fields {
		col, jsonb, err := columnFor(key)
		if err != nil {
			return err
		}
		if jsonb {
			raw, merr := json.Marshal(val)
			if merr != nil {
				return storeErr("patch", merr)
			}
			val = raw
		} else if pkg, ok := val.(student.Package); ok {
			val = string(pkg)
		}
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	set = append(set, "updated_at = NOW()")

	res, err := p.db.ExecContext(ctx,
		"UPDATE students SET "+joinClauses(set, ", ")+" WHERE coach_id = $1 AND id = $2",
		args...)
	if err != nil {
		return storeErr("patch", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeErr("patch", ErrNotFound)
	}
	_ = p.notifier.Publish(ctx, coachID)
	return nil
}

// Delete removes the row.
func (p *Postgres) Delete(ctx context.Context, coachID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM students WHERE coach_id = $1 AND id = $2`, coachID, id)
	if err != nil {
		return storeErr("delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeErr("delete", ErrNotFound)
	}
	_ = p.notifier.Publish(ctx, coachID)
	return nil
}

// Watch subscribes to change signals for the coach's collection.
func (p *Postgres) Watch(ctx context.Context, coachID string) (<-chan struct{}, error) {
	return p.notifier.Subscribe(ctx, coachID)
}

func columnFor(field string) (col string, jsonb bool, err error) {
	switch field {
	case FieldName:
		return "name", false, nil
	case FieldParentName:
		return "parent_name", false, nil
	case FieldContact:
		return "contact", false, nil
	case FieldPackage:
		return "package", false, nil
	case FieldWaiverSigned:
		return "waiver_signed", false, nil
	case FieldIsActive:
		return "is_active", false, nil
	case FieldEnrolledDays:
		return "enrolled_days", true, nil
	case FieldAttendance:
		return "attendance", true, nil
	case FieldPayments:
		return "payments", true, nil
	case FieldNotes:
		return "notes", true, nil
	default:
		return "", false, storeErr("patch", fmt.Errorf("unknown field %q", field))
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (student.Student, error) {
	var (
		s          student.Student
		pkg        string
		days       []byte
		attendance []byte
		payments   []byte
		notes      []byte
		createdAt  time.Time
	)
	if err := row.Scan(&s.ID, &s.Name, &s.ParentName, &s.Contact, &pkg, &days, &s.WaiverSigned, &s.IsActive, &attendance, &payments, &notes, &createdAt); err != nil {
		return student.Student{}, err
	}
	s.Package = student.Package(pkg)
	s.CreatedAt = createdAt
	if err := json.Unmarshal(days, &s.EnrolledDays); err != nil {
		return student.Student{}, err
	}
	if err := json.Unmarshal(attendance, &s.Attendance); err != nil {
		return student.Student{}, err
	}
	if err := json.Unmarshal(payments, &s.Payments); err != nil {
		return student.Student{}, err
	}
	if err := json.Unmarshal(notes, &s.Notes); err != nil {
		return student.Student{}, err
	}
	if s.Attendance == nil {
		s.Attendance = map[string]student.AttendanceStatus{}
	}
	if s.Payments == nil {
		s.Payments = []student.Payment{}
	}
	if s.Notes == nil {
		s.Notes = []student.Note{}
	}
	return s, nil
}

func orEmptyDays(days []string) []string {
	if days == nil {
		return []string{}
	}
	return days
}

func joinClauses(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += sep + parts[i]
	}
	return out
}

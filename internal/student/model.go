package student

import (
	"fmt"
	"strings"
	"time"
)

// Package is the coaching plan a student is enrolled on.
type Package string

const (
	PackageOneDay Package = "1-day"
	PackageTwoDay Package = "2-day"
	PackageAdult  Package = "Adult"
)

// Valid returns true when the package is a supported value.
func (p Package) Valid() bool {
	switch p {
	case PackageOneDay, PackageTwoDay, PackageAdult:
		return true
	default:
		return false
	}
}

// AttendanceStatus is a recorded mark for one calendar day. Absence of a
// mark means "unmarked", which is distinct from Absent.
type AttendanceStatus string

const (
	Present AttendanceStatus = "present"
	Absent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == Present || s == Absent
}

// Weekdays lists the seven weekday names in calendar order. enrolledDays is
// always a subset of this set.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// IsWeekday returns true when name is one of the seven weekday names.
func IsWeekday(name string) bool {
	for _, d := range Weekdays {
		if d == name {
			return true
		}
	}
	return false
}

const (
	// DateLayout is the key format of the attendance map and of note dates.
	DateLayout = "2006-01-02"
	// MonthLayout is the format of payment months.
	MonthLayout = "2006-01"
)

// Payment is a manually recorded payment against a calendar month. Months
// are not unique across payments; "paid for month M" means at least one
// payment targets M.
type Payment struct {
	ID           string    `json:"id"`
	Month        string    `json:"month"`
	Amount       float64   `json:"amount"`
	DateReceived time.Time `json:"dateReceived"`
}

// Note is free text pinned to a calendar date. The date defaults to the day
// the note is written but is editable independently.
type Note struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Text string `json:"text"`
}

// Student is the root document. Attendance, payments and notes are embedded
// and have no lifecycle outside their student.
type Student struct {
	ID           string                      `json:"id"`
	Name         string                      `json:"name"`
	ParentName   string                      `json:"parentName"`
	Contact      string                      `json:"contact"`
	Package      Package                     `json:"package"`
	EnrolledDays []string                    `json:"enrolledDays"`
	WaiverSigned bool                        `json:"waiverSigned"`
	IsActive     bool                        `json:"isActive"`
	Attendance   map[string]AttendanceStatus `json:"attendance"`
	Payments     []Payment                   `json:"payments"`
	Notes        []Note                      `json:"notes"`
	CreatedAt    time.Time                   `json:"createdAt"`
}

// ValidationError reports a locally rejected input. It is raised before any
// remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the profile fields required at creation time.
func (s Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if strings.TrimSpace(s.Contact) == "" {
		return &ValidationError{Field: "contact", Reason: "required"}
	}
	if s.Package != "" && !s.Package.Valid() {
		return &ValidationError{Field: "package", Reason: fmt.Sprintf("unknown package %q", s.Package)}
	}
	for _, d := range s.EnrolledDays {
		if !IsWeekday(d) {
			return &ValidationError{Field: "enrolledDays", Reason: fmt.Sprintf("unknown weekday %q", d)}
		}
	}
	return nil
}

// EnrolledOn returns true when the student attends on the named weekday.
func (s Student) EnrolledOn(weekday string) bool {
	for _, d := range s.EnrolledDays {
		if d == weekday {
			return true
		}
	}
	return false
}

// ToggleDay adds the weekday to the enrollment set, or removes it when
// already present, so toggling twice is a no-op. Unknown names are ignored.
func ToggleDay(days []string, weekday string) []string {
	if !IsWeekday(weekday) {
		return days
	}
	out := make([]string, 0, len(days)+1)
	removed := false
	for _, d := range days {
		if d == weekday {
			removed = true
			continue
		}
		out = append(out, d)
	}
	if !removed {
		out = append(out, weekday)
	}
	return out
}

package student

import (
	"sort"
	"strings"
	"time"
)

// StatusFilter selects which students the roster view includes.
type StatusFilter string

const (
	FilterActive   StatusFilter = "active"
	FilterInactive StatusFilter = "inactive"
	FilterAll      StatusFilter = "all"
)

// DueEntry is one row of the attendance-due view. PaidMonth reflects the
// selected date's month; a false value renders a payment-due indicator but
// never excludes the student from the list.
type DueEntry struct {
	Student   Student `json:"student"`
	PaidMonth bool    `json:"paidMonth"`
}

// HasPaidMonth returns true when at least one payment targets the month
// ("YYYY-MM"), regardless of amount or how many payments target it.
func HasPaidMonth(s Student, month string) bool {
	for _, p := range s.Payments {
		if p.Month == month {
			return true
		}
	}
	return false
}

// AttendanceDue computes the list of students still expecting a mark on the
// selected date: active, enrolled on that weekday, not yet marked for the
// date, and matching the search term against the name. Input order is
// preserved.
func AttendanceDue(students []Student, date time.Time, search string) []DueEntry {
	weekday := date.Weekday().String()
	day := date.Format(DateLayout)
	month := date.Format(MonthLayout)
	needle := strings.ToLower(strings.TrimSpace(search))

	out := make([]DueEntry, 0, len(students))
	for _, s := range students {
		if !s.IsActive {
			continue
		}
		if !s.EnrolledOn(weekday) {
			continue
		}
		if _, marked := s.Attendance[day]; marked {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(s.Name), needle) {
			continue
		}
		out = append(out, DueEntry{Student: s, PaidMonth: HasPaidMonth(s, month)})
	}
	return out
}

// Roster filters the full student list by active status and a search term
// matched case-insensitively against name or parent name. Input order is
// preserved.
func Roster(students []Student, status StatusFilter, search string) []Student {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]Student, 0, len(students))
	for _, s := range students {
		switch status {
		case FilterActive:
			if !s.IsActive {
				continue
			}
		case FilterInactive:
			if s.IsActive {
				continue
			}
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(s.Name), needle) &&
			!strings.Contains(strings.ToLower(s.ParentName), needle) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// PaymentMonths returns the fixed 12-month option window for the payment
// form, newest first: two months ahead of now down to nine months back.
// Computed once per call, not live against a changing clock.
func PaymentMonths(now time.Time) []string {
	anchor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		out = append(out, anchor.AddDate(0, 2-i, 0).Format(MonthLayout))
	}
	return out
}

// SortPaymentsDesc returns a copy of the payments ordered newest first by
// dateReceived. The stored slice is never mutated.
func SortPaymentsDesc(payments []Payment) []Payment {
	out := make([]Payment, len(payments))
	copy(out, payments)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateReceived.After(out[j].DateReceived)
	})
	return out
}

// SortNotesDesc returns a copy of the notes ordered newest first by date.
func SortNotesDesc(notes []Note) []Note {
	out := make([]Note, len(notes))
	copy(out, notes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out
}

// AttendanceEntry is one row of the flattened attendance history.
type AttendanceEntry struct {
	Date   string           `json:"date"`
	Status AttendanceStatus `json:"status"`
}

// SortAttendanceDesc flattens the attendance map into entries ordered newest
// first. ISO date keys sort correctly as strings.
func SortAttendanceDesc(attendance map[string]AttendanceStatus) []AttendanceEntry {
	out := make([]AttendanceEntry, 0, len(attendance))
	for date, status := range attendance {
		out = append(out, AttendanceEntry{Date: date, Status: status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

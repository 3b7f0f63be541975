package student

import (
	"reflect"
	"testing"
	"time"
)

// 2024-03-04 is a Monday.
var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func activeStudent(name string, days ...string) Student {
	return Student{
		Name:         name,
		Contact:      "555-0100",
		Package:      PackageOneDay,
		EnrolledDays: days,
		IsActive:     true,
		Attendance:   map[string]AttendanceStatus{},
	}
}

func TestAttendanceDueFiltersByWeekday(t *testing.T) {
	students := []Student{
		activeStudent("Alice", "Monday"),
		activeStudent("Bob", "Tuesday"),
		activeStudent("Cara", "Monday", "Thursday"),
	}
	due := AttendanceDue(students, monday, "")
	if len(due) != 2 {
		t.Fatalf("want 2 due, got %d", len(due))
	}
	if due[0].Student.Name != "Alice" || due[1].Student.Name != "Cara" {
		t.Fatalf("wrong students or order: %q, %q", due[0].Student.Name, due[1].Student.Name)
	}
}

func TestAttendanceDueExcludesMarked(t *testing.T) {
	alice := activeStudent("Alice", "Monday")
	alice.Attendance["2024-03-04"] = Present
	bob := activeStudent("Bob", "Monday")

	due := AttendanceDue([]Student{alice, bob}, monday, "")
	if len(due) != 1 || due[0].Student.Name != "Bob" {
		t.Fatalf("want only Bob, got %+v", due)
	}

	// Removing the mark re-includes her.
	delete(alice.Attendance, "2024-03-04")
	due = AttendanceDue([]Student{alice, bob}, monday, "")
	if len(due) != 2 {
		t.Fatalf("want 2 after unmark, got %d", len(due))
	}
}

func TestAttendanceDueExcludesInactive(t *testing.T) {
	s := activeStudent("Alice", "Monday")
	s.IsActive = false
	if due := AttendanceDue([]Student{s}, monday, ""); len(due) != 0 {
		t.Fatalf("inactive student should not be due, got %+v", due)
	}
}

func TestAttendanceDueSearch(t *testing.T) {
	students := []Student{
		activeStudent("Alice Smith", "Monday"),
		activeStudent("Bob Jones", "Monday"),
	}
	due := AttendanceDue(students, monday, "aLiCe")
	if len(due) != 1 || due[0].Student.Name != "Alice Smith" {
		t.Fatalf("search failed: %+v", due)
	}
	if due = AttendanceDue(students, monday, ""); len(due) != 2 {
		t.Fatalf("empty search must match all, got %d", len(due))
	}
}

func TestAttendanceDuePaidFlagDoesNotExclude(t *testing.T) {
	paid := activeStudent("Paid", "Monday")
	paid.Payments = []Payment{{ID: "p1", Month: "2024-03", Amount: 50}}
	unpaid := activeStudent("Unpaid", "Monday")

	due := AttendanceDue([]Student{paid, unpaid}, monday, "")
	if len(due) != 2 {
		t.Fatalf("payment state must not exclude, got %d", len(due))
	}
	if !due[0].PaidMonth {
		t.Error("Paid should have PaidMonth true")
	}
	if due[1].PaidMonth {
		t.Error("Unpaid should have PaidMonth false")
	}
}

func TestHasPaidMonth(t *testing.T) {
	s := activeStudent("Alice", "Monday")
	if HasPaidMonth(s, "2024-03") {
		t.Fatal("no payments yet")
	}
	s.Payments = append(s.Payments, Payment{ID: "p1", Month: "2024-03", Amount: 50})
	if !HasPaidMonth(s, "2024-03") {
		t.Fatal("payment for month should flip true")
	}
	if HasPaidMonth(s, "2024-04") {
		t.Fatal("other months unaffected")
	}
	s.Payments = nil
	if HasPaidMonth(s, "2024-03") {
		t.Fatal("deleting the last payment flips false")
	}
}

func TestRosterStatusFilter(t *testing.T) {
	a := activeStudent("Active", "Monday")
	i := activeStudent("Inactive", "Monday")
	i.IsActive = false
	students := []Student{a, i}

	if got := Roster(students, FilterActive, ""); len(got) != 1 || got[0].Name != "Active" {
		t.Fatalf("active filter: %+v", got)
	}
	if got := Roster(students, FilterInactive, ""); len(got) != 1 || got[0].Name != "Inactive" {
		t.Fatalf("inactive filter: %+v", got)
	}
	if got := Roster(students, FilterAll, ""); len(got) != 2 {
		t.Fatalf("all filter: %+v", got)
	}
}

func TestRosterSearchMatchesParentName(t *testing.T) {
	s := activeStudent("Timmy", "Monday")
	s.ParentName = "Margaret"
	students := []Student{s, activeStudent("Alice", "Monday")}

	if got := Roster(students, FilterAll, "margar"); len(got) != 1 || got[0].Name != "Timmy" {
		t.Fatalf("parent search: %+v", got)
	}
	if got := Roster(students, FilterAll, "nobody"); len(got) != 0 {
		t.Fatalf("no match expected: %+v", got)
	}
}

func TestPaymentMonthsWindow(t *testing.T) {
	months := PaymentMonths(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	if len(months) != 12 {
		t.Fatalf("want 12 months, got %d", len(months))
	}
	if months[0] != "2024-05" {
		t.Errorf("window starts two months ahead, got %s", months[0])
	}
	if months[2] != "2024-03" {
		t.Errorf("third entry is the current month, got %s", months[2])
	}
	if months[11] != "2023-06" {
		t.Errorf("window ends nine months back, got %s", months[11])
	}
}

func TestPaymentMonthsYearBoundary(t *testing.T) {
	months := PaymentMonths(time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC))
	if months[0] != "2025-01" {
		t.Errorf("year rollover forward, got %s", months[0])
	}
	if months[11] != "2024-02" {
		t.Errorf("tail month, got %s", months[11])
	}
}

func TestSortPaymentsDescDoesNotMutate(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.AddDate(0, 1, 0)
	stored := []Payment{{ID: "old", DateReceived: t1}, {ID: "new", DateReceived: t2}}

	sorted := SortPaymentsDesc(stored)
	if sorted[0].ID != "new" || sorted[1].ID != "old" {
		t.Fatalf("wrong order: %+v", sorted)
	}
	if stored[0].ID != "old" {
		t.Fatal("stored slice was mutated")
	}
}

func TestSortNotesDesc(t *testing.T) {
	stored := []Note{
		{ID: "a", Date: "2024-01-05"},
		{ID: "b", Date: "2024-03-01"},
		{ID: "c", Date: "2024-02-10"},
	}
	sorted := SortNotesDesc(stored)
	want := []string{"b", "c", "a"}
	for i, id := range want {
		if sorted[i].ID != id {
			t.Fatalf("position %d: want %s got %s", i, id, sorted[i].ID)
		}
	}
	if stored[0].ID != "a" {
		t.Fatal("stored slice was mutated")
	}
}

func TestSortAttendanceDesc(t *testing.T) {
	att := map[string]AttendanceStatus{
		"2024-01-02": Present,
		"2024-02-01": Absent,
		"2023-12-31": Present,
	}
	entries := SortAttendanceDesc(att)
	want := []string{"2024-02-01", "2024-01-02", "2023-12-31"}
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.Date
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("want %v got %v", want, got)
	}
	if len(att) != 3 {
		t.Fatal("map was mutated")
	}
}

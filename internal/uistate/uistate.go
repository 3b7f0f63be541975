// Package uistate models the dashboard's view/selection state as one
// explicit struct instead of ambient globals, so the "deleting the selected
// student clears the selection" rule lives in exactly one place.
package uistate

// View names a dashboard screen.
type View string

const (
	ViewCalendar View = "calendar"
	ViewManage   View = "manage"
	ViewDetail   View = "detail"
	ViewAddForm  View = "add"
)

// Valid returns true when the view is a known screen.
func (v View) Valid() bool {
	switch v {
	case ViewCalendar, ViewManage, ViewDetail, ViewAddForm:
		return true
	default:
		return false
	}
}

// State is one coach session's UI state.
type State struct {
	View       View   `json:"view"`
	SelectedID string `json:"selectedId"`
}

// New starts a session on the calendar screen with nothing selected.
func New() State {
	return State{View: ViewCalendar}
}

// Show switches screens. Leaving the detail screen drops the selection.
func (s *State) Show(v View) {
	if !v.Valid() || v == ViewDetail {
		return
	}
	s.View = v
	s.SelectedID = ""
}

// Select opens the detail screen for a student.
func (s *State) Select(id string) {
	if id == "" {
		return
	}
	s.View = ViewDetail
	s.SelectedID = id
}

// StudentDeleted clears the selection when the deleted student is the one
// being viewed, falling back to the manage screen.
func (s *State) StudentDeleted(id string) {
	if s.SelectedID != id {
		return
	}
	s.SelectedID = ""
	if s.View == ViewDetail {
		s.View = ViewManage
	}
}

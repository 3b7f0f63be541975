package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"coachboard/internal/auth"
	"coachboard/internal/docstore"
	"coachboard/internal/roster"
)

const testCoach = "coach-test"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := roster.NewService(docstore.NewMemory(nil), nil)
	h := New(svc, nil)

	r := gin.New()
	g := r.Group("/v1", func(c *gin.Context) {
		c.Set(auth.ContextKey, auth.Claims{Subject: testCoach, Role: "coach"})
		c.Next()
	})
	h.Register(g)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), into); err != nil {
		t.Fatalf("bad response %q: %v", w.Body.String(), err)
	}
}

func createStudent(t *testing.T, r *gin.Engine, name string, days ...string) string {
	t.Helper()
	w := do(t, r, http.MethodPost, "/v1/students", gin.H{
		"name":         name,
		"contact":      "555-0100",
		"enrolledDays": days,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	decode(t, w, &resp)
	return resp.ID
}

func TestCreateAndRoster(t *testing.T) {
	r := newTestRouter(t)
	createStudent(t, r, "Alice", "Monday")
	createStudent(t, r, "Bob", "Tuesday")

	w := do(t, r, http.MethodGet, "/v1/students?status=all", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("roster failed: %d", w.Code)
	}
	var resp struct {
		Students []struct {
			Name string `json:"name"`
		} `json:"students"`
	}
	decode(t, w, &resp)
	if len(resp.Students) != 2 || resp.Students[0].Name != "Alice" {
		t.Fatalf("roster wrong: %+v", resp.Students)
	}
}

func TestCreateValidation(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/v1/students", gin.H{"name": "Alice"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing contact must be 400, got %d", w.Code)
	}
	w = do(t, r, http.MethodPost, "/v1/students", gin.H{
		"name": "Alice", "contact": "c", "package": "9-day",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad package must be 400, got %d", w.Code)
	}
}

func TestAttendanceDueEndpoint(t *testing.T) {
	r := newTestRouter(t)
	id := createStudent(t, r, "Alice", "Monday")
	createStudent(t, r, "Bob", "Tuesday")

	// 2024-03-04 is a Monday.
	w := do(t, r, http.MethodGet, "/v1/attendance/due?date=2024-03-04", nil)
	var resp struct {
		Due []struct {
			Student struct {
				Name string `json:"name"`
			} `json:"student"`
			PaidMonth bool `json:"paidMonth"`
		} `json:"due"`
	}
	decode(t, w, &resp)
	if len(resp.Due) != 1 || resp.Due[0].Student.Name != "Alice" {
		t.Fatalf("due wrong: %+v", resp.Due)
	}
	if resp.Due[0].PaidMonth {
		t.Fatal("no payments recorded yet")
	}

	// Mark her present; she leaves the due list.
	w = do(t, r, http.MethodPut, "/v1/students/"+id+"/attendance/2024-03-04", gin.H{"status": "present"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("mark failed: %d %s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodGet, "/v1/attendance/due?date=2024-03-04", nil)
	resp.Due = nil
	decode(t, w, &resp)
	if len(resp.Due) != 0 {
		t.Fatalf("marked student still due: %+v", resp.Due)
	}
}

func TestPaymentFlow(t *testing.T) {
	r := newTestRouter(t)
	id := createStudent(t, r, "Alice", "Monday")

	w := do(t, r, http.MethodPost, "/v1/students/"+id+"/payments", gin.H{"month": "2024-03", "amount": 50})
	if w.Code != http.StatusCreated {
		t.Fatalf("payment failed: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/v1/attendance/due?date=2024-03-04", nil)
	var resp struct {
		Due []struct {
			PaidMonth bool `json:"paidMonth"`
		} `json:"due"`
	}
	decode(t, w, &resp)
	if len(resp.Due) != 1 || !resp.Due[0].PaidMonth {
		t.Fatalf("paid flag not set: %+v", resp.Due)
	}

	w = do(t, r, http.MethodPost, "/v1/students/"+id+"/payments", gin.H{"month": "2024-03", "amount": -5})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("negative amount must be 400, got %d", w.Code)
	}
}

func TestPaymentMonthsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/v1/payment-months", nil)
	var resp struct {
		Months []string `json:"months"`
	}
	decode(t, w, &resp)
	if len(resp.Months) != 12 {
		t.Fatalf("want 12 months, got %d", len(resp.Months))
	}
}

func TestDeleteClearsSelection(t *testing.T) {
	r := newTestRouter(t)
	id := createStudent(t, r, "Alice", "Monday")

	w := do(t, r, http.MethodPut, "/v1/session/selection", gin.H{"id": id})
	if w.Code != http.StatusOK {
		t.Fatalf("select failed: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodDelete, "/v1/students/"+id, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("delete failed: %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/v1/session", nil)
	var session struct {
		View       string `json:"view"`
		SelectedID string `json:"selectedId"`
	}
	decode(t, w, &session)
	if session.SelectedID != "" {
		t.Fatalf("selection must be cleared after delete: %+v", session)
	}
	if session.View != "manage" {
		t.Fatalf("detail view must fall back to manage: %+v", session)
	}
}

func TestGetStudentDetailSorted(t *testing.T) {
	r := newTestRouter(t)
	id := createStudent(t, r, "Alice", "Monday")

	for _, date := range []string{"2024-03-01", "2024-03-04"} {
		w := do(t, r, http.MethodPost, "/v1/students/"+id+"/notes", gin.H{"date": date, "text": "note " + date})
		if w.Code != http.StatusCreated {
			t.Fatalf("note failed: %d %s", w.Code, w.Body.String())
		}
	}

	w := do(t, r, http.MethodGet, "/v1/students/"+id, nil)
	var resp struct {
		NoteHistory []struct {
			Date string `json:"date"`
		} `json:"noteHistory"`
	}
	decode(t, w, &resp)
	if len(resp.NoteHistory) != 2 || resp.NoteHistory[0].Date != "2024-03-04" {
		t.Fatalf("notes not sorted newest first: %+v", resp.NoteHistory)
	}
}

func TestUnknownStudentIs404(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/v1/students/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", w.Code)
	}
}

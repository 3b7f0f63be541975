package handler

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coachboard/internal/auth"
	"coachboard/internal/docstore"
	"coachboard/internal/roster"
	"coachboard/internal/student"
	"coachboard/internal/uistate"
)

// Handler serves the coach dashboard API.
type Handler struct {
	svc *roster.Service
	log *zap.SugaredLogger
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*uistate.State
}

// New creates a handler over the roster service.
func New(svc *roster.Service, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handler{
		svc:      svc,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*uistate.State),
	}
}

// Register mounts all authenticated dashboard routes on the group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/students", h.ListStudents)
	g.POST("/students", h.CreateStudent)
	g.GET("/students/:id", h.GetStudent)
	g.PATCH("/students/:id", h.UpdateProfile)
	g.DELETE("/students/:id", h.DeleteStudent)
	g.PUT("/students/:id/attendance/:date", h.SetAttendance)
	g.POST("/students/:id/notes", h.AddNote)
	g.PUT("/students/:id/notes/:noteID", h.UpdateNote)
	g.DELETE("/students/:id/notes/:noteID", h.DeleteNote)
	g.POST("/students/:id/payments", h.AddPayment)
	g.DELETE("/students/:id/payments/:paymentID", h.DeletePayment)

	g.GET("/attendance/due", h.AttendanceDue)
	g.GET("/payment-months", h.PaymentMonths)
	g.GET("/watch", h.Watch)

	g.GET("/session", h.GetSession)
	g.PUT("/session/view", h.SetView)
	g.PUT("/session/selection", h.SetSelection)
}

// fail maps the error taxonomy onto HTTP statuses: local validation is 400,
// a missing document 404, store faults 502. Mutation failures never leave
// half-applied local state behind because none is kept.
func (h *Handler) fail(c *gin.Context, err error) {
	var ve *student.ValidationError
	var se *docstore.StoreError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.Is(err, docstore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
	case errors.As(err, &se):
		h.log.Errorw("store failure", "op", se.Op, "err", se.Err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "store unavailable, retry the action"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// ---------- Roster ----------

// ListStudents returns the roster view: optional active/inactive/all filter
// plus a case-insensitive search over name and parent name.
func (h *Handler) ListStudents(c *gin.Context) {
	coachID := auth.CoachID(c)
	students, err := h.svc.List(c.Request.Context(), coachID)
	if err != nil {
		h.fail(c, err)
		return
	}
	status := student.StatusFilter(c.DefaultQuery("status", string(student.FilterActive)))
	result := student.Roster(students, status, c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"students": result})
}

type createStudentRequest struct {
	Name         string          `json:"name" binding:"required"`
	ParentName   string          `json:"parentName"`
	Contact      string          `json:"contact" binding:"required"`
	Package      student.Package `json:"package"`
	EnrolledDays []string        `json:"enrolledDays"`
	WaiverSigned bool            `json:"waiverSigned"`
}

// CreateStudent adds a student. Notes, payments and attendance always start
// empty no matter what the request carries.
func (h *Handler) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.svc.Create(c.Request.Context(), auth.CoachID(c), student.Student{
		Name:         req.Name,
		ParentName:   req.ParentName,
		Contact:      req.Contact,
		Package:      req.Package,
		EnrolledDays: req.EnrolledDays,
		WaiverSigned: req.WaiverSigned,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// GetStudent returns the detail view with display-sorted histories.
func (h *Handler) GetStudent(c *gin.Context) {
	s, err := h.svc.Get(c.Request.Context(), auth.CoachID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"student":           s,
		"paymentHistory":    student.SortPaymentsDesc(s.Payments),
		"noteHistory":       student.SortNotesDesc(s.Notes),
		"attendanceHistory": student.SortAttendanceDesc(s.Attendance),
	})
}

// UpdateProfile patches a subset of the profile fields.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var patch roster.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.UpdateProfile(c.Request.Context(), auth.CoachID(c), c.Param("id"), patch); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "patched"})
}

// DeleteStudent removes the document and clears any session selection that
// pointed at it.
func (h *Handler) DeleteStudent(c *gin.Context) {
	coachID := auth.CoachID(c)
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), coachID, id); err != nil {
		h.fail(c, err)
		return
	}
	h.mu.Lock()
	if st, ok := h.sessions[coachID]; ok {
		st.StudentDeleted(id)
	}
	h.mu.Unlock()
	c.JSON(http.StatusAccepted, gin.H{"status": "deleted"})
}

// ---------- Attendance ----------

type setAttendanceRequest struct {
	Status student.AttendanceStatus `json:"status" binding:"required"`
}

// SetAttendance records a present/absent mark for one date.
func (h *Handler) SetAttendance(c *gin.Context) {
	var req setAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.svc.SetAttendance(c.Request.Context(), auth.CoachID(c), c.Param("id"), c.Param("date"), req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "marked"})
}

// AttendanceDue lists active students still expecting a mark on the date
// (default today), with a paid-this-month flag per row.
func (h *Handler) AttendanceDue(c *gin.Context) {
	date := h.now().UTC()
	if v := c.Query("date"); v != "" {
		parsed, err := time.Parse(student.DateLayout, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = parsed
	}
	students, err := h.svc.List(c.Request.Context(), auth.CoachID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	due := student.AttendanceDue(students, date, c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"date": date.Format(student.DateLayout), "due": due})
}

// ---------- Notes ----------

type noteRequest struct {
	Date string `json:"date"`
	Text string `json:"text" binding:"required"`
}

// AddNote prepends a note; the date defaults to today.
func (h *Handler) AddNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	note, err := h.svc.AddNote(c.Request.Context(), auth.CoachID(c), c.Param("id"), req.Date, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"note": note})
}

// UpdateNote replaces a note in place.
func (h *Handler) UpdateNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	note := student.Note{ID: c.Param("noteID"), Date: req.Date, Text: req.Text}
	if err := h.svc.UpdateNote(c.Request.Context(), auth.CoachID(c), c.Param("id"), note); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "updated"})
}

// DeleteNote removes a note by id.
func (h *Handler) DeleteNote(c *gin.Context) {
	if err := h.svc.DeleteNote(c.Request.Context(), auth.CoachID(c), c.Param("id"), c.Param("noteID")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "deleted"})
}

// ---------- Payments ----------

type paymentRequest struct {
	Month  string   `json:"month" binding:"required"`
	Amount *float64 `json:"amount" binding:"required"`
}

// AddPayment prepends a payment record for a month.
func (h *Handler) AddPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payment, err := h.svc.AddPayment(c.Request.Context(), auth.CoachID(c), c.Param("id"), req.Month, *req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

// DeletePayment removes a payment record by id.
func (h *Handler) DeletePayment(c *gin.Context) {
	if err := h.svc.DeletePayment(c.Request.Context(), auth.CoachID(c), c.Param("id"), c.Param("paymentID")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "deleted"})
}

// PaymentMonths returns the fixed 12-month window for the payment form.
func (h *Handler) PaymentMonths(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"months": student.PaymentMonths(h.now().UTC())})
}

// ---------- Session state ----------

func (h *Handler) session(coachID string) *uistate.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.sessions[coachID]
	if !ok {
		s := uistate.New()
		st = &s
		h.sessions[coachID] = st
	}
	return st
}

// GetSession returns the coach's current view/selection state.
func (h *Handler) GetSession(c *gin.Context) {
	st := h.session(auth.CoachID(c))
	h.mu.Lock()
	snapshot := *st
	h.mu.Unlock()
	c.JSON(http.StatusOK, snapshot)
}

// SetView switches the dashboard screen.
func (h *Handler) SetView(c *gin.Context) {
	var req struct {
		View uistate.View `json:"view" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.View.Valid() || req.View == uistate.ViewDetail {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown view"})
		return
	}
	st := h.session(auth.CoachID(c))
	h.mu.Lock()
	st.Show(req.View)
	snapshot := *st
	h.mu.Unlock()
	c.JSON(http.StatusOK, snapshot)
}

// SetSelection opens the detail screen for a student.
func (h *Handler) SetSelection(c *gin.Context) {
	var req struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.svc.Get(c.Request.Context(), auth.CoachID(c), req.ID); err != nil {
		h.fail(c, err)
		return
	}
	st := h.session(auth.CoachID(c))
	h.mu.Lock()
	st.Select(req.ID)
	snapshot := *st
	h.mu.Unlock()
	c.JSON(http.StatusOK, snapshot)
}

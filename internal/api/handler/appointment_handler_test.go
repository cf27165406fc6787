package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/leonard05717/appointment/internal/booking"
	"github.com/leonard05717/appointment/internal/dto"
	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/internal/realtime"
	"github.com/leonard05717/appointment/internal/service"
	pkgerrors "github.com/leonard05717/appointment/pkg/errors"
	"github.com/leonard05717/appointment/pkg/table"
)

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock BookingService ──

type mockBookingService struct {
	availResult *dto.AvailabilityResponse
	availErr    error
	draftResult *dto.DraftResponse
	draftErr    error
	bookResult  *dto.BookingResult
	bookErr     error
	qrResult    *dto.BookingResult
	qrErr       error
}

func (m *mockBookingService) Availability(_ context.Context, _ uint, _ string) (*dto.AvailabilityResponse, error) {
	return m.availResult, m.availErr
}
func (m *mockBookingService) GetDraft(_ context.Context, _ uint) (*dto.DraftResponse, error) {
	return m.draftResult, m.draftErr
}
func (m *mockBookingService) UpdateDraft(_ context.Context, _ uint, _ *dto.DraftUpdateRequest) (*dto.DraftResponse, error) {
	return m.draftResult, m.draftErr
}
func (m *mockBookingService) Next(_ context.Context, _ uint) (*dto.DraftResponse, error) {
	return m.draftResult, m.draftErr
}
func (m *mockBookingService) Back(_ context.Context, _ uint) (*dto.DraftResponse, error) {
	return m.draftResult, m.draftErr
}
func (m *mockBookingService) Reset(_ context.Context, _ uint) (*dto.DraftResponse, error) {
	return m.draftResult, m.draftErr
}
func (m *mockBookingService) Commit(_ context.Context, _ uint) (*dto.BookingResult, error) {
	return m.bookResult, m.bookErr
}
func (m *mockBookingService) Book(_ context.Context, _ uint, _ *dto.BookRequest) (*dto.BookingResult, error) {
	return m.bookResult, m.bookErr
}
func (m *mockBookingService) QRCode(_ context.Context, _, _ uint) (*dto.BookingResult, error) {
	return m.qrResult, m.qrErr
}

// ── Mock AppointmentService ──

type mockAppointmentService struct {
	listResult   *table.View
	listErr      error
	listReq      *dto.AppointmentListRequest
	apptResult   *dto.AppointmentResponse
	apptErr      error
	scanCode     string
	cursorResult *dto.CursorResponse
	cursorErr    error
	released     uint
	history      []dto.AppointmentResponse
	historyErr   error
}

func (m *mockAppointmentService) List(_ context.Context, req *dto.AppointmentListRequest) (*table.View, error) {
	m.listReq = req
	return m.listResult, m.listErr
}
func (m *mockAppointmentService) Scan(_ context.Context, code string) (*dto.AppointmentResponse, error) {
	m.scanCode = code
	return m.apptResult, m.apptErr
}
func (m *mockAppointmentService) GetByID(_ context.Context, _ uint) (*dto.AppointmentResponse, error) {
	return m.apptResult, m.apptErr
}
func (m *mockAppointmentService) ChangeStatus(_ context.Context, _, _ uint, _ *dto.StatusChangeRequest) (*dto.AppointmentResponse, error) {
	return m.apptResult, m.apptErr
}
func (m *mockAppointmentService) Cursor(_ context.Context, _ uint, _ *dto.CursorRequest) (*dto.CursorResponse, error) {
	return m.cursorResult, m.cursorErr
}
func (m *mockAppointmentService) ReleaseCursor(actorID uint) {
	m.released = actorID
}
func (m *mockAppointmentService) History(_ context.Context, _ uint) ([]dto.AppointmentResponse, error) {
	return m.history, m.historyErr
}
func (m *mockAppointmentService) Update(_ context.Context, _, _ uint, _ *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error) {
	return m.apptResult, m.apptErr
}
func (m *mockAppointmentService) Cancel(_ context.Context, _, _ uint) (*dto.AppointmentResponse, error) {
	return m.apptResult, m.apptErr
}

type mockQueue struct {
	result *dto.QueueResponse
	err    error
}

func (m *mockQueue) Snapshot(_ context.Context) (*dto.QueueResponse, error) {
	return m.result, m.err
}

// ── Mock ReportService ──

type mockReportService struct {
	report   *dto.ReportResponse
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockReportService) Report(_ context.Context, _ *dto.ReportRequest) (*dto.ReportResponse, error) {
	return m.report, m.err
}
func (m *mockReportService) Export(_ context.Context, _ *dto.ReportRequest) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ── Mock RealtimeService ──

type mockRealtimeService struct {
	events []realtime.Event
	err    error
}

func (m *mockRealtimeService) Subscribe(_ context.Context, _ string) (<-chan realtime.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan realtime.Event, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

// ═══════════════════════════════════════════════════════════
// BookingHandler Tests
// ═══════════════════════════════════════════════════════════

func bookingResult() *dto.BookingResult {
	return &dto.BookingResult{
		Appointment: dto.AppointmentResponse{ID: 5, QRCode: "AB12CD", Status: "pending"},
		FileName:    "qrcode.png",
		PNG:         []byte{0x89, 'P', 'N', 'G'},
	}
}

func serveBooking(h *BookingHandler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	_, _, w := setupGin()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	g := r.Group("/booking", func(c *gin.Context) { setAuthAs(c, 7, model.RoleStudent) })
	g.POST("/draft/commit", h.Commit)
	g.POST("/draft/back", h.Back)
	g.POST("", h.Book)
	g.GET("/appointments/:id/qrcode", h.QRCode)
	r.ServeHTTP(w, req)
	return w
}

func TestBookingHandler_Commit_JSON(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{bookResult: bookingResult()})

	w := serveBooking(h, "POST", "/booking/draft/commit", nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	data := dataMap(t, parseResponse(w))
	want := base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'})
	if data["qrcode_png"] != want {
		t.Errorf("expected base64 png, got %v", data["qrcode_png"])
	}
	if data["file_name"] != "qrcode.png" {
		t.Errorf("expected qrcode.png, got %v", data["file_name"])
	}
}

func TestBookingHandler_Commit_PNG(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{bookResult: bookingResult()})

	w := serveBooking(h, "POST", "/booking/draft/commit?format=png", nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("unexpected content type: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "qrcode.png") {
		t.Errorf("unexpected Content-Disposition: %s", cd)
	}
	if !bytes.Equal(w.Body.Bytes(), []byte{0x89, 'P', 'N', 'G'}) {
		t.Error("expected raw png body")
	}
}

func TestBookingHandler_Commit_SideEffect(t *testing.T) {
	res := bookingResult()
	res.PNG = nil
	h := NewBookingHandler(&mockBookingService{
		bookResult: res,
		bookErr:    pkgerrors.NewSideEffect(5, "qrcode", errors.New("font missing")),
	})

	w := serveBooking(h, "POST", "/booking/draft/commit", nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 50010 {
		t.Errorf("expected code 50010, got %d", resp.Code)
	}
	if id := dataMap(t, resp)["id"]; id != float64(5) {
		t.Errorf("expected saved appointment 5 in data, got %v", id)
	}
}

func TestBookingHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"FirstStep", booking.ErrFirstStep, 400, 30001},
		{"Inactive", booking.ErrInactiveAccount, 403, 30002},
		{"TimeRequired", booking.ErrTimeRequired, 400, 30003},
		{"DateUnavailable", fmt.Errorf("%w: sunday", service.ErrDateUnavailable), 400, 30004},
		{"TimeFull", service.ErrTimeUnavailable, 409, 30005},
		{"UnknownTime", service.ErrUnknownTime, 400, 30006},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBookingHandler(&mockBookingService{draftErr: tt.err})

			w := serveBooking(h, "POST", "/booking/draft/back", nil)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestBookingHandler_Book_Validation(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{bookResult: bookingResult()})

	w := serveBooking(h, "POST", "/booking", jsonBody(map[string]interface{}{
		"reasons":    []string{},
		"section_id": 1,
		"date":       "2026-10-20",
		"time":       "8 AM - 10 AM",
	}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty reasons, got %d", w.Code)
	}
}

func TestBookingHandler_QRCode(t *testing.T) {
	h := NewBookingHandler(&mockBookingService{qrResult: bookingResult()})

	w := serveBooking(h, "GET", "/booking/appointments/5/qrcode", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("unexpected content type: %s", ct)
	}

	h = NewBookingHandler(&mockBookingService{qrErr: service.ErrAppointmentNotFound})
	w = serveBooking(h, "GET", "/booking/appointments/5/qrcode", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AppointmentHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAppointmentHandler_List_BindsFilters(t *testing.T) {
	mock := &mockAppointmentService{listResult: &table.View{Items: []table.Item{}}}
	h := NewAppointmentHandler(mock, &mockQueue{})

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/appointments?date=2026-10-19&status=pending&search=gc-48", nil)

	r := gin.New()
	r.GET("/appointments", h.List)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.listReq.Date != "2026-10-19" || mock.listReq.Status != "pending" || mock.listReq.Search[0] != "gc-48" {
		t.Errorf("unexpected request %+v", mock.listReq)
	}
}

func TestAppointmentHandler_List_RejectsUnknownStatus(t *testing.T) {
	h := NewAppointmentHandler(&mockAppointmentService{}, &mockQueue{})

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/appointments?status=archived", nil)

	r := gin.New()
	r.GET("/appointments", h.List)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAppointmentHandler_Scan(t *testing.T) {
	mock := &mockAppointmentService{apptResult: &dto.AppointmentResponse{ID: 3, QRCode: "AB12CD"}}
	h := NewAppointmentHandler(mock, &mockQueue{})

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/appointments/scan/ab12cd", nil)

	r := gin.New()
	r.GET("/appointments/scan/:code", h.Scan)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.scanCode != "ab12cd" {
		t.Errorf("expected raw code passed through, got %q", mock.scanCode)
	}
}

func TestAppointmentHandler_ChangeStatus_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"NotFound", service.ErrAppointmentNotFound, 404, 31001},
		{"Closed", service.ErrAppointmentClosed, 409, 31002},
		{"InvalidStatus", service.ErrInvalidStatus, 400, 31004},
		{"ReturnDate", service.ErrReturnDateRequired, 400, 31005},
		{"DateUnavailable", service.ErrDateUnavailable, 400, 30004},
		{"TimeFull", service.ErrTimeUnavailable, 409, 30005},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAppointmentHandler(&mockAppointmentService{apptErr: tt.err}, &mockQueue{})

			_, _, w := setupGin()
			req := httptest.NewRequest("PUT", "/appointments/1/status", jsonBody(dto.StatusChangeRequest{Status: "return"}))
			req.Header.Set("Content-Type", "application/json")

			r := gin.New()
			r.PUT("/appointments/:id/status", func(c *gin.Context) {
				setAuth(c)
				h.ChangeStatus(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestAppointmentHandler_Cursor(t *testing.T) {
	mock := &mockAppointmentService{cursorErr: fmt.Errorf("%w %q", table.ErrUnsupportedKey, "Enter")}
	h := NewAppointmentHandler(mock, &mockQueue{})

	r := gin.New()
	r.Use(func(c *gin.Context) { setAuthAs(c, 2, model.RoleAdmin) })
	r.POST("/appointments/cursor", h.Cursor)
	r.DELETE("/appointments/cursor", h.ReleaseCursor)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/appointments/cursor", jsonBody(dto.CursorRequest{Key: "Enter"}))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 31007 {
		t.Errorf("expected code 31007, got %d", resp.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/appointments/cursor", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.released != 2 {
		t.Errorf("expected cursor of user 2 released, got %d", mock.released)
	}
}

func TestAppointmentHandler_Queue(t *testing.T) {
	q := &mockQueue{result: &dto.QueueResponse{Date: "2026-10-19", Total: 1, Groups: []dto.QueueGroup{{Time: "8 AM - 10 AM", Count: 1}}}}
	h := NewAppointmentHandler(&mockAppointmentService{}, q)

	_, _, w := setupGin()
	r := gin.New()
	r.GET("/queue", h.Queue)
	r.ServeHTTP(w, httptest.NewRequest("GET", "/queue", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if total := dataMap(t, parseResponse(w))["total"]; total != float64(1) {
		t.Errorf("expected total 1, got %v", total)
	}
}

func TestAppointmentHandler_Cancel_NotPending(t *testing.T) {
	h := NewAppointmentHandler(&mockAppointmentService{apptErr: service.ErrAppointmentNotPending}, &mockQueue{})

	_, _, w := setupGin()
	r := gin.New()
	r.POST("/appointments/mine/:id/cancel", func(c *gin.Context) {
		setAuthAs(c, 7, model.RoleStudent)
		h.Cancel(c)
	})
	r.ServeHTTP(w, httptest.NewRequest("POST", "/appointments/mine/4/cancel", nil))

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 31003 {
		t.Errorf("expected code 31003, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ReportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestReportHandler_Export(t *testing.T) {
	h := NewReportHandler(&mockReportService{
		buf:      bytes.NewBufferString("xlsx content"),
		filename: "appointments_2026-10-01_2026-10-31.xlsx",
	})

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/reports/appointments/export?from=2026-10-01&to=2026-10-31", nil)

	r := gin.New()
	r.GET("/reports/appointments/export", h.Export)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "appointments_2026-10-01_2026-10-31.xlsx") {
		t.Errorf("unexpected Content-Disposition: %s", cd)
	}
}

func TestReportHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"MissingFrom", "?to=2026-10-31", nil, 400, 10001},
		{"InvalidRange", "?from=2026-11-01&to=2026-10-31", service.ErrInvalidRange, 400, 40001},
		{"InvalidStatus", "?from=2026-10-01&to=2026-10-31&status=x", service.ErrInvalidStatus, 400, 31004},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewReportHandler(&mockReportService{err: tt.err})

			_, _, w := setupGin()
			r := gin.New()
			r.GET("/reports/appointments", h.Report)
			r.ServeHTTP(w, httptest.NewRequest("GET", "/reports/appointments"+tt.query, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// RealtimeHandler Tests
// ═══════════════════════════════════════════════════════════

func appointmentEvent(t *testing.T, id, studentID uint) realtime.Event {
	t.Helper()
	ev, err := realtime.NewEvent(realtime.TableAppointments, realtime.EventInsert,
		map[string]uint{"id": id, "student_id": studentID}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return ev
}

func streamBody(t *testing.T, h *RealtimeHandler, userID uint, role model.Role, table string) string {
	t.Helper()
	r := gin.New()
	r.GET("/realtime/:table", func(c *gin.Context) {
		setAuthAs(c, userID, role)
		h.Stream(c)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/realtime/" + table)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("unexpected content type: %s", ct)
	}
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func TestRealtimeHandler_Stream_Staff(t *testing.T) {
	h := NewRealtimeHandler(&mockRealtimeService{events: []realtime.Event{
		appointmentEvent(t, 1, 7),
		appointmentEvent(t, 2, 8),
	}})

	body := streamBody(t, h, 1, model.RoleAdmin, realtime.TableAppointments)

	if strings.Count(body, "event:change") != 2 {
		t.Errorf("expected 2 change events, got body %q", body)
	}
}

func TestRealtimeHandler_Stream_StudentSeesOwnRows(t *testing.T) {
	h := NewRealtimeHandler(&mockRealtimeService{events: []realtime.Event{
		appointmentEvent(t, 1, 7),
		appointmentEvent(t, 2, 8),
	}})

	body := streamBody(t, h, 7, model.RoleStudent, realtime.TableAppointments)

	if strings.Count(body, "event:change") != 1 {
		t.Fatalf("expected 1 change event, got body %q", body)
	}
	if !strings.Contains(body, `"student_id":7`) || strings.Contains(body, `"student_id":8`) {
		t.Errorf("unexpected rows in body %q", body)
	}
}

func TestRealtimeHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		role       model.Role
		table      string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"UnknownTable", model.RoleAdmin, "auth_identities", service.ErrUnknownTable, 404, 41001},
		{"StudentUsers", model.RoleStudent, realtime.TableUsers, nil, 403, 10003},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRealtimeHandler(&mockRealtimeService{err: tt.err})

			_, _, w := setupGin()
			r := gin.New()
			r.GET("/realtime/:table", func(c *gin.Context) {
				setAuthAs(c, 7, tt.role)
				h.Stream(c)
			})
			r.ServeHTTP(w, httptest.NewRequest("GET", "/realtime/"+tt.table, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestOwnedBy(t *testing.T) {
	del := realtime.Event{Table: realtime.TableAppointments, Type: realtime.EventDelete, Old: json.RawMessage(`{"id":3,"student_id":7}`)}
	if !ownedBy(del, 7) {
		t.Error("expected delete event owned through old row")
	}
	if ownedBy(del, 8) {
		t.Error("expected delete event not owned by another student")
	}
	if ownedBy(realtime.Event{Table: realtime.TableAppointments}, 7) {
		t.Error("expected empty event not owned")
	}
}

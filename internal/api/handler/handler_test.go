package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bukulele/beontrack-portal-sub001/internal/board"
	"github.com/bukulele/beontrack-portal-sub001/internal/dto"
	"github.com/bukulele/beontrack-portal-sub001/internal/hos"
	"github.com/bukulele/beontrack-portal-sub001/internal/model"
	"github.com/bukulele/beontrack-portal-sub001/internal/service"
	pkgerrors "github.com/bukulele/beontrack-portal-sub001/pkg/errors"
	"github.com/bukulele/beontrack-portal-sub001/pkg/response"
)

const testDriverID = "6f1c2b9e-4a7d-4d2e-9c1b-2f0e8a7b3c11"
const testTruckID = "0b8e3a52-91d4-4c6a-8f2e-7d5c4b3a2f10"

func init() {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock DriverService ──

type mockDriverService struct {
	listResult     []dto.DriverResponse
	listErr        error
	lastList       *dto.ListDriversRequest
	schedules      []dto.DriverScheduleResponse
	scheduleResult *dto.DriverScheduleResponse
	scheduleErr    error
	driverResult   *dto.DriverResponse
	driverErr      error
}

func (m *mockDriverService) ListAvailable(_ context.Context, req *dto.ListDriversRequest) ([]dto.DriverResponse, error) {
	m.lastList = req
	return m.listResult, m.listErr
}
func (m *mockDriverService) GetSchedules(_ context.Context) ([]dto.DriverScheduleResponse, error) {
	return m.schedules, nil
}
func (m *mockDriverService) UpdateSchedule(_ context.Context, _ string, _ *dto.UpdateScheduleRequest) (*dto.DriverScheduleResponse, error) {
	return m.scheduleResult, m.scheduleErr
}
func (m *mockDriverService) UpdateNightDriver(_ context.Context, _ string, _ *dto.UpdateDriverRequest) (*dto.DriverResponse, error) {
	return m.driverResult, m.driverErr
}

// ── Mock ShiftService ──

type mockShiftService struct {
	shiftResult  *dto.ShiftResponse
	shiftErr     error
	lastStop     *dto.StopShiftRequest
	records      []dto.AttendanceResponse
	recordResult *dto.AttendanceResponse
	recordErr    error
	deleteErr    error
}

func (m *mockShiftService) Start(_ context.Context, _ string) (*dto.ShiftResponse, error) {
	return m.shiftResult, m.shiftErr
}
func (m *mockShiftService) Stop(_ context.Context, _ string, req *dto.StopShiftRequest) (*dto.ShiftResponse, error) {
	m.lastStop = req
	return m.shiftResult, m.shiftErr
}
func (m *mockShiftService) CancelStop(_ context.Context, _ string) (*dto.ShiftResponse, error) {
	return m.shiftResult, m.shiftErr
}
func (m *mockShiftService) ListAttendance(_ context.Context, _ *dto.ListAttendanceRequest) ([]dto.AttendanceResponse, error) {
	return m.records, m.recordErr
}
func (m *mockShiftService) CreateAttendance(_ context.Context, _ *dto.CreateAttendanceRequest) (*dto.AttendanceResponse, error) {
	return m.recordResult, m.recordErr
}
func (m *mockShiftService) UpdateAttendance(_ context.Context, _ string, _ *dto.UpdateAttendanceRequest) (*dto.AttendanceResponse, error) {
	return m.recordResult, m.recordErr
}
func (m *mockShiftService) DeleteAttendance(_ context.Context, _ string) error {
	return m.deleteErr
}

// ── Mock TruckService ──

type mockTruckService struct {
	trucks           []dto.TruckResponse
	assignmentResult *dto.TruckAssignmentResponse
	assignmentErr    error
	swapResult       *dto.SwapResponse
	swapErr          error
}

func (m *mockTruckService) ListActive(_ context.Context) ([]dto.TruckResponse, error) {
	return m.trucks, nil
}
func (m *mockTruckService) ListAvailable(_ context.Context) ([]dto.TruckResponse, error) {
	return m.trucks, nil
}
func (m *mockTruckService) Assign(_ context.Context, _ *dto.AssignTruckRequest) (*dto.TruckAssignmentResponse, error) {
	return m.assignmentResult, m.assignmentErr
}
func (m *mockTruckService) Swap(_ context.Context, _ *dto.AssignTruckRequest) (*dto.SwapResponse, error) {
	return m.swapResult, m.swapErr
}
func (m *mockTruckService) ResumeSwap(_ context.Context, _ string) (*dto.SwapResponse, error) {
	return m.swapResult, m.swapErr
}
func (m *mockTruckService) Clear(_ context.Context, _ string) (*dto.TruckAssignmentResponse, error) {
	return m.assignmentResult, m.assignmentErr
}
func (m *mockTruckService) CloseForShiftEnd(_ context.Context, _ *model.AttendanceRecord) error {
	return nil
}
func (m *mockTruckService) HealDangling(_ context.Context) (int, error) {
	return 0, nil
}

// ── Mock BoardService ──

type mockBoardService struct {
	boardResult *dto.BoardResponse
	boardErr    error
	refreshErr  error
	lastReq     *dto.BoardRequest
	refreshed   int
}

func (m *mockBoardService) Trigger()                    {}
func (m *mockBoardService) Run(_ context.Context) error { return nil }
func (m *mockBoardService) Refresh(_ context.Context) error {
	m.refreshed++
	return m.refreshErr
}
func (m *mockBoardService) Get(_ context.Context, req *dto.BoardRequest) (*dto.BoardResponse, error) {
	m.lastReq = req
	return m.boardResult, m.boardErr
}
func (m *mockBoardService) Current(_ context.Context) (*board.Snapshot, error) {
	return nil, m.boardErr
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportBoard(_ context.Context) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportDriverShifts(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// serve 注册单条路由并执行请求
func serve(method, pattern string, h gin.HandlerFunc, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r := gin.New()
	r.Handle(method, pattern, h)
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// DriverHandler Tests
// ═══════════════════════════════════════════════════════════

func TestDriverHandler_ListDrivers_Success(t *testing.T) {
	mock := &mockDriverService{listResult: []dto.DriverResponse{{ID: testDriverID, Name: "Alex"}}}
	h := NewDriverHandler(mock)

	w := serve("GET", "/drivers", h.ListDrivers, "/drivers?route=long_haul&terminal=Toronto", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastList == nil || mock.lastList.Route != "long_haul" || mock.lastList.Terminal != "Toronto" {
		t.Errorf("unexpected filter: %+v", mock.lastList)
	}
}

func TestDriverHandler_ListDrivers_InvalidRoute(t *testing.T) {
	h := NewDriverHandler(&mockDriverService{})

	w := serve("GET", "/drivers", h.ListDrivers, "/drivers?route=moon", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10001 {
		t.Errorf("expected error code 10001, got %d", resp.Code)
	}
}

func TestDriverHandler_UpdateSchedule_InvalidID(t *testing.T) {
	h := NewDriverHandler(&mockDriverService{})

	w := serve("PUT", "/drivers/:id/schedule", h.UpdateSchedule, "/drivers/not-a-uuid/schedule", jsonBody(gin.H{}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDriverHandler_UpdateSchedule_NotFound(t *testing.T) {
	h := NewDriverHandler(&mockDriverService{scheduleErr: service.ErrDriverNotFound})

	w := serve("PUT", "/drivers/:id/schedule", h.UpdateSchedule, "/drivers/"+testDriverID+"/schedule",
		jsonBody(dto.UpdateScheduleRequest{Days: &dto.ScheduleDays{Monday: true}}))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 22001 {
		t.Errorf("expected error code 22001, got %d", resp.Code)
	}
}

func TestDriverHandler_UpdateDriver_MissingFlag(t *testing.T) {
	h := NewDriverHandler(&mockDriverService{})

	w := serve("PATCH", "/drivers/:id", h.UpdateDriver, "/drivers/"+testDriverID, jsonBody(gin.H{}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ShiftHandler Tests
// ═══════════════════════════════════════════════════════════

func TestShiftHandler_Start_Success(t *testing.T) {
	mock := &mockShiftService{shiftResult: &dto.ShiftResponse{DriverID: testDriverID, State: "on_shift"}}
	h := NewShiftHandler(mock)

	w := serve("POST", "/shifts/:driver_id/start", h.StartShift, "/shifts/"+testDriverID+"/start", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestShiftHandler_Start_Unavailable(t *testing.T) {
	available := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	mock := &mockShiftService{shiftErr: &service.UnavailableError{
		Reason: "Rest period in progress!",
		Availability: hos.Result{
			Disabled:          true,
			Reason:            "Rest period in progress!",
			RequiredRestHours: 10,
			AvailableAt:       &available,
		},
	}}
	h := NewShiftHandler(mock)

	w := serve("POST", "/shifts/:driver_id/start", h.StartShift, "/shifts/"+testDriverID+"/start", nil)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 20001 || resp.Message != "Rest period in progress!" {
		t.Errorf("unexpected response: %+v", resp)
	}
	data, _ := resp.Data.(map[string]interface{})
	if data["available_at"] != "2025-06-03T12:00:00Z" {
		t.Errorf("expected available_at in response data, got %v", data["available_at"])
	}
}

func TestShiftHandler_Stop_NeedsConfirmation(t *testing.T) {
	mock := &mockShiftService{shiftErr: &service.ConfirmationRequiredError{
		Message:           "Ending this shift makes the driver unavailable for 10 hours (until Tue Jun 3 02:00).",
		RequiredRestHours: 10,
		AvailableAt:       time.Date(2025, 6, 3, 2, 0, 0, 0, time.UTC),
	}}
	h := NewShiftHandler(mock)

	w := serve("POST", "/shifts/:driver_id/stop", h.StopShift, "/shifts/"+testDriverID+"/stop", nil)

	if w.Code != http.StatusPreconditionRequired {
		t.Fatalf("expected 428, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 20002 {
		t.Errorf("expected error code 20002, got %d", resp.Code)
	}
	data, _ := resp.Data.(map[string]interface{})
	if data["required_rest_hours"] != float64(10) {
		t.Errorf("expected required_rest_hours 10, got %v", data["required_rest_hours"])
	}
	if mock.lastStop == nil || mock.lastStop.Confirmed {
		t.Errorf("expected unconfirmed stop request, got %+v", mock.lastStop)
	}
}

func TestShiftHandler_Stop_Confirmed(t *testing.T) {
	mock := &mockShiftService{shiftResult: &dto.ShiftResponse{DriverID: testDriverID, State: "off_shift"}}
	h := NewShiftHandler(mock)

	w := serve("POST", "/shifts/:driver_id/stop", h.StopShift, "/shifts/"+testDriverID+"/stop",
		jsonBody(dto.StopShiftRequest{Confirmed: true}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastStop == nil || !mock.lastStop.Confirmed {
		t.Error("expected confirmed flag to reach the service")
	}
}

func TestShiftHandler_Stop_NotOnShift(t *testing.T) {
	h := NewShiftHandler(&mockShiftService{shiftErr: hos.ErrNotOnShift})

	w := serve("POST", "/shifts/:driver_id/stop", h.StopShift, "/shifts/"+testDriverID+"/stop", nil)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20003 {
		t.Errorf("expected error code 20003, got %d", resp.Code)
	}
}

func TestShiftHandler_UpdateAttendance_Conflict(t *testing.T) {
	h := NewShiftHandler(&mockShiftService{recordErr: pkgerrors.ErrOptimisticLock})

	in := "2025-06-02T08:00:00Z"
	w := serve("PATCH", "/attendance/:id", h.UpdateAttendance, "/attendance/"+testDriverID,
		jsonBody(dto.UpdateAttendanceRequest{CheckInTime: &in}))

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20006 {
		t.Errorf("expected error code 20006, got %d", resp.Code)
	}
}

func TestShiftHandler_UpdateAttendance_ClearedDeletes(t *testing.T) {
	h := NewShiftHandler(&mockShiftService{})

	empty := ""
	w := serve("PATCH", "/attendance/:id", h.UpdateAttendance, "/attendance/"+testDriverID,
		jsonBody(dto.UpdateAttendanceRequest{CheckInTime: &empty, CheckOutTime: &empty}))

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
}

func TestShiftHandler_CreateAttendance_InvalidTimes(t *testing.T) {
	h := NewShiftHandler(&mockShiftService{recordErr: service.ErrInvalidShiftTimes})

	w := serve("POST", "/attendance", h.CreateAttendance, "/attendance", jsonBody(gin.H{
		"driver_id":      testDriverID,
		"check_in_time":  "2025-06-02T08:00:00Z",
		"check_out_time": "2025-06-02T07:00:00Z",
	}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20008 {
		t.Errorf("expected error code 20008, got %d", resp.Code)
	}
}

func TestShiftHandler_DeleteAttendance_NotFound(t *testing.T) {
	h := NewShiftHandler(&mockShiftService{deleteErr: service.ErrAttendanceNotFound})

	w := serve("DELETE", "/attendance/:id", h.DeleteAttendance, "/attendance/"+testDriverID, nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// TruckHandler Tests
// ═══════════════════════════════════════════════════════════

func TestTruckHandler_Assign_Success(t *testing.T) {
	mock := &mockTruckService{assignmentResult: &dto.TruckAssignmentResponse{TruckID: testTruckID, UnitNumber: "101"}}
	h := NewTruckHandler(mock)

	w := serve("POST", "/trucks/assign", h.Assign, "/trucks/assign",
		jsonBody(dto.AssignTruckRequest{DriverID: testDriverID, TruckID: testTruckID}))

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestTruckHandler_Assign_NoTruckSelected(t *testing.T) {
	h := NewTruckHandler(&mockTruckService{assignmentErr: service.ErrTruckNotSelected})

	w := serve("POST", "/trucks/assign", h.Assign, "/trucks/assign",
		jsonBody(dto.AssignTruckRequest{DriverID: testDriverID}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 21001 {
		t.Errorf("expected error code 21001, got %d", resp.Code)
	}
}

func TestTruckHandler_Swap_Partial(t *testing.T) {
	mock := &mockTruckService{swapResult: &dto.SwapResponse{Status: service.SwapStatusPartial}}
	h := NewTruckHandler(mock)

	w := serve("POST", "/trucks/swap", h.Swap, "/trucks/swap",
		jsonBody(dto.AssignTruckRequest{DriverID: testDriverID, TruckID: testTruckID}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data, _ := parseResponse(w).Data.(map[string]interface{})
	if data["status"] != service.SwapStatusPartial {
		t.Errorf("expected partial status, got %v", data["status"])
	}
}

func TestTruckHandler_Swap_CloseFailed(t *testing.T) {
	h := NewTruckHandler(&mockTruckService{swapErr: hos.ErrSwapCloseFailed})

	w := serve("POST", "/trucks/swap", h.Swap, "/trucks/swap",
		jsonBody(dto.AssignTruckRequest{DriverID: testDriverID, TruckID: testTruckID}))

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestTruckHandler_ResumeSwap_NothingPending(t *testing.T) {
	h := NewTruckHandler(&mockTruckService{swapErr: service.ErrNoSwapInProgress})

	w := serve("POST", "/trucks/swap/resume", h.ResumeSwap, "/trucks/swap/resume",
		jsonBody(dto.DriverTruckRequest{DriverID: testDriverID}))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
}

func TestTruckHandler_Clear_MissingDriver(t *testing.T) {
	h := NewTruckHandler(&mockTruckService{})

	w := serve("POST", "/trucks/clear", h.Clear, "/trucks/clear", jsonBody(gin.H{}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// BoardHandler Tests
// ═══════════════════════════════════════════════════════════

func TestBoardHandler_GetBoard_Filters(t *testing.T) {
	mock := &mockBoardService{boardResult: &dto.BoardResponse{BuiltAt: "2025-06-02T08:00:00Z"}}
	h := NewBoardHandler(mock)

	w := serve("GET", "/board", h.GetBoard, "/board?terminal=Calgary&route=city&refresh=true", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastReq == nil || mock.lastReq.Terminal != "Calgary" || mock.lastReq.Route != "city" || !mock.lastReq.Refresh {
		t.Errorf("unexpected board request: %+v", mock.lastReq)
	}
}

func TestBoardHandler_GetBoard_Unavailable(t *testing.T) {
	h := NewBoardHandler(&mockBoardService{boardErr: service.ErrBoardUnavailable})

	w := serve("GET", "/board", h.GetBoard, "/board", nil)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 23001 {
		t.Errorf("expected error code 23001, got %d", resp.Code)
	}
}

func TestBoardHandler_RefreshBoard(t *testing.T) {
	mock := &mockBoardService{boardResult: &dto.BoardResponse{}}
	h := NewBoardHandler(mock)

	w := serve("POST", "/board/refresh", h.RefreshBoard, "/board/refresh", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.refreshed != 1 {
		t.Errorf("expected one refresh, got %d", mock.refreshed)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportBoard(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("xlsx"), filename: "driver_hours_20250602_0800.xlsx"}
	h := NewExportHandler(mock)

	w := serve("GET", "/export/board", h.ExportBoard, "/export/board", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeXLSX {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "driver_hours_20250602_0800.xlsx") {
		t.Errorf("unexpected content disposition %q", cd)
	}
}

func TestExportHandler_ExportDriverShifts_NotFound(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrDriverNotFound})

	w := serve("GET", "/drivers/:id/shifts.ics", h.ExportDriverShifts, "/drivers/"+testDriverID+"/shifts.ics", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestShiftHandler_Stop_ChunkedBodyConfirmed(t *testing.T) {
	mock := &mockShiftService{shiftResult: &dto.ShiftResponse{DriverID: testDriverID, State: "off"}}
	h := NewShiftHandler(mock)

	req := httptest.NewRequest("POST", "/shifts/"+testDriverID+"/stop", strings.NewReader(`{"confirmed":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}

	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/shifts/:driver_id/stop", h.StopShift)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastStop == nil || !mock.lastStop.Confirmed {
		t.Error("expected confirmed flag from chunked body")
	}
}

func TestShiftHandler_Stop_EmptyJSONBodyIsUnconfirmed(t *testing.T) {
	mock := &mockShiftService{shiftResult: &dto.ShiftResponse{DriverID: testDriverID}}
	h := NewShiftHandler(mock)

	w := serve("POST", "/shifts/:driver_id/stop", h.StopShift, "/shifts/"+testDriverID+"/stop", strings.NewReader(""))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastStop == nil || mock.lastStop.Confirmed {
		t.Errorf("expected unconfirmed stop request, got %+v", mock.lastStop)
	}
}

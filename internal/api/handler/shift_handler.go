package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bukulele/beontrack-portal-sub001/internal/dto"
	"github.com/bukulele/beontrack-portal-sub001/internal/hos"
	"github.com/bukulele/beontrack-portal-sub001/internal/service"
	pkgerrors "github.com/bukulele/beontrack-portal-sub001/pkg/errors"
	"github.com/bukulele/beontrack-portal-sub001/pkg/response"
)

// ShiftHandler 班次与出勤模块 HTTP 处理器
type ShiftHandler struct {
	shiftSvc service.ShiftService
}

// NewShiftHandler 创建 ShiftHandler
func NewShiftHandler(shiftSvc service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shiftSvc: shiftSvc}
}

// ── 班次状态迁移 ──

// StartShift 上班
// POST /api/v1/shifts/:driver_id/start
func (h *ShiftHandler) StartShift(c *gin.Context) {
	driverID, ok := MustGetUUIDParam(c, "driver_id")
	if !ok {
		return
	}

	shift, err := h.shiftSvc.Start(c.Request.Context(), driverID)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, shift)
}

// StopShift 下班；未确认时返回 428 与确认提示
// POST /api/v1/shifts/:driver_id/stop
func (h *ShiftHandler) StopShift(c *gin.Context) {
	driverID, ok := MustGetUUIDParam(c, "driver_id")
	if !ok {
		return
	}

	// 请求体可省略（视为未确认）；分块传输时 ContentLength 为 -1，不能据此判断
	var req dto.StopShiftRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	shift, err := h.shiftSvc.Stop(c.Request.Context(), driverID, &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, shift)
}

// CancelStop 取消待确认的下班
// POST /api/v1/shifts/:driver_id/cancel-stop
func (h *ShiftHandler) CancelStop(c *gin.Context) {
	driverID, ok := MustGetUUIDParam(c, "driver_id")
	if !ok {
		return
	}

	shift, err := h.shiftSvc.CancelStop(c.Request.Context(), driverID)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, shift)
}

// ── 出勤记录 ──

// ListAttendance 查询出勤记录
// GET /api/v1/attendance?driver_id=&from=&to=
func (h *ShiftHandler) ListAttendance(c *gin.Context) {
	var req dto.ListAttendanceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	records, err := h.shiftSvc.ListAttendance(c.Request.Context(), &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, gin.H{"list": records})
}

// CreateAttendance 补录出勤
// POST /api/v1/attendance
func (h *ShiftHandler) CreateAttendance(c *gin.Context) {
	var req dto.CreateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	record, err := h.shiftSvc.CreateAttendance(c.Request.Context(), &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.Created(c, record)
}

// UpdateAttendance 修正出勤时间；上下班时间均清除时删除记录
// PATCH /api/v1/attendance/:id
func (h *ShiftHandler) UpdateAttendance(c *gin.Context) {
	id, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	record, err := h.shiftSvc.UpdateAttendance(c.Request.Context(), id, &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}
	if record == nil {
		response.NoContent(c)
		return
	}

	response.OK(c, record)
}

// DeleteAttendance 删除出勤记录
// DELETE /api/v1/attendance/:id
func (h *ShiftHandler) DeleteAttendance(c *gin.Context) {
	id, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.shiftSvc.DeleteAttendance(c.Request.Context(), id); err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.NoContent(c)
}

// handleShiftError 统一处理班次模块业务错误
func (h *ShiftHandler) handleShiftError(c *gin.Context, err error) {
	var unavailable *service.UnavailableError
	var confirm *service.ConfirmationRequiredError

	switch {
	case errors.As(err, &unavailable):
		response.ErrorWithData(c, http.StatusUnprocessableEntity, 20001, unavailable.Reason, gin.H{
			"reason":              unavailable.Reason,
			"required_rest_hours": unavailable.Availability.RequiredRestHours,
			"timer_label":         unavailable.Availability.TimerLabel,
			"available_at":        formatOptional(unavailable.Availability.AvailableAt),
		})
	case errors.As(err, &confirm):
		at := confirm.AvailableAt.UTC().Format(time.RFC3339)
		response.ErrorWithData(c, http.StatusPreconditionRequired, 20002, confirm.Message, dto.StopConfirmationResponse{
			Message:           confirm.Message,
			RequiredRestHours: confirm.RequiredRestHours,
			AvailableAt:       &at,
		})
	case errors.Is(err, hos.ErrNotOnShift):
		response.Unprocessable(c, 20003, "司机当前不在班")
	case errors.Is(err, service.ErrAttendanceNotFound):
		response.NotFound(c, 20004, "出勤记录不存在")
	case errors.Is(err, pkgerrors.ErrShiftAlreadyOpen):
		response.Conflict(c, 20005, "该司机已有进行中的班次")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 20006, "数据已被其他操作修改，请刷新后重试")
	case errors.Is(err, service.ErrCheckInRequired):
		response.BadRequest(c, 20007, "上班时间不能为空")
	case errors.Is(err, service.ErrInvalidShiftTimes):
		response.BadRequest(c, 20008, "下班时间不能早于上班时间")
	case errors.Is(err, service.ErrInvalidTimeFormat):
		response.BadRequest(c, 20009, "时间格式无效，应为 RFC3339")
	case errors.Is(err, service.ErrCheckInInFuture):
		response.BadRequest(c, 20010, "上班时间不能晚于当前时间")
	case errors.Is(err, service.ErrDriverNotFound):
		response.NotFound(c, 22001, "司机不存在")
	default:
		response.InternalError(c)
	}
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

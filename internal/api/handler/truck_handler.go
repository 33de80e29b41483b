package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bukulele/beontrack-portal-sub001/internal/dto"
	"github.com/bukulele/beontrack-portal-sub001/internal/hos"
	"github.com/bukulele/beontrack-portal-sub001/internal/service"
	"github.com/bukulele/beontrack-portal-sub001/pkg/response"
)

// TruckHandler 车辆与派车模块 HTTP 处理器
type TruckHandler struct {
	truckSvc service.TruckService
}

// NewTruckHandler 创建 TruckHandler
func NewTruckHandler(truckSvc service.TruckService) *TruckHandler {
	return &TruckHandler{truckSvc: truckSvc}
}

// ListActive 在用车辆
// GET /api/v1/trucks/active
func (h *TruckHandler) ListActive(c *gin.Context) {
	trucks, err := h.truckSvc.ListActive(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": trucks})
}

// ListAvailable 可派车辆
// GET /api/v1/trucks/available
func (h *TruckHandler) ListAvailable(c *gin.Context) {
	trucks, err := h.truckSvc.ListAvailable(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": trucks})
}

// Assign 派车
// POST /api/v1/trucks/assign
func (h *TruckHandler) Assign(c *gin.Context) {
	var req dto.AssignTruckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	assignment, err := h.truckSvc.Assign(c.Request.Context(), &req)
	if err != nil {
		h.handleTruckError(c, err)
		return
	}

	response.Created(c, assignment)
}

// Swap 换车；status=partial 时旧车已还、新车未派
// POST /api/v1/trucks/swap
func (h *TruckHandler) Swap(c *gin.Context) {
	var req dto.AssignTruckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.truckSvc.Swap(c.Request.Context(), &req)
	if err != nil {
		h.handleTruckError(c, err)
		return
	}

	response.OK(c, result)
}

// ResumeSwap 从记录的步骤继续换车
// POST /api/v1/trucks/swap/resume
func (h *TruckHandler) ResumeSwap(c *gin.Context) {
	var req dto.DriverTruckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.truckSvc.ResumeSwap(c.Request.Context(), req.DriverID)
	if err != nil {
		h.handleTruckError(c, err)
		return
	}

	response.OK(c, result)
}

// Clear 收车（不替换）
// POST /api/v1/trucks/clear
func (h *TruckHandler) Clear(c *gin.Context) {
	var req dto.DriverTruckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	assignment, err := h.truckSvc.Clear(c.Request.Context(), req.DriverID)
	if err != nil {
		h.handleTruckError(c, err)
		return
	}

	response.OK(c, assignment)
}

// handleTruckError 统一处理派车模块业务错误
func (h *TruckHandler) handleTruckError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTruckNotSelected):
		response.BadRequest(c, 21001, "请先选择车辆")
	case errors.Is(err, service.ErrShiftNotOpen):
		response.Unprocessable(c, 21002, "司机未在班，不能派车")
	case errors.Is(err, service.ErrTruckAlreadyAssigned):
		response.Conflict(c, 21003, "司机当前已有车辆，请使用换车")
	case errors.Is(err, service.ErrTruckUnavailable):
		response.Conflict(c, 21004, "所选车辆不可用")
	case errors.Is(err, service.ErrNoActiveTruck):
		response.Unprocessable(c, 21005, "司机当前没有在用车辆")
	case errors.Is(err, service.ErrSameTruck):
		response.BadRequest(c, 21006, "新车辆与当前车辆相同")
	case errors.Is(err, service.ErrSwapInProgress):
		response.Conflict(c, 21007, "换车尚未完成，请继续换车或重新派车")
	case errors.Is(err, service.ErrNoSwapInProgress):
		response.Unprocessable(c, 21008, "没有待继续的换车")
	case errors.Is(err, hos.ErrSwapCloseFailed):
		response.ErrorWithDetails(c, 502, 21009, "归还当前车辆失败，请重试", err.Error())
	default:
		response.InternalError(c)
	}
}

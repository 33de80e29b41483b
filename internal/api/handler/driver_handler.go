package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bukulele/beontrack-portal-sub001/internal/dto"
	"github.com/bukulele/beontrack-portal-sub001/internal/service"
	"github.com/bukulele/beontrack-portal-sub001/pkg/response"
)

// DriverHandler 司机模块 HTTP 处理器
type DriverHandler struct {
	driverSvc service.DriverService
}

// NewDriverHandler 创建 DriverHandler
func NewDriverHandler(driverSvc service.DriverService) *DriverHandler {
	return &DriverHandler{driverSvc: driverSvc}
}

// ListDrivers 按线路 / 场站查询在职司机
// GET /api/v1/drivers?route=&terminal=
func (h *DriverHandler) ListDrivers(c *gin.Context) {
	var req dto.ListDriversRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	drivers, err := h.driverSvc.ListAvailable(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": drivers})
}

// GetSchedules 获取所有司机的周排班
// GET /api/v1/drivers/schedules
func (h *DriverHandler) GetSchedules(c *gin.Context) {
	schedules, err := h.driverSvc.GetSchedules(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": schedules})
}

// UpdateSchedule 更新司机周排班
// PUT /api/v1/drivers/:id/schedule
func (h *DriverHandler) UpdateSchedule(c *gin.Context) {
	id, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	schedule, err := h.driverSvc.UpdateSchedule(c.Request.Context(), id, &req)
	if err != nil {
		h.handleDriverError(c, err)
		return
	}

	response.OK(c, schedule)
}

// UpdateDriver 回写司机夜班标记
// PATCH /api/v1/drivers/:id
func (h *DriverHandler) UpdateDriver(c *gin.Context) {
	id, ok := MustGetUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	driver, err := h.driverSvc.UpdateNightDriver(c.Request.Context(), id, &req)
	if err != nil {
		h.handleDriverError(c, err)
		return
	}

	response.OK(c, driver)
}

// handleDriverError 统一处理司机模块业务错误
func (h *DriverHandler) handleDriverError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDriverNotFound):
		response.NotFound(c, 22001, "司机不存在")
	default:
		response.InternalError(c)
	}
}

package dto

import "time"

// ── 出勤 / 班次模块 DTO ──

// ListAttendanceRequest 出勤查询参数（RFC3339 时间）
type ListAttendanceRequest struct {
	DriverID string    `form:"driver_id" binding:"omitempty,uuid"`
	From     time.Time `form:"from"      time_format:"2006-01-02T15:04:05Z07:00"`
	To       time.Time `form:"to"        time_format:"2006-01-02T15:04:05Z07:00"`
}

// CreateAttendanceRequest 补录出勤
type CreateAttendanceRequest struct {
	DriverID     string     `json:"driver_id"      binding:"required,uuid"`
	CheckInTime  time.Time  `json:"check_in_time"  binding:"required"`
	CheckOutTime *time.Time `json:"check_out_time"`
}

// UpdateAttendanceRequest 修正出勤时间：字段缺省表示不变，空字符串表示清除。
// 上下班时间都被清除时删除该记录。
type UpdateAttendanceRequest struct {
	CheckInTime  *string `json:"check_in_time"`
	CheckOutTime *string `json:"check_out_time"`
}

// StopShiftRequest 下班请求；未确认时返回需确认的提示
type StopShiftRequest struct {
	Confirmed bool `json:"confirmed"`
}

// AttendanceResponse 出勤记录
type AttendanceResponse struct {
	ID               string                    `json:"id"`
	DriverID         string                    `json:"driver_id"`
	CheckInTime      *string                   `json:"check_in_time"`
	CheckOutTime     *string                   `json:"check_out_time"`
	Version          int                       `json:"version"`
	TruckAssignments []TruckAssignmentResponse `json:"truck_assignments"`
}

// ShiftResponse 班次状态迁移结果
type ShiftResponse struct {
	DriverID   string              `json:"driver_id"`
	State      string              `json:"state"`
	Attendance *AttendanceResponse `json:"attendance,omitempty"`
}

// StopConfirmationResponse 下班需确认时的提示信息
type StopConfirmationResponse struct {
	Message           string  `json:"message"`
	RequiredRestHours int     `json:"required_rest_hours"`
	AvailableAt       *string `json:"available_at,omitempty"`
}

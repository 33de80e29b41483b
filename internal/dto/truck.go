package dto

// ── 车辆 / 派车模块 DTO ──

// AssignTruckRequest 派车 / 换车请求
type AssignTruckRequest struct {
	DriverID string `json:"driver_id" binding:"required,uuid"`
	TruckID  string `json:"truck_id"  binding:"omitempty,uuid"`
}

// DriverTruckRequest 仅需司机的派车操作（收车、继续换车）
type DriverTruckRequest struct {
	DriverID string `json:"driver_id" binding:"required,uuid"`
}

// TruckResponse 车辆信息
type TruckResponse struct {
	ID          string `json:"id"`
	UnitNumber  string `json:"unit_number"`
	PlateNumber string `json:"plate_number"`
	Terminal    string `json:"terminal"`
}

// TruckAssignmentResponse 派车记录
type TruckAssignmentResponse struct {
	ID           string  `json:"id"`
	AttendanceID string  `json:"attendance_id"`
	TruckID      string  `json:"truck_id"`
	UnitNumber   string  `json:"unit_number,omitempty"`
	StartTime    *string `json:"truck_start_time"`
	EndTime      *string `json:"truck_end_time"`
}

// SwapResponse 换车结果；status 为 partial 表示旧车已还、新车未派
type SwapResponse struct {
	Status string            `json:"status"` // completed | partial
	Swap   *SwapSagaResponse `json:"swap"`
}

// SwapSagaResponse 换车流程进度
type SwapSagaResponse struct {
	ID                string  `json:"id"`
	FromTruckID       string  `json:"from_truck_id"`
	ToTruckID         string  `json:"to_truck_id"`
	LastCompletedStep string  `json:"last_completed_step"`
	AnchorTime        *string `json:"anchor_time,omitempty"`
	NewAssignmentID   string  `json:"new_assignment_id,omitempty"`
	LastError         string  `json:"last_error,omitempty"`
}

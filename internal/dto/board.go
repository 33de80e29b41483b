package dto

// ── 看板模块 DTO ──

// BoardRequest 看板查询参数；refresh=true 先强制刷新再返回
type BoardRequest struct {
	Terminal string `form:"terminal" binding:"omitempty,max=50"`
	Route    string `form:"route"    binding:"omitempty,route_tag"`
	Refresh  bool   `form:"refresh"`
}

// AvailabilityResponse 可上班判定
type AvailabilityResponse struct {
	Disabled          bool    `json:"disabled"`
	Reason            string  `json:"reason,omitempty"`
	RequiredRestHours int     `json:"required_rest_hours"`
	TimerKind         string  `json:"timer_kind"`
	TimerLabel        string  `json:"timer_label,omitempty"`
	TimerSeconds      int64   `json:"timer_seconds"`
	AvailableAt       *string `json:"available_at,omitempty"`
	OnShift           bool    `json:"on_shift"`
	CanStart          bool    `json:"can_start"`
	CanStop           bool    `json:"can_stop"`
}

// BoardRowResponse 看板单行
type BoardRowResponse struct {
	Driver           DriverResponse           `json:"driver"`
	Schedule         *ScheduleDays            `json:"schedule"`
	LastShift        *AttendanceResponse      `json:"last_shift,omitempty"`
	WorkingHoursWeek float64                  `json:"working_hours_week"`
	CurrentHours     float64                  `json:"current_hours"`
	CurrentTruck     *TruckAssignmentResponse `json:"current_truck,omitempty"`
	DanglingTruck    bool                     `json:"dangling_truck"`
	Availability     AvailabilityResponse     `json:"availability"`
	StopPending      bool                     `json:"stop_pending"`
	Swap             *SwapSagaResponse        `json:"swap,omitempty"`
}

// BoardResponse 看板
type BoardResponse struct {
	Rows            []BoardRowResponse `json:"rows"`
	ActiveTrucks    []TruckResponse    `json:"active_trucks"`
	AvailableTrucks []TruckResponse    `json:"available_trucks"`
	BuiltAt         string             `json:"built_at"`
	Stale           bool               `json:"stale"`
}

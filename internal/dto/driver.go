package dto

// ── 司机模块 DTO ──

// ListDriversRequest 在职司机查询参数
type ListDriversRequest struct {
	Route    string `form:"route"    binding:"omitempty,route_tag"`
	Terminal string `form:"terminal" binding:"omitempty,max=50"`
}

// ScheduleDays 周排班（周一至周日是否上班）
type ScheduleDays struct {
	Monday    bool `json:"monday"`
	Tuesday   bool `json:"tuesday"`
	Wednesday bool `json:"wednesday"`
	Thursday  bool `json:"thursday"`
	Friday    bool `json:"friday"`
	Saturday  bool `json:"saturday"`
	Sunday    bool `json:"sunday"`
}

// UpdateScheduleRequest 更新周排班请求；days 为 null 表示清除排班
type UpdateScheduleRequest struct {
	Days *ScheduleDays `json:"days"`
}

// UpdateDriverRequest 回写司机字段（仅夜班标记）
type UpdateDriverRequest struct {
	NightDriver *bool `json:"night_driver" binding:"required"`
}

// DriverResponse 司机信息
type DriverResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Terminal       string   `json:"terminal"`
	Routes         []string `json:"routes"`
	Compliant      bool     `json:"compliant"`
	ComplianceNote string   `json:"compliance_note,omitempty"`
	NightDriver    bool     `json:"night_driver"`
}

// DriverScheduleResponse 司机周排班；days 为空表示未设置
type DriverScheduleResponse struct {
	DriverID string        `json:"driver_id"`
	Days     *ScheduleDays `json:"days"`
}

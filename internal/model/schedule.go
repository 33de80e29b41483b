package model

import (
	"time"

	"gorm.io/datatypes"
)

// WeekDays 周排班：每天是否上班
type WeekDays struct {
	Monday    bool `json:"monday"`
	Tuesday   bool `json:"tuesday"`
	Wednesday bool `json:"wednesday"`
	Thursday  bool `json:"thursday"`
	Friday    bool `json:"friday"`
	Saturday  bool `json:"saturday"`
	Sunday    bool `json:"sunday"`
}

// Works 指定星期是否为工作日
func (w WeekDays) Works(day time.Weekday) bool {
	switch day {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	default:
		return w.Sunday
	}
}

// DriverSchedule 司机周排班表，对应 driver_schedules
// 无记录即视为"未设置排班"
type DriverSchedule struct {
	DriverID string                       `gorm:"type:uuid;primaryKey" json:"driver_id"`
	Days     datatypes.JSONType[WeekDays] `gorm:"type:jsonb;not null"  json:"days"`
	BaseModel
}

// TableName 指定表名
func (DriverSchedule) TableName() string { return "driver_schedules" }

// NewDriverSchedule 构造周排班记录
func NewDriverSchedule(driverID string, days WeekDays) *DriverSchedule {
	return &DriverSchedule{DriverID: driverID, Days: datatypes.NewJSONType(days)}
}

// WeekDays 返回排班明细
func (s *DriverSchedule) WeekDays() WeekDays {
	return s.Days.Data()
}

package model

import "time"

// AttendanceRecord 出勤（班次）表，对应 attendance_records
// check_out_time 为空表示班次进行中；同一司机最多一条进行中的班次
type AttendanceRecord struct {
	AttendanceID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_id"`
	DriverID     string     `gorm:"type:uuid;not null;index"                       json:"driver_id"`
	CheckInTime  *time.Time `gorm:"not null"                                       json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
	VersionedModel

	// 关联（按开始时间升序）
	TruckAssignments []TruckAssignment `gorm:"foreignKey:AttendanceID;references:AttendanceID" json:"truck_assignments,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }

// IsOpen 班次是否进行中
func (r *AttendanceRecord) IsOpen() bool {
	return r.CheckInTime != nil && r.CheckOutTime == nil
}

// TruckAssignment 派车记录表，对应 truck_assignments
// truck_end_time 为空表示车辆仍在使用；同一班次最多一条进行中的派车
type TruckAssignment struct {
	TruckAssignmentID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"truck_assignment_id"`
	AttendanceID      string     `gorm:"type:uuid;not null;index"                       json:"attendance_id"`
	TruckID           string     `gorm:"type:uuid;not null"                             json:"truck_id"`
	TruckStartTime    *time.Time `gorm:"not null"                                       json:"truck_start_time"`
	TruckEndTime      *time.Time `json:"truck_end_time,omitempty"`
	BaseModel

	Truck *Truck `gorm:"foreignKey:TruckID;references:TruckID" json:"truck,omitempty"`
}

// TableName 指定表名
func (TruckAssignment) TableName() string { return "truck_assignments" }

// IsOpen 派车是否进行中
func (a *TruckAssignment) IsOpen() bool {
	return a.TruckEndTime == nil
}

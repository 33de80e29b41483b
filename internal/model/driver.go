package model

import "github.com/lib/pq"

// 线路类型标签
const (
	RouteLongHaul    = "long_haul"
	RouteCrossBorder = "cross_border"
	RouteCity        = "city"
	RouteRegional    = "regional"
)

// ValidRoute 判断线路标签是否合法
func ValidRoute(route string) bool {
	switch route {
	case RouteLongHaul, RouteCrossBorder, RouteCity, RouteRegional:
		return true
	}
	return false
}

// Driver 司机表，对应 drivers
// 主数据由人事系统维护，本服务仅回写 night_driver 与周排班
type Driver struct {
	DriverID       string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"driver_id"`
	Name           string         `gorm:"type:varchar(100);not null"                     json:"name"`
	Terminal       string         `gorm:"type:varchar(50);not null;index"                json:"terminal"`
	Routes         pq.StringArray `gorm:"type:text[];not null;default:'{}'"              json:"routes"`
	Status         string         `gorm:"type:varchar(20);not null;default:'active'"     json:"status"` // active | inactive
	Compliant      bool           `gorm:"not null;default:false"                         json:"compliant"`
	ComplianceNote string         `gorm:"type:varchar(200);not null;default:''"          json:"compliance_note"` // 不合规原因，如 "Drug test absent!"
	NightDriver    bool           `gorm:"not null;default:false"                         json:"night_driver"`
	BaseModel
}

// TableName 指定表名
func (Driver) TableName() string { return "drivers" }

// HasRoute 判断司机是否可跑指定线路
func (d *Driver) HasRoute(route string) bool {
	for _, r := range d.Routes {
		if r == route {
			return true
		}
	}
	return false
}

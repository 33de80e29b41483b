package model

// Truck 车辆表，对应 trucks
type Truck struct {
	TruckID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"truck_id"`
	UnitNumber  string `gorm:"type:varchar(30);not null;uniqueIndex"          json:"unit_number"`
	PlateNumber string `gorm:"type:varchar(30);not null"                      json:"plate_number"`
	Terminal    string `gorm:"type:varchar(50);not null"                      json:"terminal"`
	IsActive    bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Truck) TableName() string { return "trucks" }

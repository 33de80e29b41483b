package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/bukulele/beontrack-portal-sub001/internal/model"
	pkgerrors "github.com/bukulele/beontrack-portal-sub001/pkg/errors"
)

// AttendanceFilter 出勤查询条件
type AttendanceFilter struct {
	DriverID string    // 为空表示全部司机
	From     time.Time // 上班时间下限；进行中的班次总是返回
	To       time.Time // 上班时间上限，零值表示不限
}

// AttendanceRepository 出勤（班次）数据访问接口
type AttendanceRepository interface {
	Create(ctx context.Context, record *model.AttendanceRecord) error
	GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error)
	GetOpenByDriver(ctx context.Context, driverID string) (*model.AttendanceRecord, error)
	GetLatestByDriver(ctx context.Context, driverID string) (*model.AttendanceRecord, error)
	List(ctx context.Context, filter AttendanceFilter) ([]model.AttendanceRecord, error)
	// ListDangling 已结束但仍有进行中派车的班次
	ListDangling(ctx context.Context, since time.Time) ([]model.AttendanceRecord, error)
	Update(ctx context.Context, record *model.AttendanceRecord) error
	Delete(ctx context.Context, id string) error
}

type attendanceRepo struct {
	db *gorm.DB
}

func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) withAssignments(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("TruckAssignments", func(db *gorm.DB) *gorm.DB {
			return db.Order("truck_start_time ASC")
		}).
		Preload("TruckAssignments.Truck")
}

func (r *attendanceRepo) Create(ctx context.Context, record *model.AttendanceRecord) error {
	err := r.db.WithContext(ctx).Omit("TruckAssignments").Create(record).Error
	if pkgerrors.IsUniqueViolation(err, pkgerrors.OpenShiftIndex) {
		return pkgerrors.ErrShiftAlreadyOpen
	}
	return err
}

func (r *attendanceRepo) GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.withAssignments(ctx).
		Where("attendance_id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) GetOpenByDriver(ctx context.Context, driverID string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.withAssignments(ctx).
		Where("driver_id = ? AND check_out_time IS NULL", driverID).
		Order("check_in_time DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) GetLatestByDriver(ctx context.Context, driverID string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.withAssignments(ctx).
		Where("driver_id = ?", driverID).
		Order("check_in_time DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) List(ctx context.Context, filter AttendanceFilter) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	db := r.withAssignments(ctx)
	if filter.DriverID != "" {
		db = db.Where("driver_id = ?", filter.DriverID)
	}
	if !filter.From.IsZero() {
		db = db.Where("(check_in_time >= ? OR check_out_time IS NULL OR check_out_time >= ?)", filter.From, filter.From)
	}
	if !filter.To.IsZero() {
		db = db.Where("check_in_time <= ?", filter.To)
	}
	err := db.Order("check_in_time ASC").Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListDangling(ctx context.Context, since time.Time) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.withAssignments(ctx).
		Where("check_out_time IS NOT NULL AND check_out_time >= ?", since).
		Where("EXISTS (SELECT 1 FROM truck_assignments ta WHERE ta.attendance_id = attendance_records.attendance_id AND ta.truck_end_time IS NULL)").
		Order("check_out_time ASC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) Update(ctx context.Context, record *model.AttendanceRecord) error {
	oldVersion := record.Version
	result := r.db.WithContext(ctx).
		Model(record).
		Where("attendance_id = ? AND version = ?", record.AttendanceID, oldVersion).
		Updates(map[string]interface{}{
			"check_in_time":  record.CheckInTime,
			"check_out_time": record.CheckOutTime,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		if pkgerrors.IsUniqueViolation(result.Error, pkgerrors.OpenShiftIndex) {
			return pkgerrors.ErrShiftAlreadyOpen
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	record.Version = oldVersion + 1
	return nil
}

func (r *attendanceRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("attendance_id = ?", id).
		Delete(&model.AttendanceRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

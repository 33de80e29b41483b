package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bukulele/beontrack-portal-sub001/internal/model"
)

// DriverScheduleRepository 周排班数据访问接口
type DriverScheduleRepository interface {
	List(ctx context.Context) ([]model.DriverSchedule, error)
	GetByDriver(ctx context.Context, driverID string) (*model.DriverSchedule, error)
	Upsert(ctx context.Context, schedule *model.DriverSchedule) error
	// Delete 清除排班（回到"未设置"）
	Delete(ctx context.Context, driverID string) error
}

type driverScheduleRepo struct {
	db *gorm.DB
}

func NewDriverScheduleRepo(db *gorm.DB) DriverScheduleRepository {
	return &driverScheduleRepo{db: db}
}

func (r *driverScheduleRepo) List(ctx context.Context) ([]model.DriverSchedule, error) {
	var schedules []model.DriverSchedule
	err := r.db.WithContext(ctx).Find(&schedules).Error
	return schedules, err
}

func (r *driverScheduleRepo) GetByDriver(ctx context.Context, driverID string) (*model.DriverSchedule, error) {
	var schedule model.DriverSchedule
	err := r.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *driverScheduleRepo) Upsert(ctx context.Context, schedule *model.DriverSchedule) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "driver_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"days", "updated_at"}),
		}).
		Create(schedule).Error
}

func (r *driverScheduleRepo) Delete(ctx context.Context, driverID string) error {
	return r.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Delete(&model.DriverSchedule{}).Error
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bukulele/beontrack-portal-sub001/internal/model"
)

// DriverRepository 司机数据访问接口
type DriverRepository interface {
	// ListAvailable 在职司机，route/terminal 为空表示不过滤
	ListAvailable(ctx context.Context, route, terminal string) ([]model.Driver, error)
	GetByID(ctx context.Context, id string) (*model.Driver, error)
	UpdateNightDriver(ctx context.Context, id string, nightDriver bool) error
}

type driverRepo struct {
	db *gorm.DB
}

func NewDriverRepo(db *gorm.DB) DriverRepository {
	return &driverRepo{db: db}
}

func (r *driverRepo) ListAvailable(ctx context.Context, route, terminal string) ([]model.Driver, error) {
	var drivers []model.Driver
	db := r.db.WithContext(ctx).Where("status = ?", "active")
	if route != "" {
		db = db.Where("? = ANY(routes)", route)
	}
	if terminal != "" {
		db = db.Where("terminal = ?", terminal)
	}
	err := db.Order("name ASC").Find(&drivers).Error
	return drivers, err
}

func (r *driverRepo) GetByID(ctx context.Context, id string) (*model.Driver, error) {
	var driver model.Driver
	err := r.db.WithContext(ctx).
		Where("driver_id = ?", id).
		First(&driver).Error
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *driverRepo) UpdateNightDriver(ctx context.Context, id string, nightDriver bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.Driver{}).
		Where("driver_id = ?", id).
		Update("night_driver", nightDriver)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

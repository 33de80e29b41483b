package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bukulele/beontrack-portal-sub001/internal/model"
)

// TruckRepository 车辆数据访问接口
type TruckRepository interface {
	ListActive(ctx context.Context) ([]model.Truck, error)
	// ListAvailable 在用且没有任何进行中派车的车辆
	ListAvailable(ctx context.Context) ([]model.Truck, error)
	GetByID(ctx context.Context, id string) (*model.Truck, error)
	IsAvailable(ctx context.Context, id string) (bool, error)
}

type truckRepo struct {
	db *gorm.DB
}

func NewTruckRepo(db *gorm.DB) TruckRepository {
	return &truckRepo{db: db}
}

const openAssignmentExists = "EXISTS (SELECT 1 FROM truck_assignments ta WHERE ta.truck_id = trucks.truck_id AND ta.truck_end_time IS NULL)"

func (r *truckRepo) ListActive(ctx context.Context) ([]model.Truck, error) {
	var trucks []model.Truck
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("unit_number ASC").
		Find(&trucks).Error
	return trucks, err
}

func (r *truckRepo) ListAvailable(ctx context.Context) ([]model.Truck, error) {
	var trucks []model.Truck
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("NOT " + openAssignmentExists).
		Order("unit_number ASC").
		Find(&trucks).Error
	return trucks, err
}

func (r *truckRepo) GetByID(ctx context.Context, id string) (*model.Truck, error) {
	var truck model.Truck
	err := r.db.WithContext(ctx).
		Where("truck_id = ?", id).
		First(&truck).Error
	if err != nil {
		return nil, err
	}
	return &truck, nil
}

func (r *truckRepo) IsAvailable(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Truck{}).
		Where("truck_id = ? AND is_active = ?", id, true).
		Where("NOT " + openAssignmentExists).
		Count(&count).Error
	return count > 0, err
}

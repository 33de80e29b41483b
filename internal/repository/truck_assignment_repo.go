package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/bukulele/beontrack-portal-sub001/internal/model"
	pkgerrors "github.com/bukulele/beontrack-portal-sub001/pkg/errors"
)

// TruckAssignmentRepository 派车数据访问接口
type TruckAssignmentRepository interface {
	Create(ctx context.Context, assignment *model.TruckAssignment) error
	GetByID(ctx context.Context, id string) (*model.TruckAssignment, error)
	// Stop 结束进行中的派车；已结束或不属于该班次时返回 gorm.ErrRecordNotFound
	Stop(ctx context.Context, assignmentID, attendanceID string, endTime time.Time) (*model.TruckAssignment, error)
}

type truckAssignmentRepo struct {
	db *gorm.DB
}

func NewTruckAssignmentRepo(db *gorm.DB) TruckAssignmentRepository {
	return &truckAssignmentRepo{db: db}
}

func (r *truckAssignmentRepo) Create(ctx context.Context, assignment *model.TruckAssignment) error {
	err := r.db.WithContext(ctx).Omit("Truck").Create(assignment).Error
	if pkgerrors.IsUniqueViolation(err, pkgerrors.OpenAssignmentIndex) {
		return pkgerrors.ErrAssignmentAlreadyOpen
	}
	return err
}

func (r *truckAssignmentRepo) GetByID(ctx context.Context, id string) (*model.TruckAssignment, error) {
	var assignment model.TruckAssignment
	err := r.db.WithContext(ctx).
		Preload("Truck").
		Where("truck_assignment_id = ?", id).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *truckAssignmentRepo) Stop(ctx context.Context, assignmentID, attendanceID string, endTime time.Time) (*model.TruckAssignment, error) {
	result := r.db.WithContext(ctx).
		Model(&model.TruckAssignment{}).
		Where("truck_assignment_id = ? AND attendance_id = ? AND truck_end_time IS NULL", assignmentID, attendanceID).
		Updates(map[string]interface{}{
			"truck_end_time": endTime,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetByID(ctx, assignmentID)
}

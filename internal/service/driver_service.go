package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bukulele/beontrack-portal-sub001/internal/dto"
	"github.com/bukulele/beontrack-portal-sub001/internal/model"
	"github.com/bukulele/beontrack-portal-sub001/internal/repository"
)

// DriverService 司机与周排班业务接口
type DriverService interface {
	ListAvailable(ctx context.Context, req *dto.ListDriversRequest) ([]dto.DriverResponse, error)
	GetSchedules(ctx context.Context) ([]dto.DriverScheduleResponse, error)
	// UpdateSchedule days 为 nil 时清除排班
	UpdateSchedule(ctx context.Context, driverID string, req *dto.UpdateScheduleRequest) (*dto.DriverScheduleResponse, error)
	UpdateNightDriver(ctx context.Context, driverID string, req *dto.UpdateDriverRequest) (*dto.DriverResponse, error)
}

type driverService struct {
	repo      *repository.Repository
	refresher Refresher
	logger    *zap.Logger
}

// NewDriverService 创建 DriverService 实例
func NewDriverService(repo *repository.Repository, refresher Refresher, logger *zap.Logger) DriverService {
	return &driverService{repo: repo, refresher: refresher, logger: logger}
}

func (s *driverService) ListAvailable(ctx context.Context, req *dto.ListDriversRequest) ([]dto.DriverResponse, error) {
	drivers, err := s.repo.Driver.ListAvailable(ctx, req.Route, req.Terminal)
	if err != nil {
		s.logger.Error("查询司机列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.DriverResponse, 0, len(drivers))
	for i := range drivers {
		result = append(result, toDriverResponse(&drivers[i]))
	}
	return result, nil
}

func (s *driverService) GetSchedules(ctx context.Context) ([]dto.DriverScheduleResponse, error) {
	schedules, err := s.repo.DriverSchedule.List(ctx)
	if err != nil {
		s.logger.Error("查询排班失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.DriverScheduleResponse, 0, len(schedules))
	for i := range schedules {
		days := schedules[i].WeekDays()
		result = append(result, dto.DriverScheduleResponse{
			DriverID: schedules[i].DriverID,
			Days:     toScheduleDays(&days),
		})
	}
	return result, nil
}

func (s *driverService) UpdateSchedule(ctx context.Context, driverID string, req *dto.UpdateScheduleRequest) (*dto.DriverScheduleResponse, error) {
	if err := s.ensureDriver(ctx, driverID); err != nil {
		return nil, err
	}
	defer s.refresher.Trigger()

	if req.Days == nil {
		if err := s.repo.DriverSchedule.Delete(ctx, driverID); err != nil {
			s.logger.Error("清除排班失败", zap.String("driver_id", driverID), zap.Error(err))
			return nil, err
		}
		return &dto.DriverScheduleResponse{DriverID: driverID}, nil
	}

	days := fromScheduleDays(req.Days)
	if err := s.repo.DriverSchedule.Upsert(ctx, model.NewDriverSchedule(driverID, days)); err != nil {
		s.logger.Error("更新排班失败", zap.String("driver_id", driverID), zap.Error(err))
		return nil, err
	}
	return &dto.DriverScheduleResponse{DriverID: driverID, Days: toScheduleDays(&days)}, nil
}

func (s *driverService) UpdateNightDriver(ctx context.Context, driverID string, req *dto.UpdateDriverRequest) (*dto.DriverResponse, error) {
	defer s.refresher.Trigger()

	if err := s.repo.Driver.UpdateNightDriver(ctx, driverID, *req.NightDriver); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDriverNotFound
		}
		s.logger.Error("更新夜班标记失败", zap.String("driver_id", driverID), zap.Error(err))
		return nil, err
	}
	driver, err := s.repo.Driver.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	resp := toDriverResponse(driver)
	return &resp, nil
}

func (s *driverService) ensureDriver(ctx context.Context, driverID string) error {
	if _, err := s.repo.Driver.GetByID(ctx, driverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDriverNotFound
		}
		return err
	}
	return nil
}

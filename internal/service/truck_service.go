package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bukulele/beontrack-portal-sub001/internal/board"
	"github.com/bukulele/beontrack-portal-sub001/internal/dto"
	"github.com/bukulele/beontrack-portal-sub001/internal/hos"
	"github.com/bukulele/beontrack-portal-sub001/internal/model"
	"github.com/bukulele/beontrack-portal-sub001/internal/repository"
	pkgerrors "github.com/bukulele/beontrack-portal-sub001/pkg/errors"
)

// ── 派车模块业务错误 ──

var (
	ErrTruckNotSelected     = errors.New("请先选择车辆")
	ErrShiftNotOpen         = errors.New("司机未在班，不能派车")
	ErrTruckAlreadyAssigned = errors.New("司机当前已有车辆，请使用换车")
	ErrTruckUnavailable     = errors.New("所选车辆不可用")
	ErrNoActiveTruck        = errors.New("司机当前没有在用车辆")
	ErrSameTruck            = errors.New("新车辆与当前车辆相同")
	ErrSwapInProgress       = errors.New("换车尚未完成，请继续换车或重新派车")
	ErrNoSwapInProgress     = errors.New("没有待继续的换车")
)

// 换车结果
const (
	SwapStatusCompleted = "completed"
	SwapStatusPartial   = "partial"
)

// TruckService 车辆与派车业务接口
//
// 设计说明：
//   - 车辆不加锁：派车前以最新可用列表复核，仍可能与其他调度员竞争，悬挂检测兜底
//   - 换车是两步流程（先还旧车，再以还车时间派新车），进度记录在看板交互状态中；
//     第二步失败时司机在班无车，可继续换车或直接派车，第一步不会重做
//   - 收车：班次已结束时以下班时间作为用车结束时间
type TruckService interface {
	ListActive(ctx context.Context) ([]dto.TruckResponse, error)
	ListAvailable(ctx context.Context) ([]dto.TruckResponse, error)
	Assign(ctx context.Context, req *dto.AssignTruckRequest) (*dto.TruckAssignmentResponse, error)
	Swap(ctx context.Context, req *dto.AssignTruckRequest) (*dto.SwapResponse, error)
	ResumeSwap(ctx context.Context, driverID string) (*dto.SwapResponse, error)
	Clear(ctx context.Context, driverID string) (*dto.TruckAssignmentResponse, error)
	// CloseForShiftEnd 班次结束后关闭其所有进行中的派车（尽力而为）
	CloseForShiftEnd(ctx context.Context, record *model.AttendanceRecord) error
	// HealDangling 关闭已结束班次上遗留的派车，返回修复条数
	HealDangling(ctx context.Context) (int, error)
}

type truckService struct {
	repo      *repository.Repository
	store     *board.Store
	refresher Refresher
	steps     hos.SwapSteps
	lookback  time.Duration
	logger    *zap.Logger
	now       clock
}

// NewTruckService 创建 TruckService 实例
func NewTruckService(repo *repository.Repository, store *board.Store, refresher Refresher, lookback time.Duration, logger *zap.Logger) TruckService {
	return &truckService{
		repo:      repo,
		store:     store,
		refresher: refresher,
		steps:     &assignmentSteps{repo: repo},
		lookback:  lookback,
		logger:    logger,
		now:       systemClock,
	}
}

// ────────────────────── List ──────────────────────

func (s *truckService) ListActive(ctx context.Context) ([]dto.TruckResponse, error) {
	trucks, err := s.repo.Truck.ListActive(ctx)
	if err != nil {
		s.logger.Error("查询在用车辆失败", zap.Error(err))
		return nil, err
	}
	return toTruckResponses(trucks), nil
}

func (s *truckService) ListAvailable(ctx context.Context) ([]dto.TruckResponse, error) {
	trucks, err := s.repo.Truck.ListAvailable(ctx)
	if err != nil {
		s.logger.Error("查询可用车辆失败", zap.Error(err))
		return nil, err
	}
	return toTruckResponses(trucks), nil
}

// ────────────────────── Assign ──────────────────────

func (s *truckService) Assign(ctx context.Context, req *dto.AssignTruckRequest) (*dto.TruckAssignmentResponse, error) {
	if req.TruckID == "" {
		return nil, ErrTruckNotSelected
	}
	defer s.refresher.Trigger()

	open, err := s.openShift(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if hos.CurrentAssignment(open) != nil {
		return nil, ErrTruckAlreadyAssigned
	}
	if err := s.ensureAvailable(ctx, req.TruckID); err != nil {
		return nil, err
	}

	now := s.now()
	assignment := &model.TruckAssignment{
		AttendanceID:   open.AttendanceID,
		TruckID:        req.TruckID,
		TruckStartTime: &now,
	}
	if err := s.repo.TruckAssignment.Create(ctx, assignment); err != nil {
		if errors.Is(err, pkgerrors.ErrAssignmentAlreadyOpen) {
			return nil, ErrTruckAlreadyAssigned
		}
		s.logger.Error("派车失败", zap.String("driver_id", req.DriverID), zap.Error(err))
		return nil, err
	}

	// 换车第二步失败后直接派车即视为流程结束
	s.store.UpdateInteraction(req.DriverID, func(in *board.Interaction) {
		in.Swap = nil
	})

	return s.reloadAssignment(ctx, assignment), nil
}

// ────────────────────── Swap ──────────────────────

func (s *truckService) Swap(ctx context.Context, req *dto.AssignTruckRequest) (*dto.SwapResponse, error) {
	if req.TruckID == "" {
		return nil, ErrTruckNotSelected
	}
	if in, ok := s.store.Interaction(req.DriverID); ok && in.Swap != nil && !in.Swap.Done() {
		return nil, ErrSwapInProgress
	}
	defer s.refresher.Trigger()

	open, err := s.openShift(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	current := hos.CurrentAssignment(open)
	if current == nil {
		return nil, ErrNoActiveTruck
	}
	if current.TruckID == req.TruckID {
		return nil, ErrSameTruck
	}
	if err := s.ensureAvailable(ctx, req.TruckID); err != nil {
		return nil, err
	}

	saga := hos.NewSwapSaga(uuid.NewString(), req.DriverID, open.AttendanceID,
		current.TruckAssignmentID, current.TruckID, req.TruckID, s.now())
	return s.runSwap(ctx, saga, "", time.Time{})
}

func (s *truckService) ResumeSwap(ctx context.Context, driverID string) (*dto.SwapResponse, error) {
	in, ok := s.store.Interaction(driverID)
	if !ok || in.Swap == nil || in.Swap.Done() {
		return nil, ErrNoSwapInProgress
	}
	saga := in.Swap
	defer s.refresher.Trigger()

	// 只能在发起换车的那个班次上继续
	open, err := s.repo.Attendance.GetOpenByDriver(ctx, driverID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询进行中班次失败", zap.String("driver_id", driverID), zap.Error(err))
		return nil, err
	}
	if open == nil || open.AttendanceID != saga.AttendanceID {
		s.logger.Info("班次已结束，放弃未完成的换车",
			zap.String("driver_id", driverID),
			zap.String("swap_id", saga.ID),
		)
		s.store.ReplaceSwap(driverID, saga.ID, saga.UpdatedAt, nil)
		return nil, ErrShiftNotOpen
	}

	if saga.Partial() {
		if err := s.ensureAvailable(ctx, saga.ToTruckID); err != nil {
			return nil, err
		}
	}
	return s.runSwap(ctx, saga, saga.ID, saga.UpdatedAt)
}

// runSwap 执行换车并回写进度。expectID/expectUpdatedAt 为执行前读到的进度，
// 回写时比对，避免覆盖其他调度员已写入的结果；新发起的换车 expectID 为空。
func (s *truckService) runSwap(ctx context.Context, saga *hos.SwapSaga, expectID string, expectUpdatedAt time.Time) (*dto.SwapResponse, error) {
	err := saga.Run(ctx, s.steps, s.now())
	switch {
	case err == nil:
		s.store.ReplaceSwap(saga.DriverID, expectID, expectUpdatedAt, nil)
		return &dto.SwapResponse{Status: SwapStatusCompleted, Swap: toSwapResponse(saga)}, nil

	case errors.Is(err, hos.ErrSwapOpenFailed):
		// 旧车已还、新车未派：保留进度，供继续换车
		s.logger.Warn("换车第二步失败",
			zap.String("driver_id", saga.DriverID),
			zap.String("swap_id", saga.ID),
			zap.Error(err),
		)
		if !s.store.ReplaceSwap(saga.DriverID, expectID, expectUpdatedAt, saga) {
			// 进度已被其他操作完成或清除
			return nil, ErrNoSwapInProgress
		}
		return &dto.SwapResponse{Status: SwapStatusPartial, Swap: toSwapResponse(saga)}, nil

	default:
		s.logger.Error("换车失败", zap.String("driver_id", saga.DriverID), zap.Error(err))
		s.store.ReplaceSwap(saga.DriverID, expectID, expectUpdatedAt, nil)
		return nil, err
	}
}

// ────────────────────── Clear ──────────────────────

func (s *truckService) Clear(ctx context.Context, driverID string) (*dto.TruckAssignmentResponse, error) {
	defer s.refresher.Trigger()

	record, err := s.repo.Attendance.GetOpenByDriver(ctx, driverID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 班次已结束：处理遗留在最近班次上的派车
		record, err = s.repo.Attendance.GetLatestByDriver(ctx, driverID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveTruck
		}
		s.logger.Error("查询班次失败", zap.String("driver_id", driverID), zap.Error(err))
		return nil, err
	}

	current := hos.CurrentAssignment(record)
	if current == nil {
		return nil, ErrNoActiveTruck
	}

	end := hos.ClearEndTime(record, current, s.now())
	stopped, err := s.repo.TruckAssignment.Stop(ctx, current.TruckAssignmentID, record.AttendanceID, end)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveTruck
		}
		s.logger.Error("收车失败", zap.String("driver_id", driverID), zap.Error(err))
		return nil, err
	}
	return toAssignmentResponse(stopped), nil
}

// ────────────────────── Shift-end cascade ──────────────────────

func (s *truckService) CloseForShiftEnd(ctx context.Context, record *model.AttendanceRecord) error {
	if record == nil || record.CheckOutTime == nil {
		return nil
	}
	var errs []error
	for i := range record.TruckAssignments {
		a := &record.TruckAssignments[i]
		if !a.IsOpen() {
			continue
		}
		end := hos.ClearEndTime(record, a, s.now())
		if _, err := s.repo.TruckAssignment.Stop(ctx, a.TruckAssignmentID, record.AttendanceID, end); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue // 已被其他操作关闭
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *truckService) HealDangling(ctx context.Context) (int, error) {
	records, err := s.repo.Attendance.ListDangling(ctx, s.now().Add(-s.lookback))
	if err != nil {
		s.logger.Error("查询悬挂派车失败", zap.Error(err))
		return 0, err
	}

	healed := 0
	var errs []error
	for i := range records {
		if err := s.CloseForShiftEnd(ctx, &records[i]); err != nil {
			s.logger.Warn("修复悬挂派车失败",
				zap.String("attendance_id", records[i].AttendanceID),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		healed++
	}
	if healed > 0 {
		s.logger.Info("已修复悬挂派车", zap.Int("count", healed))
		s.refresher.Trigger()
	}
	return healed, errors.Join(errs...)
}

// ── 辅助函数 ──

func (s *truckService) openShift(ctx context.Context, driverID string) (*model.AttendanceRecord, error) {
	open, err := s.repo.Attendance.GetOpenByDriver(ctx, driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotOpen
		}
		s.logger.Error("查询进行中班次失败", zap.String("driver_id", driverID), zap.Error(err))
		return nil, err
	}
	return open, nil
}

// ensureAvailable 以最新可用车辆列表复核
func (s *truckService) ensureAvailable(ctx context.Context, truckID string) error {
	ok, err := s.repo.Truck.IsAvailable(ctx, truckID)
	if err != nil {
		s.logger.Error("查询车辆可用性失败", zap.String("truck_id", truckID), zap.Error(err))
		return err
	}
	if !ok {
		return ErrTruckUnavailable
	}
	return nil
}

func (s *truckService) reloadAssignment(ctx context.Context, a *model.TruckAssignment) *dto.TruckAssignmentResponse {
	if fresh, err := s.repo.TruckAssignment.GetByID(ctx, a.TruckAssignmentID); err == nil {
		return toAssignmentResponse(fresh)
	}
	return toAssignmentResponse(a)
}

// assignmentSteps 以派车仓储执行换车的两步
type assignmentSteps struct {
	repo *repository.Repository
}

func (st *assignmentSteps) CloseAssignment(ctx context.Context, assignmentID, attendanceID string, at time.Time) (time.Time, error) {
	stopped, err := st.repo.TruckAssignment.Stop(ctx, assignmentID, attendanceID, at)
	if err != nil {
		return time.Time{}, err
	}
	if stopped.TruckEndTime != nil {
		return *stopped.TruckEndTime, nil
	}
	return at, nil
}

func (st *assignmentSteps) OpenAssignment(ctx context.Context, attendanceID, truckID string, at time.Time) (string, error) {
	a := &model.TruckAssignment{
		AttendanceID:   attendanceID,
		TruckID:        truckID,
		TruckStartTime: &at,
	}
	if err := st.repo.TruckAssignment.Create(ctx, a); err != nil {
		if !errors.Is(err, pkgerrors.ErrAssignmentAlreadyOpen) {
			return "", err
		}
		// 已有进行中的派车：若正是目标车辆，说明这一步已由其他调度员完成
		record, gerr := st.repo.Attendance.GetByID(ctx, attendanceID)
		if gerr != nil {
			return "", err
		}
		if current := hos.CurrentAssignment(record); current != nil && current.TruckID == truckID {
			return current.TruckAssignmentID, nil
		}
		return "", err
	}
	return a.TruckAssignmentID, nil
}

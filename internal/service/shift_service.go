package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bukulele/beontrack-portal-sub001/internal/board"
	"github.com/bukulele/beontrack-portal-sub001/internal/dto"
	"github.com/bukulele/beontrack-portal-sub001/internal/hos"
	"github.com/bukulele/beontrack-portal-sub001/internal/model"
	"github.com/bukulele/beontrack-portal-sub001/internal/repository"
	pkgerrors "github.com/bukulele/beontrack-portal-sub001/pkg/errors"
)

// ── 班次模块业务错误 ──

var (
	ErrDriverNotFound       = errors.New("司机不存在")
	ErrAttendanceNotFound   = errors.New("出勤记录不存在")
	ErrConfirmationRequired = errors.New("结束班次需要确认")
	ErrCheckInRequired      = errors.New("上班时间不能为空")
	ErrInvalidShiftTimes    = errors.New("下班时间不能早于上班时间")
	ErrInvalidTimeFormat    = errors.New("时间格式无效，应为 RFC3339")
	ErrCheckInInFuture      = errors.New("上班时间不能晚于当前时间")
)

// UnavailableError 司机当前不可上班，Reason 为展示给调度员的原因
type UnavailableError struct {
	Reason       string
	Availability hos.Result
}

func (e *UnavailableError) Error() string { return e.Reason }

func (e *UnavailableError) Unwrap() error { return hos.ErrStartDisabled }

// ConfirmationRequiredError 下班前需要调度员确认，Message 说明下班后的休息时长
type ConfirmationRequiredError struct {
	Message           string
	RequiredRestHours int
	AvailableAt       time.Time
}

func (e *ConfirmationRequiredError) Error() string { return e.Message }

func (e *ConfirmationRequiredError) Unwrap() error { return ErrConfirmationRequired }

// ShiftService 班次业务接口
//
// 设计说明：
//   - 上班：不可上班时拒绝；已有进行中班次时复用，不会产生第二条
//   - 下班：未确认时返回 ConfirmationRequiredError 并在看板上标记待确认；
//     确认后写入下班时间，再尽力关闭该班次的派车
//   - 下班不受不可上班判定约束
//   - 所有写操作完成（无论成败）后都触发看板刷新，以权威数据为准
type ShiftService interface {
	Start(ctx context.Context, driverID string) (*dto.ShiftResponse, error)
	Stop(ctx context.Context, driverID string, req *dto.StopShiftRequest) (*dto.ShiftResponse, error)
	CancelStop(ctx context.Context, driverID string) (*dto.ShiftResponse, error)

	ListAttendance(ctx context.Context, req *dto.ListAttendanceRequest) ([]dto.AttendanceResponse, error)
	CreateAttendance(ctx context.Context, req *dto.CreateAttendanceRequest) (*dto.AttendanceResponse, error)
	// UpdateAttendance 修正出勤；上下班时间均被清除时删除记录并返回 nil
	UpdateAttendance(ctx context.Context, id string, req *dto.UpdateAttendanceRequest) (*dto.AttendanceResponse, error)
	DeleteAttendance(ctx context.Context, id string) error
}

type shiftService struct {
	repo      *repository.Repository
	store     *board.Store
	policy    hos.Policy
	refresher Refresher
	trucks    TruckService
	lookback  time.Duration
	logger    *zap.Logger
	now       clock
}

// NewShiftService 创建 ShiftService 实例
func NewShiftService(
	repo *repository.Repository,
	store *board.Store,
	policy hos.Policy,
	refresher Refresher,
	trucks TruckService,
	lookback time.Duration,
	logger *zap.Logger,
) ShiftService {
	return &shiftService{
		repo:      repo,
		store:     store,
		policy:    policy,
		refresher: refresher,
		trucks:    trucks,
		lookback:  lookback,
		logger:    logger,
		now:       systemClock,
	}
}

// ═══════════════════════════════════════════════════════════
// Start：OFF → ON
// ═══════════════════════════════════════════════════════════

func (s *shiftService) Start(ctx context.Context, driverID string) (*dto.ShiftResponse, error) {
	defer s.refresher.Trigger()

	driver, err := s.repo.Driver.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDriverNotFound
		}
		s.logger.Error("查询司机失败", zap.String("driver_id", driverID), zap.Error(err))
		return nil, err
	}

	// 已在班：复用进行中的班次
	if open, err := s.repo.Attendance.GetOpenByDriver(ctx, driverID); err == nil {
		return s.shiftResponse(driverID, open), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询进行中班次失败", zap.String("driver_id", driverID), zap.Error(err))
		return nil, err
	}

	now := s.now()
	result, last, err := s.evaluate(ctx, driver, now)
	if err != nil {
		return nil, err
	}

	if _, _, err := hos.Transition(hos.StateOff, hos.EventStart, result.Disabled, false); err != nil {
		return nil, &UnavailableError{Reason: result.Reason, Availability: result}
	}

	// 上一班遗留的派车在开新班前收掉
	if hos.IsDangling(last) {
		if err := s.trucks.CloseForShiftEnd(ctx, last); err != nil {
			s.logger.Warn("修复上一班遗留派车失败", zap.String("driver_id", driverID), zap.Error(err))
		}
	}

	record := &model.AttendanceRecord{DriverID: driverID, CheckInTime: &now}
	if err := s.repo.Attendance.Create(ctx, record); err != nil {
		if errors.Is(err, pkgerrors.ErrShiftAlreadyOpen) {
			// 并发上班：以已存在的班次为准
			open, gerr := s.repo.Attendance.GetOpenByDriver(ctx, driverID)
			if gerr == nil {
				return s.shiftResponse(driverID, open), nil
			}
		}
		s.logger.Error("创建班次失败", zap.String("driver_id", driverID), zap.Error(err))
		return nil, err
	}

	s.store.UpdateInteraction(driverID, func(in *board.Interaction) {
		in.StopPending = false
		in.StopRequestedAt = nil
	})
	return s.shiftResponse(driverID, record), nil
}

// evaluate 以最新数据判定司机此刻能否上班
func (s *shiftService) evaluate(ctx context.Context, driver *model.Driver, now time.Time) (hos.Result, *model.AttendanceRecord, error) {
	schedule, err := s.schedule(ctx, driver.DriverID)
	if err != nil {
		return hos.Result{}, nil, err
	}
	records, err := s.repo.Attendance.List(ctx, repository.AttendanceFilter{
		DriverID: driver.DriverID,
		From:     now.Add(-s.lookback),
	})
	if err != nil {
		s.logger.Error("查询出勤记录失败", zap.String("driver_id", driver.DriverID), zap.Error(err))
		return hos.Result{}, nil, err
	}

	last := hos.LastShift(records, driver.DriverID)
	if last == nil {
		// 窗口外的最近班次仍决定休息时间
		latest, err := s.repo.Attendance.GetLatestByDriver(ctx, driver.DriverID)
		if err == nil {
			last = latest
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return hos.Result{}, nil, err
		}
	}

	result := s.policy.Evaluate(hos.Input{
		Compliant:      driver.Compliant,
		ComplianceNote: driver.ComplianceNote,
		Schedule:       schedule,
		LastShift:      last,
		WeeklyHours:    hos.CurrentWeeklyHours(records, driver.DriverID, last, now, s.policy.Window),
		Now:            now,
	})
	return result, last, nil
}

func (s *shiftService) schedule(ctx context.Context, driverID string) (*model.WeekDays, error) {
	sched, err := s.repo.DriverSchedule.GetByDriver(ctx, driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logger.Error("查询排班失败", zap.String("driver_id", driverID), zap.Error(err))
		return nil, err
	}
	days := sched.WeekDays()
	return &days, nil
}

// ═══════════════════════════════════════════════════════════
// Stop：ON → OFF（需确认）
// ═══════════════════════════════════════════════════════════

func (s *shiftService) Stop(ctx context.Context, driverID string, req *dto.StopShiftRequest) (*dto.ShiftResponse, error) {
	defer s.refresher.Trigger()

	open, err := s.repo.Attendance.GetOpenByDriver(ctx, driverID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询进行中班次失败", zap.String("driver_id", driverID), zap.Error(err))
		return nil, err
	}

	in, _ := s.store.Interaction(driverID)
	state := hos.StateOf(open != nil, in.StopPending)
	event := hos.EventStop
	if state == hos.StateStopPending && req.Confirmed {
		event = hos.EventConfirm
	}

	_, effect, err := hos.Transition(state, event, false, req.Confirmed)
	if err != nil {
		s.clearPending(driverID)
		return nil, err
	}

	now := s.now()
	switch effect {
	case hos.EffectAskConfirmation:
		confirm, err := s.confirmation(ctx, driverID, open, now)
		if err != nil {
			return nil, err
		}
		s.store.UpdateInteraction(driverID, func(in *board.Interaction) {
			in.StopPending = true
			in.StopRequestedAt = &now
		})
		return nil, confirm

	case hos.EffectCheckOut:
		open.CheckOutTime = &now
		if err := s.repo.Attendance.Update(ctx, open); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				// 可能已被其他调度员结束，重新读取后由调用方决定
				s.logger.Warn("下班写入冲突", zap.String("driver_id", driverID))
			} else {
				s.logger.Error("写入下班时间失败", zap.String("driver_id", driverID), zap.Error(err))
			}
			return nil, err
		}
		s.endShift(driverID)

		if err := s.trucks.CloseForShiftEnd(detach(ctx), open); err != nil {
			// 悬挂检测会在之后修复
			s.logger.Warn("下班级联收车失败", zap.String("driver_id", driverID), zap.Error(err))
		}
		return s.shiftResponse(driverID, s.reload(ctx, open)), nil
	}

	return s.shiftResponse(driverID, open), nil
}

// confirmation 构造下班确认提示：下班后需休息多久、何时可再上班
func (s *shiftService) confirmation(ctx context.Context, driverID string, open *model.AttendanceRecord, now time.Time) (*ConfirmationRequiredError, error) {
	schedule, err := s.schedule(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		// 未设置排班时下班后即不可排班，直至补录排班
		return &ConfirmationRequiredError{
			Message:           "Ending this shift makes the driver unavailable until a weekly schedule is set.",
			RequiredRestHours: s.policy.LongRestHours,
			AvailableAt:       now.Add(time.Duration(s.policy.LongRestHours) * time.Hour),
		}, nil
	}
	rest := s.policy.RequiredRestHours(schedule, *open.CheckInTime, now)
	availableAt := now.Add(time.Duration(rest) * time.Hour)
	return &ConfirmationRequiredError{
		Message: fmt.Sprintf("Ending this shift makes the driver unavailable for %d hours (until %s).",
			rest, s.policy.Local(availableAt).Format("Mon Jan 2 15:04")),
		RequiredRestHours: rest,
		AvailableAt:       availableAt,
	}, nil
}

func (s *shiftService) CancelStop(ctx context.Context, driverID string) (*dto.ShiftResponse, error) {
	defer s.refresher.Trigger()
	s.clearPending(driverID)

	open, err := s.repo.Attendance.GetOpenByDriver(ctx, driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.shiftResponse(driverID, nil), nil
		}
		return nil, err
	}
	return s.shiftResponse(driverID, open), nil
}

func (s *shiftService) clearPending(driverID string) {
	s.store.UpdateInteraction(driverID, func(in *board.Interaction) {
		in.StopPending = false
		in.StopRequestedAt = nil
	})
}

// endShift 班次结束：待确认的下班与未完成的换车都随之失效
func (s *shiftService) endShift(driverID string) {
	s.store.UpdateInteraction(driverID, func(in *board.Interaction) {
		in.StopPending = false
		in.StopRequestedAt = nil
		in.Swap = nil
	})
}

// ═══════════════════════════════════════════════════════════
// Attendance：出勤查询与人工修正
// ═══════════════════════════════════════════════════════════

func (s *shiftService) ListAttendance(ctx context.Context, req *dto.ListAttendanceRequest) ([]dto.AttendanceResponse, error) {
	filter := repository.AttendanceFilter{
		DriverID: req.DriverID,
		From:     req.From,
		To:       req.To,
	}
	if filter.From.IsZero() {
		filter.From = s.now().Add(-s.lookback)
	}
	if !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, ErrInvalidShiftTimes
	}

	records, err := s.repo.Attendance.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询出勤记录失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.AttendanceResponse, 0, len(records))
	for i := range records {
		result = append(result, *toAttendanceResponse(&records[i]))
	}
	return result, nil
}

func (s *shiftService) CreateAttendance(ctx context.Context, req *dto.CreateAttendanceRequest) (*dto.AttendanceResponse, error) {
	defer s.refresher.Trigger()

	if _, err := s.repo.Driver.GetByID(ctx, req.DriverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}

	in := req.CheckInTime.UTC()
	if in.After(s.now()) {
		return nil, ErrCheckInInFuture
	}
	record := &model.AttendanceRecord{DriverID: req.DriverID, CheckInTime: &in}
	if req.CheckOutTime != nil {
		out := req.CheckOutTime.UTC()
		if out.Before(in) {
			return nil, ErrInvalidShiftTimes
		}
		record.CheckOutTime = &out
	}

	if err := s.repo.Attendance.Create(ctx, record); err != nil {
		if !errors.Is(err, pkgerrors.ErrShiftAlreadyOpen) {
			s.logger.Error("补录出勤失败", zap.String("driver_id", req.DriverID), zap.Error(err))
		}
		return nil, err
	}
	return toAttendanceResponse(record), nil
}

func (s *shiftService) UpdateAttendance(ctx context.Context, id string, req *dto.UpdateAttendanceRequest) (*dto.AttendanceResponse, error) {
	defer s.refresher.Trigger()

	record, err := s.repo.Attendance.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceNotFound
		}
		return nil, err
	}

	checkIn, err := patchTime(record.CheckInTime, req.CheckInTime)
	if err != nil {
		return nil, err
	}
	checkOut, err := patchTime(record.CheckOutTime, req.CheckOutTime)
	if err != nil {
		return nil, err
	}

	if checkIn == nil && checkOut == nil {
		if err := s.deleteRecord(ctx, record); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if checkIn == nil {
		return nil, ErrCheckInRequired
	}
	if checkOut != nil && checkOut.Before(*checkIn) {
		return nil, ErrInvalidShiftTimes
	}

	wasOpen := record.IsOpen()
	record.CheckInTime = checkIn
	record.CheckOutTime = checkOut
	if err := s.repo.Attendance.Update(ctx, record); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) && !errors.Is(err, pkgerrors.ErrShiftAlreadyOpen) {
			s.logger.Error("修正出勤失败", zap.String("attendance_id", id), zap.Error(err))
		}
		return nil, err
	}

	if wasOpen && !record.IsOpen() {
		s.endShift(record.DriverID)
		if err := s.trucks.CloseForShiftEnd(detach(ctx), record); err != nil {
			s.logger.Warn("修正后级联收车失败", zap.String("attendance_id", id), zap.Error(err))
		}
	}
	return toAttendanceResponse(s.reload(ctx, record)), nil
}

func (s *shiftService) DeleteAttendance(ctx context.Context, id string) error {
	defer s.refresher.Trigger()

	record, err := s.repo.Attendance.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttendanceNotFound
		}
		return err
	}
	return s.deleteRecord(ctx, record)
}

func (s *shiftService) deleteRecord(ctx context.Context, record *model.AttendanceRecord) error {
	if err := s.repo.Attendance.Delete(ctx, record.AttendanceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttendanceNotFound
		}
		s.logger.Error("删除出勤失败", zap.String("attendance_id", record.AttendanceID), zap.Error(err))
		return err
	}
	if record.IsOpen() {
		s.endShift(record.DriverID)
	}
	return nil
}

// ── 辅助函数 ──

// patchTime 缺省不变，空字符串清除，否则按 RFC3339 解析
func patchTime(current *time.Time, patch *string) (*time.Time, error) {
	if patch == nil {
		return current, nil
	}
	if *patch == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *patch)
	if err != nil {
		return nil, ErrInvalidTimeFormat
	}
	t = t.UTC()
	return &t, nil
}

func (s *shiftService) reload(ctx context.Context, record *model.AttendanceRecord) *model.AttendanceRecord {
	if fresh, err := s.repo.Attendance.GetByID(ctx, record.AttendanceID); err == nil {
		return fresh
	}
	return record
}

func (s *shiftService) shiftResponse(driverID string, record *model.AttendanceRecord) *dto.ShiftResponse {
	in, _ := s.store.Interaction(driverID)
	open := record != nil && record.IsOpen()
	return &dto.ShiftResponse{
		DriverID:   driverID,
		State:      string(hos.StateOf(open, open && in.StopPending)),
		Attendance: toAttendanceResponse(record),
	}
}

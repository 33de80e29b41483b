package hos

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SwapStep 换车流程已完成的步骤
type SwapStep string

const (
	SwapPending SwapStep = "pending" // 尚未关闭旧派车
	SwapClosed  SwapStep = "closed"  // 旧派车已关闭，新派车未建立
	SwapOpened  SwapStep = "opened"  // 完成
)

var (
	ErrSwapCloseFailed = errors.New("关闭当前派车失败")
	ErrSwapOpenFailed  = errors.New("建立新派车失败")
)

// SwapSteps 换车两步操作的执行方
type SwapSteps interface {
	// CloseAssignment 关闭派车，返回实际写入的结束时间
	CloseAssignment(ctx context.Context, assignmentID, attendanceID string, at time.Time) (time.Time, error)
	// OpenAssignment 以 at 为开始时间建立新派车，返回新派车 ID
	OpenAssignment(ctx context.Context, attendanceID, truckID string, at time.Time) (string, error)
}

// SwapSaga 换车流程：先关旧车，成功后以关闭时间为起点建立新车。
// 非事务：每一步完成后记录进度，失败后从记录的步骤继续，
// 第二步失败不会重做第一步。
type SwapSaga struct {
	ID                string     `json:"id"`
	DriverID          string     `json:"driver_id"`
	AttendanceID      string     `json:"attendance_id"`
	FromAssignmentID  string     `json:"from_assignment_id"`
	FromTruckID       string     `json:"from_truck_id"`
	ToTruckID         string     `json:"to_truck_id"`
	LastCompletedStep SwapStep   `json:"last_completed_step"`
	AnchorTime        *time.Time `json:"anchor_time,omitempty"` // 旧车结束时间 = 新车开始时间
	NewAssignmentID   string     `json:"new_assignment_id,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewSwapSaga 创建换车流程
func NewSwapSaga(id, driverID, attendanceID, fromAssignmentID, fromTruckID, toTruckID string, now time.Time) *SwapSaga {
	return &SwapSaga{
		ID:                id,
		DriverID:          driverID,
		AttendanceID:      attendanceID,
		FromAssignmentID:  fromAssignmentID,
		FromTruckID:       fromTruckID,
		ToTruckID:         toTruckID,
		LastCompletedStep: SwapPending,
		StartedAt:         now,
		UpdatedAt:         now,
	}
}

// Done 流程是否已完成
func (s *SwapSaga) Done() bool {
	return s.LastCompletedStep == SwapOpened
}

// Partial 旧车已关闭但新车未建立：司机在班、无车，可重新派车
func (s *SwapSaga) Partial() bool {
	return s.LastCompletedStep == SwapClosed
}

// Run 从已记录的步骤继续执行，直至完成或某一步失败
func (s *SwapSaga) Run(ctx context.Context, steps SwapSteps, now time.Time) error {
	if s.LastCompletedStep == SwapPending {
		closedAt, err := steps.CloseAssignment(ctx, s.FromAssignmentID, s.AttendanceID, now)
		if err != nil {
			s.fail(err, now)
			return fmt.Errorf("%w: %v", ErrSwapCloseFailed, err)
		}
		s.AnchorTime = &closedAt
		s.LastCompletedStep = SwapClosed
		s.LastError = ""
		s.UpdatedAt = now
	}

	if s.LastCompletedStep == SwapClosed {
		id, err := steps.OpenAssignment(ctx, s.AttendanceID, s.ToTruckID, *s.AnchorTime)
		if err != nil {
			s.fail(err, now)
			return fmt.Errorf("%w: %v", ErrSwapOpenFailed, err)
		}
		s.NewAssignmentID = id
		s.LastCompletedStep = SwapOpened
		s.LastError = ""
		s.UpdatedAt = now
	}
	return nil
}

func (s *SwapSaga) fail(err error, now time.Time) {
	s.LastError = err.Error()
	s.UpdatedAt = now
}

package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/bukulele/beontrack-portal-sub001/internal/board"
	"github.com/bukulele/beontrack-portal-sub001/internal/hos"
	"github.com/bukulele/beontrack-portal-sub001/internal/model"
	"github.com/bukulele/beontrack-portal-sub001/internal/repository"
)

// ── 测试辅助 ──

// at 2025-06-01 为周日，day=1 即周一
func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.June, 1+day, hour, minute, 0, 0, time.UTC)
}

func tp(t time.Time) *time.Time { return &t }

func weekdays() *model.WeekDays {
	return &model.WeekDays{Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true}
}

type countingRefresher struct{ n int }

func (c *countingRefresher) Trigger() { c.n++ }

type testEnv struct {
	db        *mockDB
	repo      *repository.Repository
	store     *board.Store
	refresher *countingRefresher
	now       time.Time

	board   *boardService
	trucks  *truckService
	shifts  *shiftService
	drivers *driverService
	export  *exportService
}

func newTestEnv(now time.Time) *testEnv {
	db := newMockDB()
	env := &testEnv{
		db:        db,
		repo:      db.repository(),
		store:     board.NewStore(),
		refresher: &countingRefresher{},
		now:       now,
	}
	clk := func() time.Time { return env.now }
	logger := zap.NewNop()
	policy := hos.DefaultPolicy()
	lookback := 8 * 24 * time.Hour

	env.board = NewBoardService(env.repo, env.store, nil, policy, lookback, 30*time.Second, logger).(*boardService)
	env.board.now = clk

	env.trucks = NewTruckService(env.repo, env.store, env.refresher, lookback, logger).(*truckService)
	env.trucks.now = clk

	env.shifts = NewShiftService(env.repo, env.store, policy, env.refresher, env.trucks, lookback, logger).(*shiftService)
	env.shifts.now = clk

	env.drivers = NewDriverService(env.repo, env.refresher, logger).(*driverService)

	env.export = NewExportService(env.repo, env.board, policy, logger).(*exportService)
	env.export.now = clk
	return env
}

func (e *testEnv) addDriver(id, name string, compliant bool, days *model.WeekDays) *model.Driver {
	d := &model.Driver{
		DriverID:  id,
		Name:      name,
		Terminal:  "TOR",
		Routes:    []string{model.RouteLongHaul},
		Status:    "active",
		Compliant: compliant,
	}
	e.db.drivers[id] = d
	if days != nil {
		e.db.schedules[id] = model.NewDriverSchedule(id, *days)
	}
	return d
}

func (e *testEnv) addTruck(id, unit string) *model.Truck {
	t := &model.Truck{TruckID: id, UnitNumber: unit, PlateNumber: "P-" + unit, Terminal: "TOR", IsActive: true}
	e.db.trucks[id] = t
	return t
}

// addShift 直接写入一条出勤记录（out 为 nil 表示进行中）
func (e *testEnv) addShift(id, driverID string, in time.Time, out *time.Time) *model.AttendanceRecord {
	r := &model.AttendanceRecord{AttendanceID: id, DriverID: driverID, CheckInTime: &in, CheckOutTime: out}
	r.Version = 1
	e.db.records[id] = r
	return r
}

func (e *testEnv) addAssignment(id, attendanceID, truckID string, start time.Time, end *time.Time) *model.TruckAssignment {
	a := &model.TruckAssignment{TruckAssignmentID: id, AttendanceID: attendanceID, TruckID: truckID, TruckStartTime: &start, TruckEndTime: end}
	e.db.assignments[id] = a
	return a
}

func (e *testEnv) openRecords(driverID string) int {
	n := 0
	for _, r := range e.db.records {
		if r.DriverID == driverID && r.IsOpen() {
			n++
		}
	}
	return n
}

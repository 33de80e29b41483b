package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/bukulele/beontrack-portal-sub001/internal/model"
	"github.com/bukulele/beontrack-portal-sub001/internal/repository"
	pkgerrors "github.com/bukulele/beontrack-portal-sub001/pkg/errors"
)

// mockDB 内存数据源，所有 mock 仓储共享；读取返回副本，与数据库行为一致
type mockDB struct {
	drivers     map[string]*model.Driver
	schedules   map[string]*model.DriverSchedule
	trucks      map[string]*model.Truck
	records     map[string]*model.AttendanceRecord
	assignments map[string]*model.TruckAssignment
	seq         int

	// 故障注入
	assignCreateErr error
	assignStopErr   error
	listErr         error
}

func newMockDB() *mockDB {
	return &mockDB{
		drivers:     make(map[string]*model.Driver),
		schedules:   make(map[string]*model.DriverSchedule),
		trucks:      make(map[string]*model.Truck),
		records:     make(map[string]*model.AttendanceRecord),
		assignments: make(map[string]*model.TruckAssignment),
	}
}

func (m *mockDB) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *mockDB) repository() *repository.Repository {
	return &repository.Repository{
		Driver:          &mockDriverRepo{m},
		DriverSchedule:  &mockScheduleRepo{m},
		Truck:           &mockTruckRepo{m},
		Attendance:      &mockAttendanceRepo{m},
		TruckAssignment: &mockAssignmentRepo{m},
	}
}

// withAssignments 返回带派车（按开始时间升序）的出勤副本
func (m *mockDB) withAssignments(r *model.AttendanceRecord) model.AttendanceRecord {
	cp := *r
	cp.TruckAssignments = nil
	for _, a := range m.assignments {
		if a.AttendanceID == r.AttendanceID {
			cp.TruckAssignments = append(cp.TruckAssignments, m.assignmentCopy(a))
		}
	}
	sort.Slice(cp.TruckAssignments, func(i, j int) bool {
		return cp.TruckAssignments[i].TruckStartTime.Before(*cp.TruckAssignments[j].TruckStartTime)
	})
	return cp
}

func (m *mockDB) assignmentCopy(a *model.TruckAssignment) model.TruckAssignment {
	cp := *a
	if t, ok := m.trucks[a.TruckID]; ok {
		truck := *t
		cp.Truck = &truck
	}
	return cp
}

func (m *mockDB) openAssignmentForTruck(truckID string) bool {
	for _, a := range m.assignments {
		if a.TruckID == truckID && a.IsOpen() {
			return true
		}
	}
	return false
}

// ── Mock DriverRepository ──

type mockDriverRepo struct{ db *mockDB }

func (r *mockDriverRepo) ListAvailable(_ context.Context, route, terminal string) ([]model.Driver, error) {
	if r.db.listErr != nil {
		return nil, r.db.listErr
	}
	var result []model.Driver
	for _, d := range r.db.drivers {
		if d.Status != "active" {
			continue
		}
		if route != "" && !d.HasRoute(route) {
			continue
		}
		if terminal != "" && d.Terminal != terminal {
			continue
		}
		result = append(result, *d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *mockDriverRepo) GetByID(_ context.Context, id string) (*model.Driver, error) {
	if d, ok := r.db.drivers[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockDriverRepo) UpdateNightDriver(_ context.Context, id string, nightDriver bool) error {
	d, ok := r.db.drivers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	d.NightDriver = nightDriver
	return nil
}

// ── Mock DriverScheduleRepository ──

type mockScheduleRepo struct{ db *mockDB }

func (r *mockScheduleRepo) List(_ context.Context) ([]model.DriverSchedule, error) {
	var result []model.DriverSchedule
	for _, s := range r.db.schedules {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DriverID < result[j].DriverID })
	return result, nil
}

func (r *mockScheduleRepo) GetByDriver(_ context.Context, driverID string) (*model.DriverSchedule, error) {
	if s, ok := r.db.schedules[driverID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockScheduleRepo) Upsert(_ context.Context, schedule *model.DriverSchedule) error {
	cp := *schedule
	r.db.schedules[schedule.DriverID] = &cp
	return nil
}

func (r *mockScheduleRepo) Delete(_ context.Context, driverID string) error {
	delete(r.db.schedules, driverID)
	return nil
}

// ── Mock TruckRepository ──

type mockTruckRepo struct{ db *mockDB }

func (r *mockTruckRepo) ListActive(_ context.Context) ([]model.Truck, error) {
	var result []model.Truck
	for _, t := range r.db.trucks {
		if t.IsActive {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UnitNumber < result[j].UnitNumber })
	return result, nil
}

func (r *mockTruckRepo) ListAvailable(ctx context.Context) ([]model.Truck, error) {
	active, _ := r.ListActive(ctx)
	var result []model.Truck
	for _, t := range active {
		if !r.db.openAssignmentForTruck(t.TruckID) {
			result = append(result, t)
		}
	}
	return result, nil
}

func (r *mockTruckRepo) GetByID(_ context.Context, id string) (*model.Truck, error) {
	if t, ok := r.db.trucks[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockTruckRepo) IsAvailable(_ context.Context, id string) (bool, error) {
	t, ok := r.db.trucks[id]
	if !ok || !t.IsActive {
		return false, nil
	}
	return !r.db.openAssignmentForTruck(id), nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct{ db *mockDB }

func (r *mockAttendanceRepo) Create(_ context.Context, record *model.AttendanceRecord) error {
	if record.CheckOutTime == nil {
		for _, existing := range r.db.records {
			if existing.DriverID == record.DriverID && existing.IsOpen() {
				return pkgerrors.ErrShiftAlreadyOpen
			}
		}
	}
	if record.AttendanceID == "" {
		record.AttendanceID = r.db.nextID("att")
	}
	record.Version = 1
	cp := *record
	cp.TruckAssignments = nil
	r.db.records[record.AttendanceID] = &cp
	return nil
}

func (r *mockAttendanceRepo) GetByID(_ context.Context, id string) (*model.AttendanceRecord, error) {
	if rec, ok := r.db.records[id]; ok {
		cp := r.db.withAssignments(rec)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockAttendanceRepo) GetOpenByDriver(_ context.Context, driverID string) (*model.AttendanceRecord, error) {
	for _, rec := range r.db.records {
		if rec.DriverID == driverID && rec.IsOpen() {
			cp := r.db.withAssignments(rec)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockAttendanceRepo) GetLatestByDriver(_ context.Context, driverID string) (*model.AttendanceRecord, error) {
	var latest *model.AttendanceRecord
	for _, rec := range r.db.records {
		if rec.DriverID != driverID || rec.CheckInTime == nil {
			continue
		}
		if latest == nil || rec.CheckInTime.After(*latest.CheckInTime) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := r.db.withAssignments(latest)
	return &cp, nil
}

func (r *mockAttendanceRepo) List(_ context.Context, filter repository.AttendanceFilter) ([]model.AttendanceRecord, error) {
	if r.db.listErr != nil {
		return nil, r.db.listErr
	}
	var result []model.AttendanceRecord
	for _, rec := range r.db.records {
		if filter.DriverID != "" && rec.DriverID != filter.DriverID {
			continue
		}
		if !filter.From.IsZero() {
			inWindow := !rec.CheckInTime.Before(filter.From) ||
				rec.CheckOutTime == nil ||
				!rec.CheckOutTime.Before(filter.From)
			if !inWindow {
				continue
			}
		}
		if !filter.To.IsZero() && rec.CheckInTime.After(filter.To) {
			continue
		}
		result = append(result, r.db.withAssignments(rec))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CheckInTime.Before(*result[j].CheckInTime) })
	return result, nil
}

func (r *mockAttendanceRepo) ListDangling(_ context.Context, since time.Time) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, rec := range r.db.records {
		if rec.CheckOutTime == nil || rec.CheckOutTime.Before(since) {
			continue
		}
		cp := r.db.withAssignments(rec)
		for _, a := range cp.TruckAssignments {
			if a.IsOpen() {
				result = append(result, cp)
				break
			}
		}
	}
	return result, nil
}

func (r *mockAttendanceRepo) Update(_ context.Context, record *model.AttendanceRecord) error {
	stored, ok := r.db.records[record.AttendanceID]
	if !ok || stored.Version != record.Version {
		return pkgerrors.ErrOptimisticLock
	}
	if record.CheckOutTime == nil {
		for _, other := range r.db.records {
			if other.AttendanceID != record.AttendanceID && other.DriverID == record.DriverID && other.IsOpen() {
				return pkgerrors.ErrShiftAlreadyOpen
			}
		}
	}
	record.Version++
	cp := *record
	cp.TruckAssignments = nil
	r.db.records[record.AttendanceID] = &cp
	return nil
}

func (r *mockAttendanceRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.db.records[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.db.records, id)
	for aid, a := range r.db.assignments {
		if a.AttendanceID == id {
			delete(r.db.assignments, aid)
		}
	}
	return nil
}

// ── Mock TruckAssignmentRepository ──

type mockAssignmentRepo struct{ db *mockDB }

func (r *mockAssignmentRepo) Create(_ context.Context, a *model.TruckAssignment) error {
	if r.db.assignCreateErr != nil {
		return r.db.assignCreateErr
	}
	for _, existing := range r.db.assignments {
		if existing.AttendanceID == a.AttendanceID && existing.IsOpen() {
			return pkgerrors.ErrAssignmentAlreadyOpen
		}
	}
	if a.TruckAssignmentID == "" {
		a.TruckAssignmentID = r.db.nextID("ta")
	}
	cp := *a
	cp.Truck = nil
	r.db.assignments[a.TruckAssignmentID] = &cp
	return nil
}

func (r *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.TruckAssignment, error) {
	if a, ok := r.db.assignments[id]; ok {
		cp := r.db.assignmentCopy(a)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockAssignmentRepo) Stop(ctx context.Context, assignmentID, attendanceID string, endTime time.Time) (*model.TruckAssignment, error) {
	if r.db.assignStopErr != nil {
		return nil, r.db.assignStopErr
	}
	a, ok := r.db.assignments[assignmentID]
	if !ok || a.AttendanceID != attendanceID || !a.IsOpen() {
		return nil, gorm.ErrRecordNotFound
	}
	a.TruckEndTime = &endTime
	return r.GetByID(ctx, assignmentID)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bukulele/beontrack-portal-sub001/internal/board"
	"github.com/bukulele/beontrack-portal-sub001/internal/dto"
	"github.com/bukulele/beontrack-portal-sub001/internal/hos"
	"github.com/bukulele/beontrack-portal-sub001/internal/model"
	"github.com/bukulele/beontrack-portal-sub001/internal/repository"
)

// ── 看板模块业务错误 ──

var (
	ErrBoardUnavailable = errors.New("看板数据暂不可用，请稍后重试")
)

// SnapshotCache 看板快照缓存（Redis）
type SnapshotCache interface {
	SaveBoardSnapshot(ctx context.Context, payload []byte, ttl time.Duration) error
	LoadBoardSnapshot(ctx context.Context) ([]byte, error)
}

// BoardService 调度看板业务接口
//
// 设计说明：
//   - 每轮刷新并行拉取 司机 / 排班 / 出勤窗口 / 在用车辆 / 可用车辆，全量重建所有行
//   - 刷新由 board.Loop 驱动：固定间隔 + 写操作完成后触发 + 手动刷新
//   - 待确认下班、进行中的换车存于 board.Store 的交互状态，刷新不覆盖
//   - 成功构建的快照写入 Redis；本地尚无快照时以缓存兜底
type BoardService interface {
	Refresher
	// Run 阻塞运行刷新循环直至 ctx 取消
	Run(ctx context.Context) error
	// Refresh 同步刷新并重置倒计时
	Refresh(ctx context.Context) error
	Get(ctx context.Context, req *dto.BoardRequest) (*dto.BoardResponse, error)
	// Current 当前快照；本地无快照时同步构建
	Current(ctx context.Context) (*board.Snapshot, error)
}

type boardService struct {
	repo     *repository.Repository
	store    *board.Store
	loop     *board.Loop
	cache    SnapshotCache
	policy   hos.Policy
	lookback time.Duration
	interval time.Duration
	logger   *zap.Logger
	now      clock
}

// NewBoardService 创建 BoardService 实例
func NewBoardService(
	repo *repository.Repository,
	store *board.Store,
	cache SnapshotCache,
	policy hos.Policy,
	lookback, interval time.Duration,
	logger *zap.Logger,
) BoardService {
	s := &boardService{
		repo:     repo,
		store:    store,
		cache:    cache,
		policy:   policy,
		lookback: lookback,
		interval: interval,
		logger:   logger,
		now:      systemClock,
	}
	s.loop = board.NewLoop(store, s.build, interval, logger)
	s.loop.OnBuilt(s.saveToCache)
	return s
}

func (s *boardService) Run(ctx context.Context) error {
	return s.loop.Run(ctx)
}

func (s *boardService) Trigger() {
	s.loop.Trigger()
}

func (s *boardService) Refresh(ctx context.Context) error {
	return s.loop.Refresh(ctx)
}

// ────────────────────── Get ──────────────────────

func (s *boardService) Get(ctx context.Context, req *dto.BoardRequest) (*dto.BoardResponse, error) {
	if req.Refresh {
		if err := s.Refresh(ctx); err != nil {
			s.logger.Warn("手动刷新看板失败，返回已有数据", zap.Error(err))
		}
	}

	snap, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	stale := s.store.Stale()
	if stale {
		s.Trigger()
	}

	filter := board.Filter{Terminal: req.Terminal, Route: req.Route}
	interactions := s.store.Interactions()

	resp := &dto.BoardResponse{
		Rows:            make([]dto.BoardRowResponse, 0, len(snap.Rows)),
		ActiveTrucks:    toTruckResponses(snap.ActiveTrucks),
		AvailableTrucks: toTruckResponses(snap.AvailableTrucks),
		BuiltAt:         snap.BuiltAt.UTC().Format(time.RFC3339),
		Stale:           stale,
	}
	for i := range snap.Rows {
		row := &snap.Rows[i]
		if !filter.Match(row) {
			continue
		}
		resp.Rows = append(resp.Rows, toBoardRowResponse(row, interactions[row.Driver.DriverID]))
	}
	return resp, nil
}

// ────────────────────── Current ──────────────────────

func (s *boardService) Current(ctx context.Context) (*board.Snapshot, error) {
	if snap := s.store.Snapshot(); snap != nil {
		return snap, nil
	}

	// 本实例尚未完成首次刷新：先用缓存，再同步构建
	if snap := s.loadFromCache(ctx); snap != nil {
		s.store.Replace(snap)
		s.store.Invalidate()
		return snap, nil
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.Error("构建看板失败", zap.Error(err))
		return nil, ErrBoardUnavailable
	}
	snap := s.store.Snapshot()
	if snap == nil {
		return nil, ErrBoardUnavailable
	}
	return snap, nil
}

// ═══════════════════════════════════════════════════════════
// build：全量重建看板快照
// ═══════════════════════════════════════════════════════════

func (s *boardService) build(ctx context.Context) (*board.Snapshot, error) {
	now := s.now()

	var (
		drivers   []model.Driver
		schedules []model.DriverSchedule
		records   []model.AttendanceRecord
		active    []model.Truck
		available []model.Truck
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		drivers, err = s.repo.Driver.ListAvailable(gctx, "", "")
		return err
	})
	g.Go(func() (err error) {
		schedules, err = s.repo.DriverSchedule.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		records, err = s.repo.Attendance.List(gctx, repository.AttendanceFilter{From: now.Add(-s.lookback)})
		return err
	})
	g.Go(func() (err error) {
		active, err = s.repo.Truck.ListActive(gctx)
		return err
	})
	g.Go(func() (err error) {
		available, err = s.repo.Truck.ListAvailable(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scheduleByDriver := make(map[string]model.WeekDays, len(schedules))
	for i := range schedules {
		scheduleByDriver[schedules[i].DriverID] = schedules[i].WeekDays()
	}
	recordsByDriver := make(map[string][]model.AttendanceRecord)
	for _, r := range records {
		recordsByDriver[r.DriverID] = append(recordsByDriver[r.DriverID], r)
	}

	rows := make([]board.Row, 0, len(drivers))
	for i := range drivers {
		d := drivers[i]
		var schedule *model.WeekDays
		if w, ok := scheduleByDriver[d.DriverID]; ok {
			schedule = &w
		}
		rows = append(rows, buildRow(s.policy, d, schedule, recordsByDriver[d.DriverID], now))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Driver.Name < rows[j].Driver.Name
	})

	return &board.Snapshot{
		Rows:            rows,
		ActiveTrucks:    active,
		AvailableTrucks: available,
		BuiltAt:         now,
	}, nil
}

// buildRow 由一名司机的排班与出勤窗口计算看板行
func buildRow(policy hos.Policy, d model.Driver, schedule *model.WeekDays, records []model.AttendanceRecord, now time.Time) board.Row {
	last := hos.LastShift(records, d.DriverID)
	current := hos.CurrentWeeklyHours(records, d.DriverID, last, now, policy.Window)

	row := board.Row{
		Driver:           d,
		Schedule:         schedule,
		LastShift:        last,
		WorkingHoursWeek: hos.WeeklyHours(records, d.DriverID, now, policy.Window),
		CurrentHours:     current,
		CurrentTruck:     hos.CurrentAssignment(last),
		DanglingTruck:    hos.IsDangling(last),
		Availability: policy.Evaluate(hos.Input{
			Compliant:      d.Compliant,
			ComplianceNote: d.ComplianceNote,
			Schedule:       schedule,
			LastShift:      last,
			WeeklyHours:    current,
			Now:            now,
		}),
	}
	return row
}

// ── 缓存 ──

func (s *boardService) saveToCache(snap *board.Snapshot) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		s.logger.Warn("序列化看板快照失败", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.SaveBoardSnapshot(ctx, payload, 10*s.interval); err != nil {
		s.logger.Warn("写入看板缓存失败", zap.Error(err))
	}
}

func (s *boardService) loadFromCache(ctx context.Context) *board.Snapshot {
	if s.cache == nil {
		return nil
	}
	payload, err := s.cache.LoadBoardSnapshot(ctx)
	if err != nil {
		s.logger.Warn("读取看板缓存失败", zap.Error(err))
		return nil
	}
	if payload == nil {
		return nil
	}
	var snap board.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		s.logger.Warn("解析看板缓存失败", zap.Error(err))
		return nil
	}
	return &snap
}

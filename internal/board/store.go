// Package board 维护调度看板：周期性全量重建的司机行数据，
// 以及与行数据分离、跨刷新保留的交互状态（待确认下班、进行中的换车）。
package board

import (
	"sync"
	"time"

	"github.com/bukulele/beontrack-portal-sub001/internal/hos"
	"github.com/bukulele/beontrack-portal-sub001/internal/model"
)

// Row 看板上一名司机的汇总行（派生数据，不落库）
type Row struct {
	Driver           model.Driver            `json:"driver"`
	Schedule         *model.WeekDays         `json:"schedule,omitempty"`
	LastShift        *model.AttendanceRecord `json:"last_shift,omitempty"`
	WorkingHoursWeek float64                 `json:"working_hours_week"` // 仅已结束班次
	CurrentHours     float64                 `json:"current_hours"`      // 含进行中班次
	CurrentTruck     *model.TruckAssignment  `json:"current_truck,omitempty"`
	DanglingTruck    bool                    `json:"dangling_truck"`
	Availability     hos.Result              `json:"availability"`
}

// Snapshot 一次刷新的完整结果
type Snapshot struct {
	Rows            []Row         `json:"rows"`
	ActiveTrucks    []model.Truck `json:"active_trucks"`
	AvailableTrucks []model.Truck `json:"available_trucks"`
	BuiltAt         time.Time     `json:"built_at"`
}

// Interaction 单个司机行上的进行中操作，刷新时不会被覆盖
type Interaction struct {
	StopPending     bool          `json:"stop_pending"`
	StopRequestedAt *time.Time    `json:"stop_requested_at,omitempty"`
	Swap            *hos.SwapSaga `json:"swap,omitempty"`
}

func (i *Interaction) empty() bool {
	return !i.StopPending && i.Swap == nil
}

// Filter 看板筛选条件
type Filter struct {
	Terminal string
	Route    string
}

// Match 行是否满足筛选
func (f Filter) Match(row *Row) bool {
	if f.Terminal != "" && row.Driver.Terminal != f.Terminal {
		return false
	}
	if f.Route != "" && !row.Driver.HasRoute(f.Route) {
		return false
	}
	return true
}

// Store 看板内存存储，并发安全
type Store struct {
	mu           sync.RWMutex
	snapshot     *Snapshot
	index        map[string]int
	interactions map[string]*Interaction
	stale        bool
}

// NewStore 创建空看板
func NewStore() *Store {
	return &Store{
		index:        make(map[string]int),
		interactions: make(map[string]*Interaction),
	}
}

// Replace 以新快照整体替换行数据；交互状态保持不变
func (s *Store) Replace(snap *Snapshot) {
	index := make(map[string]int, len(snap.Rows))
	for i := range snap.Rows {
		index[snap.Rows[i].Driver.DriverID] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	s.index = index
	s.stale = false
}

// Snapshot 当前快照；尚未刷新过时返回 nil
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Row 按司机查找行
func (s *Store) Row(driverID string) (Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return Row{}, false
	}
	i, ok := s.index[driverID]
	if !ok {
		return Row{}, false
	}
	return s.snapshot.Rows[i], true
}

// View 按条件筛选行
func (s *Store) View(f Filter) []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil
	}
	rows := make([]Row, 0, len(s.snapshot.Rows))
	for i := range s.snapshot.Rows {
		if f.Match(&s.snapshot.Rows[i]) {
			rows = append(rows, s.snapshot.Rows[i])
		}
	}
	return rows
}

// Invalidate 标记快照过期，下一次读取前应强制刷新
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

// Stale 快照是否过期或尚未生成
func (s *Store) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale || s.snapshot == nil
}

// Interaction 读取司机行的交互状态副本
func (s *Store) Interaction(driverID string) (Interaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.interactions[driverID]
	if !ok {
		return Interaction{}, false
	}
	cp := *in
	if in.Swap != nil {
		swap := *in.Swap
		cp.Swap = &swap
	}
	return cp, true
}

// UpdateInteraction 在锁内修改交互状态；修改后为空则删除
func (s *Store) UpdateInteraction(driverID string, fn func(in *Interaction)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.interactions[driverID]
	if !ok {
		in = &Interaction{}
	}
	fn(in)
	if in.empty() {
		delete(s.interactions, driverID)
		return
	}
	s.interactions[driverID] = in
}

// ReplaceSwap 仅当当前换车进度仍是调用方读到的那一份时才写入 next（nil 表示清除）。
// expectID 为空表示期望当前没有换车进度。多名调度员并发继续同一换车时，
// 落后的一方不会用过期副本覆盖已完成的结果。
func (s *Store) ReplaceSwap(driverID, expectID string, expectUpdatedAt time.Time, next *hos.SwapSaga) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.interactions[driverID]
	if !ok {
		in = &Interaction{}
	}
	cur := in.Swap
	switch {
	case expectID == "" && cur != nil && !cur.Done():
		return false
	case expectID != "" && (cur == nil || cur.ID != expectID || !cur.UpdatedAt.Equal(expectUpdatedAt)):
		return false
	}
	in.Swap = next
	if in.empty() {
		delete(s.interactions, driverID)
		return true
	}
	s.interactions[driverID] = in
	return true
}

// Interactions 所有进行中交互的副本
func (s *Store) Interactions() map[string]Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Interaction, len(s.interactions))
	for id, in := range s.interactions {
		cp := *in
		if in.Swap != nil {
			swap := *in.Swap
			cp.Swap = &swap
		}
		out[id] = cp
	}
	return out
}

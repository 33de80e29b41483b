package board

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BuildFunc 从权威数据源全量构建快照
type BuildFunc func(ctx context.Context) (*Snapshot, error)

// Loop 看板刷新循环：固定间隔轮询 + 显式触发。
// 任意一次刷新（自动、触发或手动）之后都重置倒计时，
// 刷新之间互斥，不会出现重叠的计时器或并发重建。
type Loop struct {
	store    *Store
	build    BuildFunc
	interval time.Duration
	logger   *zap.Logger

	trigger chan struct{}
	reset   chan struct{}
	mu      sync.Mutex // 串行化刷新
	last    time.Time  // 最近一次刷新完成时间，受 mu 保护
	onBuilt func(*Snapshot)
}

// NewLoop 创建刷新循环
func NewLoop(store *Store, build BuildFunc, interval time.Duration, logger *zap.Logger) *Loop {
	return &Loop{
		store:    store,
		build:    build,
		interval: interval,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
		reset:    make(chan struct{}, 1),
	}
}

// OnBuilt 注册快照构建成功后的回调（如写入缓存）
func (l *Loop) OnBuilt(fn func(*Snapshot)) {
	l.onBuilt = fn
}

// Run 阻塞运行直至 ctx 取消；启动时立即刷新一次
func (l *Loop) Run(ctx context.Context) error {
	l.refresh(ctx)

	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			// 计时器与手动刷新同时就绪时，不在手动刷新后立刻再刷一次
			if wait := l.untilDue(); wait > 0 {
				timer.Reset(wait)
				continue
			}
			l.refresh(ctx)
		case <-l.trigger:
			l.refresh(ctx)
		case <-l.reset:
			// 手动刷新已完成，仅重置倒计时
		}
		resetTimer(timer, l.interval)
	}
}

// Trigger 请求尽快刷新；多次触发合并为一次
func (l *Loop) Trigger() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

// Refresh 同步刷新并重置自动刷新倒计时
func (l *Loop) Refresh(ctx context.Context) error {
	err := l.refresh(ctx)
	select {
	case l.reset <- struct{}{}:
	default:
	}
	return err
}

// untilDue 距下一次自动刷新还需等待的时长
func (l *Loop) untilDue() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last.IsZero() {
		return 0
	}
	return l.interval - time.Since(l.last)
}

func (l *Loop) refresh(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer func() { l.last = time.Now() }()

	snap, err := l.build(ctx)
	if err != nil {
		// 保留旧快照，等待下一轮
		l.logger.Warn("看板刷新失败", zap.Error(err))
		l.store.Invalidate()
		return err
	}
	l.store.Replace(snap)
	if l.onBuilt != nil {
		l.onBuilt(snap)
	}
	return nil
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

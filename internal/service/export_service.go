package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bukulele/beontrack-portal-sub001/internal/board"
	"github.com/bukulele/beontrack-portal-sub001/internal/hos"
	"github.com/bukulele/beontrack-portal-sub001/internal/model"
	"github.com/bukulele/beontrack-portal-sub001/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 周工时报表：以当前看板快照生成 Excel (.xlsx)，每名司机一行
//   - 司机班次日历：出勤窗口内的班次导出为 iCalendar (.ics)，进行中的班次以当前时间为结束
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportBoard 导出周工时报表
	ExportBoard(ctx context.Context) (*bytes.Buffer, string, error)
	// ExportDriverShifts 导出司机班次日历
	ExportDriverShifts(ctx context.Context, driverID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	board  BoardService
	policy hos.Policy
	logger *zap.Logger
	now    clock
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, boardSvc BoardService, policy hos.Policy, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, board: boardSvc, policy: policy, logger: logger, now: systemClock}
}

// ═══════════════════════════════════════════════════════════
// ExportBoard：周工时报表
// ═══════════════════════════════════════════════════════════
//
// 列：Driver | Terminal | Routes | Closed hours | Current hours | Remaining | Status | Truck

var boardHeaders = []string{"Driver", "Terminal", "Routes", "Closed hours (7d)", "Current hours (7d)", "Remaining", "Status", "Truck"}

func (s *exportService) ExportBoard(ctx context.Context) (*bytes.Buffer, string, error) {
	snap, err := s.board.Current(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Weekly Hours"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 24)
	f.SetColWidth(sheetName, "B", "C", 16)
	f.SetColWidth(sheetName, "D", "F", 18)
	f.SetColWidth(sheetName, "G", "G", 30)
	f.SetColWidth(sheetName, "H", "H", 12)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	disabledStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#C00000"},
	})

	// 标题行
	built := s.policy.Local(snap.BuiltAt)
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Driver hours %s", built.Format("2006-01-02 15:04 MST")))
	f.MergeCell(sheetName, "A1", cell(colName(len(boardHeaders)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range boardHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(boardHeaders)-1), 2), headerStyle)

	// 数据行
	row := 3
	for i := range snap.Rows {
		r := &snap.Rows[i]
		remaining := s.policy.MaxWeeklyHours - r.CurrentHours
		if remaining < 0 {
			remaining = 0
		}
		f.SetCellValue(sheetName, cell("A", row), r.Driver.Name)
		f.SetCellValue(sheetName, cell("B", row), r.Driver.Terminal)
		f.SetCellValue(sheetName, cell("C", row), strings.Join(r.Driver.Routes, ", "))
		f.SetCellFloat(sheetName, cell("D", row), r.WorkingHoursWeek, 2, 64)
		f.SetCellFloat(sheetName, cell("E", row), r.CurrentHours, 2, 64)
		f.SetCellFloat(sheetName, cell("F", row), remaining, 2, 64)
		f.SetCellValue(sheetName, cell("G", row), rowStatus(r))
		f.SetCellValue(sheetName, cell("H", row), truckLabel(r.CurrentTruck))
		if r.Availability.Disabled && !r.Availability.OnShift {
			f.SetCellStyle(sheetName, cell("G", row), cell("G", row), disabledStyle)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("driver_hours_%s.xlsx", built.Format("20060102_1504"))
	return buf, filename, nil
}

func rowStatus(r *board.Row) string {
	switch {
	case r.Availability.OnShift:
		return "On shift " + r.Availability.TimerLabel
	case r.Availability.Disabled:
		if r.Availability.TimerKind == hos.TimerCountdown {
			return r.Availability.Reason + " " + r.Availability.TimerLabel
		}
		return r.Availability.Reason
	default:
		return "Available"
	}
}

func truckLabel(a *model.TruckAssignment) string {
	if a == nil {
		return "-"
	}
	if a.Truck != nil {
		return a.Truck.UnitNumber
	}
	return a.TruckID
}

// ═══════════════════════════════════════════════════════════
// ExportDriverShifts：司机班次日历
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportDriverShifts(ctx context.Context, driverID string) (*bytes.Buffer, string, error) {
	driver, err := s.repo.Driver.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrDriverNotFound
		}
		return nil, "", err
	}

	now := s.now()
	records, err := s.repo.Attendance.List(ctx, repository.AttendanceFilter{
		DriverID: driverID,
		From:     now.Add(-s.policy.Window),
	})
	if err != nil {
		s.logger.Error("查询出勤记录失败", zap.String("driver_id", driverID), zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//fleet-hos//shifts//EN")
	cal.SetXWRCalName(fmt.Sprintf("%s shifts", driver.Name))

	for i := range records {
		r := &records[i]
		if r.CheckInTime == nil {
			continue
		}
		end := now
		summary := "Shift (open)"
		if r.CheckOutTime != nil {
			end = *r.CheckOutTime
			summary = "Shift"
		}

		event := cal.AddEvent(r.AttendanceID + "@fleet-hos")
		event.SetDtStampTime(now)
		event.SetStartAt(r.CheckInTime.UTC())
		event.SetEndAt(end.UTC())
		event.SetSummary(fmt.Sprintf("%s: %s", summary, driver.Name))
		event.SetLocation(driver.Terminal)
		event.SetDescription(shiftDescription(r, end))
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("shifts_%s.ics", driverID)
	return buf, filename, nil
}

func shiftDescription(r *model.AttendanceRecord, end time.Time) string {
	hours := end.Sub(*r.CheckInTime).Hours()
	var b strings.Builder
	fmt.Fprintf(&b, "Worked %.2f h", hours)
	for i := range r.TruckAssignments {
		a := &r.TruckAssignments[i]
		fmt.Fprintf(&b, "; truck %s", truckLabel(a))
	}
	return b.String()
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

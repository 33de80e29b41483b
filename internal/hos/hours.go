package hos

import (
	"time"

	"github.com/bukulele/beontrack-portal-sub001/internal/model"
)

// WeeklyHours 计算截至 now 的滚动窗口内已结束班次的工时（小时，带小数）。
// 跨越窗口起点的班次只计窗口内的部分；进行中的班次不计入，
// 由 LiveHours 单独补足，便于汇总值独立于实时时钟缓存。
// 缺失上下班时间的记录贡献为 0。
func WeeklyHours(records []model.AttendanceRecord, driverID string, now time.Time, window time.Duration) float64 {
	windowStart := now.Add(-window)

	var total time.Duration
	for i := range records {
		r := &records[i]
		if r.DriverID != driverID || r.CheckInTime == nil || r.CheckOutTime == nil {
			continue
		}
		total += overlap(*r.CheckInTime, *r.CheckOutTime, windowStart, now)
	}
	return total.Hours()
}

// LiveHours 进行中班次在窗口内已经过的工时；班次已结束或不存在时为 0
func LiveHours(lastShift *model.AttendanceRecord, now time.Time, window time.Duration) float64 {
	if lastShift == nil || !lastShift.IsOpen() {
		return 0
	}
	return overlap(*lastShift.CheckInTime, now, now.Add(-window), now).Hours()
}

// CurrentWeeklyHours 截至此刻的周工时 = 已结束班次汇总 + 进行中班次已用时
func CurrentWeeklyHours(records []model.AttendanceRecord, driverID string, lastShift *model.AttendanceRecord, now time.Time, window time.Duration) float64 {
	total := WeeklyHours(records, driverID, now, window)
	if lastShift != nil && lastShift.DriverID == driverID {
		total += LiveHours(lastShift, now, window)
	}
	return total
}

// LastShift 返回司机最近一次（按上班时间）的班次，无记录返回 nil
func LastShift(records []model.AttendanceRecord, driverID string) *model.AttendanceRecord {
	var last *model.AttendanceRecord
	for i := range records {
		r := &records[i]
		if r.DriverID != driverID || r.CheckInTime == nil {
			continue
		}
		if last == nil || r.CheckInTime.After(*last.CheckInTime) {
			last = r
		}
	}
	return last
}

// overlap 区间 [a0,a1) 与 [b0,b1) 的重叠时长
func overlap(a0, a1, b0, b1 time.Time) time.Duration {
	start := a0
	if b0.After(start) {
		start = b0
	}
	end := a1
	if b1.Before(end) {
		end = b1
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

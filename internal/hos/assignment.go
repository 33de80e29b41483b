package hos

import (
	"time"

	"github.com/bukulele/beontrack-portal-sub001/internal/model"
)

// CurrentAssignment 班次当前的派车：未结束派车中开始时间最晚的一条，无则 nil
func CurrentAssignment(record *model.AttendanceRecord) *model.TruckAssignment {
	if record == nil {
		return nil
	}
	var current *model.TruckAssignment
	for i := range record.TruckAssignments {
		a := &record.TruckAssignments[i]
		if !a.IsOpen() || a.TruckStartTime == nil {
			continue
		}
		if current == nil || a.TruckStartTime.After(*current.TruckStartTime) {
			current = a
		}
	}
	return current
}

// IsDangling 班次已结束但仍有未结束的派车
func IsDangling(record *model.AttendanceRecord) bool {
	return record != nil && record.CheckOutTime != nil && CurrentAssignment(record) != nil
}

// ClearEndTime 无替换强制收车时的结束时间：
// 班次已结束取下班时间，使历史报表反映真实用车结束；否则取 now。
// 结束时间不早于派车开始时间。
func ClearEndTime(record *model.AttendanceRecord, assignment *model.TruckAssignment, now time.Time) time.Time {
	end := now
	if record != nil && record.CheckOutTime != nil {
		end = *record.CheckOutTime
	}
	if assignment != nil && assignment.TruckStartTime != nil && end.Before(*assignment.TruckStartTime) {
		end = *assignment.TruckStartTime
	}
	return end
}

package hos

import (
	"time"

	"github.com/bukulele/beontrack-portal-sub001/internal/model"
)

// 2025-06-02 为周一
func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.June, 1+day, hour, minute, 0, 0, time.UTC)
}

func tp(t time.Time) *time.Time { return &t }

func closedShift(driverID string, in, out time.Time) model.AttendanceRecord {
	return model.AttendanceRecord{AttendanceID: driverID + "-" + in.Format("0102T1504"), DriverID: driverID, CheckInTime: tp(in), CheckOutTime: tp(out)}
}

func openShift(driverID string, in time.Time) model.AttendanceRecord {
	return model.AttendanceRecord{AttendanceID: driverID + "-" + in.Format("0102T1504"), DriverID: driverID, CheckInTime: tp(in)}
}

func weekdaysOnly() *model.WeekDays {
	return &model.WeekDays{Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true}
}

const (
	mon = 1
	tue = 2
	wed = 3
	thu = 4
)

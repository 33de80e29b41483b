package service

import (
	"time"

	"github.com/bukulele/beontrack-portal-sub001/internal/board"
	"github.com/bukulele/beontrack-portal-sub001/internal/dto"
	"github.com/bukulele/beontrack-portal-sub001/internal/hos"
	"github.com/bukulele/beontrack-portal-sub001/internal/model"
)

// ── model → dto 转换 ──

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func toDriverResponse(d *model.Driver) dto.DriverResponse {
	routes := []string(d.Routes)
	if routes == nil {
		routes = []string{}
	}
	return dto.DriverResponse{
		ID:             d.DriverID,
		Name:           d.Name,
		Terminal:       d.Terminal,
		Routes:         routes,
		Compliant:      d.Compliant,
		ComplianceNote: d.ComplianceNote,
		NightDriver:    d.NightDriver,
	}
}

func toScheduleDays(w *model.WeekDays) *dto.ScheduleDays {
	if w == nil {
		return nil
	}
	return &dto.ScheduleDays{
		Monday:    w.Monday,
		Tuesday:   w.Tuesday,
		Wednesday: w.Wednesday,
		Thursday:  w.Thursday,
		Friday:    w.Friday,
		Saturday:  w.Saturday,
		Sunday:    w.Sunday,
	}
}

func fromScheduleDays(d *dto.ScheduleDays) model.WeekDays {
	return model.WeekDays{
		Monday:    d.Monday,
		Tuesday:   d.Tuesday,
		Wednesday: d.Wednesday,
		Thursday:  d.Thursday,
		Friday:    d.Friday,
		Saturday:  d.Saturday,
		Sunday:    d.Sunday,
	}
}

func toTruckResponse(t *model.Truck) dto.TruckResponse {
	return dto.TruckResponse{
		ID:          t.TruckID,
		UnitNumber:  t.UnitNumber,
		PlateNumber: t.PlateNumber,
		Terminal:    t.Terminal,
	}
}

func toTruckResponses(trucks []model.Truck) []dto.TruckResponse {
	result := make([]dto.TruckResponse, 0, len(trucks))
	for i := range trucks {
		result = append(result, toTruckResponse(&trucks[i]))
	}
	return result
}

func toAssignmentResponse(a *model.TruckAssignment) *dto.TruckAssignmentResponse {
	if a == nil {
		return nil
	}
	resp := &dto.TruckAssignmentResponse{
		ID:           a.TruckAssignmentID,
		AttendanceID: a.AttendanceID,
		TruckID:      a.TruckID,
		StartTime:    formatTime(a.TruckStartTime),
		EndTime:      formatTime(a.TruckEndTime),
	}
	if a.Truck != nil {
		resp.UnitNumber = a.Truck.UnitNumber
	}
	return resp
}

func toAttendanceResponse(r *model.AttendanceRecord) *dto.AttendanceResponse {
	if r == nil {
		return nil
	}
	resp := &dto.AttendanceResponse{
		ID:               r.AttendanceID,
		DriverID:         r.DriverID,
		CheckInTime:      formatTime(r.CheckInTime),
		CheckOutTime:     formatTime(r.CheckOutTime),
		Version:          r.Version,
		TruckAssignments: make([]dto.TruckAssignmentResponse, 0, len(r.TruckAssignments)),
	}
	for i := range r.TruckAssignments {
		resp.TruckAssignments = append(resp.TruckAssignments, *toAssignmentResponse(&r.TruckAssignments[i]))
	}
	return resp
}

func toSwapResponse(s *hos.SwapSaga) *dto.SwapSagaResponse {
	if s == nil {
		return nil
	}
	return &dto.SwapSagaResponse{
		ID:                s.ID,
		FromTruckID:       s.FromTruckID,
		ToTruckID:         s.ToTruckID,
		LastCompletedStep: string(s.LastCompletedStep),
		AnchorTime:        formatTime(s.AnchorTime),
		NewAssignmentID:   s.NewAssignmentID,
		LastError:         s.LastError,
	}
}

func toAvailabilityResponse(r hos.Result) dto.AvailabilityResponse {
	return dto.AvailabilityResponse{
		Disabled:          r.Disabled,
		Reason:            r.Reason,
		RequiredRestHours: r.RequiredRestHours,
		TimerKind:         string(r.TimerKind),
		TimerLabel:        r.TimerLabel,
		TimerSeconds:      int64(r.Timer / time.Second),
		AvailableAt:       formatTime(r.AvailableAt),
		OnShift:           r.OnShift,
		CanStart:          r.CanStart,
		CanStop:           r.CanStop,
	}
}

func toBoardRowResponse(row *board.Row, in board.Interaction) dto.BoardRowResponse {
	return dto.BoardRowResponse{
		Driver:           toDriverResponse(&row.Driver),
		Schedule:         toScheduleDays(row.Schedule),
		LastShift:        toAttendanceResponse(row.LastShift),
		WorkingHoursWeek: row.WorkingHoursWeek,
		CurrentHours:     row.CurrentHours,
		CurrentTruck:     toAssignmentResponse(row.CurrentTruck),
		DanglingTruck:    row.DanglingTruck,
		Availability:     toAvailabilityResponse(row.Availability),
		StopPending:      in.StopPending,
		Swap:             toSwapResponse(in.Swap),
	}
}

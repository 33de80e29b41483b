package hos

import (
	"fmt"
	"time"

	"github.com/bukulele/beontrack-portal-sub001/internal/model"
)

// 不可上班原因（按优先级排列）
const (
	ReasonNotCompliant  = "Driver is not compliant!"
	ReasonScheduleEmpty = "Driver schedule is empty!"
	ReasonDayOff        = "Day off today!"
	ReasonWeeklyLimit   = "Weekly hours limit reached!"
	ReasonResting       = "Rest period in progress!"
)

// TimerKind 看板计时器类型
type TimerKind string

const (
	TimerNone      TimerKind = "none"
	TimerCountdown TimerKind = "countdown" // 剩余休息时间
	TimerStopwatch TimerKind = "stopwatch" // 本班已工作时间
)

// Input 规则评估输入
type Input struct {
	Compliant      bool
	ComplianceNote string
	Schedule       *model.WeekDays // nil 表示未设置排班
	LastShift      *model.AttendanceRecord
	WeeklyHours    float64 // 含进行中班次的实时周工时
	Now            time.Time
}

// Result 规则评估结果
type Result struct {
	Disabled          bool          `json:"disabled"`
	Reason            string        `json:"reason,omitempty"`
	RequiredRestHours int           `json:"required_rest_hours"`
	TimerKind         TimerKind     `json:"timer_kind"`
	Timer             time.Duration `json:"-"`
	TimerLabel        string        `json:"timer_label,omitempty"`
	AvailableAt       *time.Time    `json:"available_at,omitempty"`
	OnShift           bool          `json:"on_shift"`
	CanStart          bool          `json:"can_start"`
	CanStop           bool          `json:"can_stop"`
}

// RequiredRestHours 按周排班前瞻计算下一班前需要的休息时长。
// 当天已上过班看明天，否则看今天；参考日休息则为长休，否则为短休。
// 未设置排班时返回 0（此时司机已因排班为空被禁用）。
func (p Policy) RequiredRestHours(schedule *model.WeekDays, lastCheckIn, now time.Time) int {
	if schedule == nil {
		return 0
	}
	day := p.Weekday(now)
	if p.SameDay(lastCheckIn, now) {
		day = (day + 1) % 7
	}
	if schedule.Works(day) {
		return p.ShortRestHours
	}
	return p.LongRestHours
}

// Evaluate 判定司机此刻能否开始新班次。
// Disabled 只约束开班；进行中的班次始终可以结束。
func (p Policy) Evaluate(in Input) Result {
	res := Result{TimerKind: TimerNone}
	var reasons []string

	if !in.Compliant {
		note := in.ComplianceNote
		if note == "" {
			note = ReasonNotCompliant
		}
		reasons = append(reasons, note)
	}

	if in.Schedule == nil {
		reasons = append(reasons, ReasonScheduleEmpty)
	} else if !in.Schedule.Works(p.Weekday(in.Now)) {
		reasons = append(reasons, ReasonDayOff)
	}

	if in.WeeklyHours >= p.MaxWeeklyHours {
		reasons = append(reasons, ReasonWeeklyLimit)
	}

	last := in.LastShift
	switch {
	case last != nil && last.IsOpen():
		res.OnShift = true
		res.TimerKind = TimerStopwatch
		res.Timer = nonNegative(in.Now.Sub(*last.CheckInTime))
		res.TimerLabel = FormatDuration(res.Timer)

	case last != nil && last.CheckInTime != nil && last.CheckOutTime != nil:
		res.RequiredRestHours = p.RequiredRestHours(in.Schedule, *last.CheckInTime, in.Now)
		restEnd := last.CheckOutTime.Add(time.Duration(res.RequiredRestHours) * time.Hour)
		if remaining := restEnd.Sub(in.Now); remaining > 0 {
			reasons = append(reasons, ReasonResting)
			res.TimerKind = TimerCountdown
			res.Timer = remaining
			res.TimerLabel = FormatDuration(remaining)
			res.AvailableAt = &restEnd
		}
	}

	if len(reasons) > 0 {
		res.Disabled = true
		res.Reason = reasons[0]
	}
	res.CanStart = !res.OnShift && !res.Disabled
	res.CanStop = res.OnShift
	return res
}

// FormatDuration 以 HH:MM:SS 展示时长，负值按 0 处理
func FormatDuration(d time.Duration) string {
	d = nonNegative(d).Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

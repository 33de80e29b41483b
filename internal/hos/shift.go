package hos

import "errors"

// ShiftState 单个司机的班次状态
type ShiftState string

const (
	StateOff         ShiftState = "off"
	StateOn          ShiftState = "on"
	StateStopPending ShiftState = "stop_pending" // 已请求下班，等待调度员确认
)

// ShiftEvent 班次事件
type ShiftEvent string

const (
	EventStart   ShiftEvent = "start"
	EventStop    ShiftEvent = "stop"
	EventConfirm ShiftEvent = "confirm"
	EventCancel  ShiftEvent = "cancel"
)

// Effect 状态迁移需要执行的写操作
type Effect string

const (
	EffectNone            Effect = "none"
	EffectCheckIn         Effect = "check_in"
	EffectCheckOut        Effect = "check_out"
	EffectAskConfirmation Effect = "ask_confirmation"
)

var (
	ErrStartDisabled = errors.New("司机当前不可开始班次")
	ErrNotOnShift    = errors.New("司机当前不在班")
)

// StateOf 由最近班次推导状态；stopPending 来自看板上的待确认标记
func StateOf(open bool, stopPending bool) ShiftState {
	switch {
	case !open:
		return StateOff
	case stopPending:
		return StateStopPending
	default:
		return StateOn
	}
}

// Transition 班次状态机。
//   - off → on 立即生效，但 disabled 时拒绝
//   - on → off 需确认；confirmed=true 时直接下班（批量/强制流程）
//   - 下班永远不受 disabled 约束
func Transition(state ShiftState, event ShiftEvent, disabled, confirmed bool) (ShiftState, Effect, error) {
	switch state {
	case StateOff:
		switch event {
		case EventStart:
			if disabled {
				return StateOff, EffectNone, ErrStartDisabled
			}
			return StateOn, EffectCheckIn, nil
		case EventCancel:
			return StateOff, EffectNone, nil
		default:
			return StateOff, EffectNone, ErrNotOnShift
		}

	case StateOn:
		switch event {
		case EventStart, EventCancel:
			// 已在班：复用进行中的班次
			return StateOn, EffectNone, nil
		case EventStop:
			if confirmed {
				return StateOff, EffectCheckOut, nil
			}
			return StateStopPending, EffectAskConfirmation, nil
		case EventConfirm:
			return StateOff, EffectCheckOut, nil
		}

	case StateStopPending:
		switch event {
		case EventStart, EventCancel:
			return StateOn, EffectNone, nil
		case EventStop:
			if confirmed {
				return StateOff, EffectCheckOut, nil
			}
			return StateStopPending, EffectAskConfirmation, nil
		case EventConfirm:
			return StateOff, EffectCheckOut, nil
		}
	}
	return state, EffectNone, ErrNotOnShift
}

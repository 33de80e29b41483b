// Package hos 实现司机工时（Hours of Service）合规计算：
// 滚动周工时汇总、休息规则、班次状态机与换车流程。
// 本包不做任何 I/O，所有时间由调用方传入。
package hos

import (
	"fmt"
	"time"

	"github.com/bukulele/beontrack-portal-sub001/config"
)

// Policy 工时与休息规则参数
type Policy struct {
	MaxWeeklyHours float64
	ShortRestHours int // 参考日为工作日
	LongRestHours  int // 参考日为休息日
	Window         time.Duration
	Location       *time.Location // 判定"同一天"所用时区
}

// DefaultPolicy 默认规则：70 小时周上限，10/36 小时休息，7 天滚动窗口
func DefaultPolicy() Policy {
	return Policy{
		MaxWeeklyHours: 70,
		ShortRestHours: 10,
		LongRestHours:  36,
		Window:         7 * 24 * time.Hour,
		Location:       time.UTC,
	}
}

// PolicyFromConfig 由配置构造规则
func PolicyFromConfig(cfg *config.HOSConfig) (Policy, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Policy{}, fmt.Errorf("加载时区 %q 失败: %w", cfg.Timezone, err)
	}
	return Policy{
		MaxWeeklyHours: cfg.MaxWeeklyHours,
		ShortRestHours: cfg.ShortRestHours,
		LongRestHours:  cfg.LongRestHours,
		Window:         time.Duration(cfg.WindowDays) * 24 * time.Hour,
		Location:       loc,
	}, nil
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// SameDay 两个时刻在调度时区下是否为同一日历日
func (p Policy) SameDay(a, b time.Time) bool {
	loc := p.location()
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// Weekday 调度时区下的星期
func (p Policy) Weekday(t time.Time) time.Weekday {
	return t.In(p.location()).Weekday()
}

// Local 转换为调度时区时间，用于展示
func (p Policy) Local(t time.Time) time.Time {
	return t.In(p.location())
}

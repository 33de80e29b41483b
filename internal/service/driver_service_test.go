package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bukulele/beontrack-portal-sub001/internal/dto"
	"github.com/bukulele/beontrack-portal-sub001/internal/model"
)

func TestDriverService_ListAvailable_Filters(t *testing.T) {
	env := newTestEnv(at(1, 8, 0))
	env.addDriver("d1", "Alice", true, weekdays())
	d2 := env.addDriver("d2", "Bob", true, weekdays())
	d2.Routes = []string{model.RouteCity, model.RouteRegional}
	d3 := env.addDriver("d3", "Carol", true, weekdays())
	d3.Status = "inactive"

	got, err := env.drivers.ListAvailable(context.Background(), &dto.ListDriversRequest{Route: model.RouteCity})
	if err != nil {
		t.Fatalf("ListAvailable 失败: %v", err)
	}
	if len(got) != 1 || got[0].ID != "d2" {
		t.Errorf("期望仅 Bob, got %+v", got)
	}

	got, _ = env.drivers.ListAvailable(context.Background(), &dto.ListDriversRequest{})
	if len(got) != 2 {
		t.Errorf("不筛选时应返回 2 名在职司机, got %d", len(got))
	}
}

func TestDriverService_UpdateSchedule(t *testing.T) {
	env := newTestEnv(at(1, 8, 0))
	env.addDriver("d1", "Alice", true, nil)
	ctx := context.Background()

	resp, err := env.drivers.UpdateSchedule(ctx, "d1", &dto.UpdateScheduleRequest{
		Days: &dto.ScheduleDays{Monday: true, Saturday: true},
	})
	if err != nil {
		t.Fatalf("UpdateSchedule 失败: %v", err)
	}
	if !resp.Days.Monday || !resp.Days.Saturday || resp.Days.Tuesday {
		t.Errorf("排班不正确: %+v", resp.Days)
	}
	if days := env.db.schedules["d1"].WeekDays(); !days.Saturday {
		t.Error("排班未写入")
	}

	// days 为 null 表示清除
	resp, err = env.drivers.UpdateSchedule(ctx, "d1", &dto.UpdateScheduleRequest{})
	if err != nil {
		t.Fatalf("清除排班失败: %v", err)
	}
	if resp.Days != nil {
		t.Error("清除后 days 应为空")
	}
	if _, ok := env.db.schedules["d1"]; ok {
		t.Error("排班记录应被删除")
	}
	if env.refresher.n != 2 {
		t.Errorf("每次写入都应触发刷新, got %d", env.refresher.n)
	}
}

func TestDriverService_UpdateSchedule_UnknownDriver(t *testing.T) {
	env := newTestEnv(at(1, 8, 0))
	_, err := env.drivers.UpdateSchedule(context.Background(), "ghost", &dto.UpdateScheduleRequest{Days: &dto.ScheduleDays{}})
	if !errors.Is(err, ErrDriverNotFound) {
		t.Errorf("期望 ErrDriverNotFound, got %v", err)
	}
}

func TestDriverService_UpdateNightDriver(t *testing.T) {
	env := newTestEnv(at(1, 8, 0))
	env.addDriver("d1", "Alice", true, weekdays())
	on := true

	resp, err := env.drivers.UpdateNightDriver(context.Background(), "d1", &dto.UpdateDriverRequest{NightDriver: &on})
	if err != nil {
		t.Fatalf("UpdateNightDriver 失败: %v", err)
	}
	if !resp.NightDriver || !env.db.drivers["d1"].NightDriver {
		t.Error("夜班标记未写入")
	}

	_, err = env.drivers.UpdateNightDriver(context.Background(), "ghost", &dto.UpdateDriverRequest{NightDriver: &on})
	if !errors.Is(err, ErrDriverNotFound) {
		t.Errorf("期望 ErrDriverNotFound, got %v", err)
	}
}

func TestDriverService_GetSchedules(t *testing.T) {
	env := newTestEnv(at(1, 8, 0))
	env.addDriver("d1", "Alice", true, weekdays())
	env.addDriver("d2", "Bob", true, nil)

	got, err := env.drivers.GetSchedules(context.Background())
	if err != nil {
		t.Fatalf("GetSchedules 失败: %v", err)
	}
	if len(got) != 1 || got[0].DriverID != "d1" || !got[0].Days.Friday {
		t.Errorf("排班列表不正确: %+v", got)
	}
}

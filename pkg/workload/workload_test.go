package workload

import (
	"testing"

	"github.com/paiche/paiche/pkg/model"
)

// 测试用周：2025-11-02（周日）至 2025-11-08（周六）

func assigned(id, date, start string, cat model.Category, driverID string) *model.Assignment {
	return &model.Assignment{
		Block:    model.Block{ID: id, Date: date, StartTime: start, Category: cat},
		DriverID: driverID,
		Type:     model.MatchPattern,
	}
}

func TestAggregator_Aggregate(t *testing.T) {
	ag := NewAggregator()
	drivers := []*model.Driver{
		{ID: "D1", Name: "王强", Affinity: model.AffinitySolo1, Status: model.StatusActive},
		{ID: "D2", Name: "李明", Affinity: model.AffinitySolo1, Status: model.StatusActive},
	}
	assignments := []*model.Assignment{
		assigned("B1", "2025-11-03", "08:00", model.CategorySolo1, "D1"),
		assigned("B2", "2025-11-04", "08:00", model.CategorySolo1, "D1"),
		// 未分配块不计入任何司机
		model.NewUnassigned(model.Block{ID: "B3", Date: "2025-11-05", StartTime: "08:00", Category: model.CategorySolo1}),
	}

	out := ag.Aggregate(assignments, drivers)
	if len(out) != 2 {
		t.Fatalf("每个司机都应有汇总, got %d", len(out))
	}

	// 结果按司机ID升序
	d1, d2 := out[0], out[1]
	if d1.DriverID != "D1" || d2.DriverID != "D2" {
		t.Fatal("汇总应按司机ID升序排列")
	}

	if d1.TotalBlocks != 2 {
		t.Errorf("D1 块数 = %d, expected 2", d1.TotalBlocks)
	}
	if d1.DaysWorked != 2 {
		t.Errorf("D1 工作天数 = %d, expected 2", d1.DaysWorked)
	}
	if d1.MaxConsecutiveDays != 2 {
		t.Errorf("D1 最长连续 = %d, expected 2", d1.MaxConsecutiveDays)
	}
	// 未填薪酬时按类别标称薪酬计算
	if d1.TotalPay != 563.00 {
		t.Errorf("D1 薪酬 = %v, expected 563.00 (2 * 281.50)", d1.TotalPay)
	}
	if d1.IsAtMax {
		t.Error("2/5 不应判为达上限")
	}

	// 空闲司机也在结果中
	if d2.TotalBlocks != 0 || d2.TotalPay != 0 {
		t.Errorf("D2 应为空闲: %d 块 / %v 薪酬", d2.TotalBlocks, d2.TotalPay)
	}
}

func TestAggregator_AtMaxWarning(t *testing.T) {
	ag := NewAggregator()
	// team 司机配额 2
	drivers := []*model.Driver{
		{ID: "D1", Name: "赵云", Affinity: model.AffinityTeam, Status: model.StatusActive},
	}
	assignments := []*model.Assignment{
		assigned("B1", "2025-11-02", "12:00", model.CategoryTeam, "D1"),
		assigned("B2", "2025-11-05", "12:00", model.CategoryTeam, "D1"),
	}

	out := ag.Aggregate(assignments, drivers)
	w := out[0]
	if !w.IsAtMax {
		t.Error("2/2 应判为达上限")
	}
	if len(w.Warnings) == 0 {
		t.Error("达上限应有告警")
	}
}

func TestAggregator_NearMaxAndConsecutive(t *testing.T) {
	ag := NewAggregator()
	drivers := []*model.Driver{
		{ID: "D1", Name: "孙健", Affinity: model.AffinitySolo1, Status: model.StatusActive},
	}
	// 4/5 且连续 4 天：仅接近上限告警
	assignments := []*model.Assignment{
		assigned("B1", "2025-11-03", "08:00", model.CategorySolo1, "D1"),
		assigned("B2", "2025-11-04", "08:00", model.CategorySolo1, "D1"),
		assigned("B3", "2025-11-05", "08:00", model.CategorySolo1, "D1"),
		assigned("B4", "2025-11-06", "08:00", model.CategorySolo1, "D1"),
	}

	out := ag.Aggregate(assignments, drivers)
	w := out[0]
	if w.IsAtMax {
		t.Error("4/5 不应判为达上限")
	}
	if len(w.Warnings) != 1 {
		t.Fatalf("应恰有 1 条接近上限告警, got %d: %v", len(w.Warnings), w.Warnings)
	}
	if w.MaxConsecutiveDays != 4 {
		t.Errorf("最长连续 = %d, expected 4", w.MaxConsecutiveDays)
	}
}

func TestAggregator_EstimatedPayPreferred(t *testing.T) {
	ag := NewAggregator()
	drivers := []*model.Driver{
		{ID: "D1", Name: "周平", Affinity: model.AffinitySolo2, Status: model.StatusActive},
	}
	a := assigned("B1", "2025-11-02", "21:30", model.CategorySolo2, "D1")
	a.EstimatedPay = 700.00

	out := ag.Aggregate([]*model.Assignment{a}, drivers)
	if out[0].TotalPay != 700.00 {
		t.Errorf("应优先使用块上的预估薪酬, got %v", out[0].TotalPay)
	}
}

package watchlist

import (
	"testing"

	"github.com/paiche/paiche/pkg/model"
)

// 测试用周：2025-11-02（周日）至 2025-11-08（周六）

func teamAssignment(id, date string, driverID string) *model.Assignment {
	return &model.Assignment{
		Block:    model.Block{ID: id, Date: date, StartTime: "12:00", Category: model.CategoryTeam},
		DriverID: driverID,
		Type:     model.MatchPattern,
	}
}

func TestBuilder_AtMaxDriverIsCritical(t *testing.T) {
	b := NewBuilder()
	drivers := []*model.Driver{
		{ID: "D1", Name: "赵云", Affinity: model.AffinityTeam, Status: model.StatusActive},
		{ID: "D2", Name: "王强", Affinity: model.AffinityTeam, Status: model.StatusActive},
	}
	// D1 配额 2 已排满，D2 空闲
	assignments := []*model.Assignment{
		teamAssignment("B1", "2025-11-02", "D1"),
		teamAssignment("B2", "2025-11-05", "D1"),
	}

	w := b.Build(assignments, drivers)
	if len(w.Drivers) != 1 {
		t.Fatalf("关注司机数 = %d, expected 1", len(w.Drivers))
	}
	item := w.Drivers[0]
	if item.DriverID != "D1" {
		t.Errorf("关注司机 = %s, expected D1", item.DriverID)
	}
	if item.Level != LevelCritical {
		t.Errorf("达上限司机级别 = %s, expected critical", item.Level)
	}
	if len(item.Reasons) == 0 {
		t.Error("关注条目应有原因")
	}
	if len(w.Gaps) != 0 {
		t.Errorf("无未分配块时不应有缺口, got %d", len(w.Gaps))
	}
}

func TestBuilder_GapsWithSuggestions(t *testing.T) {
	b := NewBuilder()
	drivers := []*model.Driver{
		{ID: "D1", Name: "李明", Affinity: model.AffinitySolo1, Status: model.StatusActive},
	}
	// 一个未分配的 solo1 块，D1 空闲可作候选
	assignments := []*model.Assignment{
		model.NewUnassigned(model.Block{ID: "B1", Date: "2025-11-03", StartTime: "08:00", Category: model.CategorySolo1}),
	}

	w := b.Build(assignments, drivers)
	if len(w.Gaps) != 1 {
		t.Fatalf("缺口数 = %d, expected 1", len(w.Gaps))
	}
	gap := w.Gaps[0]
	if gap.Block.ID != "B1" {
		t.Errorf("缺口块 = %s, expected B1", gap.Block.ID)
	}
	if len(gap.Suggestions) != 1 || gap.Suggestions[0].DriverID != "D1" {
		t.Error("缺口应附 D1 的候选建议")
	}
}

func TestBuilder_CriticalBeforeWarning(t *testing.T) {
	b := NewBuilder()
	drivers := []*model.Driver{
		// D1 接近上限（4/5）：warning
		{ID: "D1", Name: "孙健", Affinity: model.AffinitySolo1, Status: model.StatusActive},
		// D2 达上限（2/2）：critical
		{ID: "D2", Name: "赵云", Affinity: model.AffinityTeam, Status: model.StatusActive},
	}
	assignments := []*model.Assignment{
		{Block: model.Block{ID: "B1", Date: "2025-11-03", StartTime: "08:00", Category: model.CategorySolo1}, DriverID: "D1"},
		{Block: model.Block{ID: "B2", Date: "2025-11-04", StartTime: "08:00", Category: model.CategorySolo1}, DriverID: "D1"},
		{Block: model.Block{ID: "B3", Date: "2025-11-05", StartTime: "08:00", Category: model.CategorySolo1}, DriverID: "D1"},
		{Block: model.Block{ID: "B4", Date: "2025-11-06", StartTime: "08:00", Category: model.CategorySolo1}, DriverID: "D1"},
		teamAssignment("B5", "2025-11-02", "D2"),
		teamAssignment("B6", "2025-11-05", "D2"),
	}

	w := b.Build(assignments, drivers)
	if len(w.Drivers) != 2 {
		t.Fatalf("关注司机数 = %d, expected 2", len(w.Drivers))
	}
	if w.Drivers[0].Level != LevelCritical || w.Drivers[0].DriverID != "D2" {
		t.Errorf("critical 条目应排在首位, got %s/%s", w.Drivers[0].DriverID, w.Drivers[0].Level)
	}
	if w.Drivers[1].Level != LevelWarning {
		t.Errorf("第二条应为 warning, got %s", w.Drivers[1].Level)
	}
}

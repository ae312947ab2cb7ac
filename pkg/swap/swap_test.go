package swap

import (
	"testing"

	"github.com/paiche/paiche/pkg/errors"
	"github.com/paiche/paiche/pkg/model"
)

// 测试用周：2025-11-02（周日）至 2025-11-08（周六）

func solo2Assignment(id, date, start, driverID string) *model.Assignment {
	return &model.Assignment{
		Block:    model.Block{ID: id, Date: date, StartTime: start, Category: model.CategorySolo2},
		DriverID: driverID,
		Type:     model.MatchPattern,
		Score:    70,
	}
}

func solo2Driver(id, name string) *model.Driver {
	return &model.Driver{ID: id, Name: name, Affinity: model.AffinitySolo2, Status: model.StatusActive}
}

func TestSwapper_ValidateRejectsInsufficientGap(t *testing.T) {
	s := NewSwapper()
	drivers := []*model.Driver{solo2Driver("D1", "王强"), solo2Driver("D2", "李明")}

	// D2 已有周日 21:30 的 solo2 班；目标块周二 20:30 出车，间隔仅 47 小时
	assignments := []*model.Assignment{
		solo2Assignment("B1", "2025-11-04", "20:30", "D1"),
		solo2Assignment("B2", "2025-11-02", "21:30", "D2"),
	}

	v, err := s.Validate(assignments, drivers, "B1", "D1", "D2")
	if err != nil {
		t.Fatalf("Validate 返回错误: %v", err)
	}
	if v.Valid {
		t.Fatal("间隔 47 小时的换班不应通过校验")
	}
	found := false
	for _, vio := range v.Violations {
		if vio.Kind == model.ViolationInsufficientGap {
			found = true
		}
	}
	if !found {
		t.Error("校验结果应含 insufficient_gap 违规")
	}

	// 未通过的校验结果不可执行
	if _, err := s.Execute(assignments, v); err == nil {
		t.Error("未通过的校验结果应被 Execute 拒绝")
	} else if errors.GetCode(err) != errors.CodeSwapRejected {
		t.Errorf("错误码 = %s, expected SWAP_REJECTED", errors.GetCode(err))
	}
}

func TestSwapper_ValidSwapWithImpact(t *testing.T) {
	s := NewSwapper()
	drivers := []*model.Driver{solo2Driver("D1", "王强"), solo2Driver("D2", "李明")}

	// D1 有两块，D2 有一块且与目标块间隔充足
	assignments := []*model.Assignment{
		solo2Assignment("B1", "2025-11-02", "21:30", "D1"),
		solo2Assignment("B2", "2025-11-06", "21:30", "D1"),
		solo2Assignment("B3", "2025-11-08", "21:30", "D2"),
	}

	v, err := s.Validate(assignments, drivers, "B1", "D1", "D2")
	if err != nil {
		t.Fatalf("Validate 返回错误: %v", err)
	}
	if !v.Valid {
		t.Fatalf("合规换班应通过校验, violations: %v", v.Violations)
	}

	// 影响评估：D1 2→1，D2 1→2
	if v.Impact.Current.BlocksBefore != 2 || v.Impact.Current.BlocksAfter != 1 {
		t.Errorf("D1 块数变化 = %d→%d, expected 2→1", v.Impact.Current.BlocksBefore, v.Impact.Current.BlocksAfter)
	}
	if v.Impact.New.BlocksBefore != 1 || v.Impact.New.BlocksAfter != 2 {
		t.Errorf("D2 块数变化 = %d→%d, expected 1→2", v.Impact.New.BlocksBefore, v.Impact.New.BlocksAfter)
	}
	// 薪酬按类别标称值变化
	if v.Impact.New.PayAfter != 1350.00 {
		t.Errorf("D2 换班后薪酬 = %v, expected 1350.00", v.Impact.New.PayAfter)
	}

	updated, err := s.Execute(assignments, v)
	if err != nil {
		t.Fatalf("Execute 返回错误: %v", err)
	}

	var swapped *model.Assignment
	for _, a := range updated {
		if a.Block.ID == "B1" {
			swapped = a
		}
	}
	if swapped == nil {
		t.Fatal("换班后 B1 记录丢失")
	}
	if swapped.DriverID != "D2" || swapped.DriverName != "李明" {
		t.Errorf("B1 应换给 D2/李明, got %s/%s", swapped.DriverID, swapped.DriverName)
	}
	if swapped.Type != model.MatchManual {
		t.Errorf("换班记录类型 = %s, expected manual", swapped.Type)
	}
	if swapped.Score != 100 || swapped.Warnings != nil {
		t.Error("换班记录应重置评分为 100 且清空警告")
	}

	// 原列表不被修改
	if assignments[0].DriverID != "D1" {
		t.Error("Execute 不应修改输入列表")
	}
}

func TestSwapper_ExecuteRequiresValidation(t *testing.T) {
	s := NewSwapper()
	assignments := []*model.Assignment{
		solo2Assignment("B1", "2025-11-02", "21:30", "D1"),
	}

	if _, err := s.Execute(assignments, nil); err == nil {
		t.Error("缺少校验结果应被拒绝")
	} else if errors.GetCode(err) != errors.CodeSwapRejected {
		t.Errorf("错误码 = %s, expected SWAP_REJECTED", errors.GetCode(err))
	}
}

func TestSwapper_ValidateInputErrors(t *testing.T) {
	s := NewSwapper()
	drivers := []*model.Driver{solo2Driver("D1", "王强"), solo2Driver("D2", "李明")}
	assignments := []*model.Assignment{
		solo2Assignment("B1", "2025-11-02", "21:30", "D1"),
	}

	// 工作块不存在
	if _, err := s.Validate(assignments, drivers, "B9", "D1", "D2"); err == nil {
		t.Error("不存在的工作块应返回错误")
	}

	// 归属不符
	if _, err := s.Validate(assignments, drivers, "B1", "D2", "D1"); err == nil {
		t.Error("块不属于当前司机时应返回错误")
	}

	// 新旧司机相同
	if _, err := s.Validate(assignments, drivers, "B1", "D1", "D1"); err == nil {
		t.Error("新旧司机相同应返回错误")
	}

	// 新司机不存在
	if _, err := s.Validate(assignments, drivers, "B1", "D1", "D9"); err == nil {
		t.Error("不存在的新司机应返回错误")
	}
}

func TestSwapper_RejectsSameDayDoubleBooking(t *testing.T) {
	s := NewSwapper()
	drivers := []*model.Driver{
		{ID: "D1", Name: "王强", Affinity: model.AffinitySolo1, Status: model.StatusActive},
		{ID: "D2", Name: "李明", Affinity: model.AffinitySolo1, Status: model.StatusActive},
	}

	// D2 周一 00:00 的班 10:00 收车，目标块 21:00 出车：
	// 休息 11 小时、无时间重叠，但同一天两条分配仍不允许
	assignments := []*model.Assignment{
		{
			Block:    model.Block{ID: "B1", Date: "2025-11-03", StartTime: "21:00", Category: model.CategorySolo1},
			DriverID: "D1", Type: model.MatchStandby, Score: 30,
		},
		{
			Block:    model.Block{ID: "B2", Date: "2025-11-03", StartTime: "00:00", Category: model.CategorySolo1},
			DriverID: "D2", Type: model.MatchStandby, Score: 30,
		},
	}

	v, err := s.Validate(assignments, drivers, "B1", "D1", "D2")
	if err != nil {
		t.Fatalf("Validate 返回错误: %v", err)
	}
	if v.Valid {
		t.Fatal("同一天的第二条分配不应通过校验")
	}
	if len(v.Violations) == 0 || v.Violations[0].Kind != model.ViolationScheduleOverlap {
		t.Error("应含 schedule_overlap 违规")
	}
	if _, err := s.Execute(assignments, v); err == nil {
		t.Error("未通过的校验结果应被 Execute 拒绝")
	}
}

func TestSwapper_IneligibleNewDriver(t *testing.T) {
	s := NewSwapper()
	onLeave := solo2Driver("D2", "李明")
	onLeave.Status = model.StatusOnLeave
	drivers := []*model.Driver{solo2Driver("D1", "王强"), onLeave}
	assignments := []*model.Assignment{
		solo2Assignment("B1", "2025-11-02", "21:30", "D1"),
	}

	v, err := s.Validate(assignments, drivers, "B1", "D1", "D2")
	if err != nil {
		t.Fatalf("Validate 返回错误: %v", err)
	}
	if v.Valid {
		t.Error("休假司机不应通过校验")
	}
	if len(v.Violations) == 0 || v.Violations[0].Kind != model.ViolationDriverIneligible {
		t.Error("应含 driver_ineligible 违规")
	}
}

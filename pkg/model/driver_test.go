package model

import (
	"testing"
	"time"
)

func TestDriver_IsActive(t *testing.T) {
	tests := []struct {
		name     string
		status   DriverStatus
		expected bool
	}{
		{"active司机", StatusActive, true},
		{"standby司机", StatusStandby, false},
		{"inactive司机", StatusInactive, false},
		{"休假司机", StatusOnLeave, false},
		{"空状态", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Driver{Status: tt.status}
			if result := d.IsActive(); result != tt.expected {
				t.Errorf("IsActive() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestDriver_CanTake(t *testing.T) {
	tests := []struct {
		name     string
		affinity Affinity
		category Category
		expected bool
	}{
		{"solo1司机接solo1", AffinitySolo1, CategorySolo1, true},
		{"solo1司机接solo2", AffinitySolo1, CategorySolo2, false},
		{"solo2司机接team", AffinitySolo2, CategoryTeam, false},
		{"both司机接solo1", AffinityBoth, CategorySolo1, true},
		{"both司机接solo2", AffinityBoth, CategorySolo2, true},
		{"both司机接team", AffinityBoth, CategoryTeam, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Driver{Affinity: tt.affinity}
			if result := d.CanTake(tt.category); result != tt.expected {
				t.Errorf("CanTake(%s) = %v, expected %v", tt.category, result, tt.expected)
			}
		})
	}
}

func TestDriver_PrefersDay(t *testing.T) {
	d := &Driver{
		PreferredDays: []time.Weekday{time.Sunday, time.Wednesday},
	}

	if !d.PrefersDay(time.Sunday) {
		t.Error("周日应在偏好集合内")
	}
	if d.PrefersDay(time.Monday) {
		t.Error("周一不应在偏好集合内")
	}

	// 空偏好集合
	empty := &Driver{}
	if empty.PrefersDay(time.Sunday) {
		t.Error("空偏好集合不应匹配任何日期")
	}
}

func TestCategory_IsValid(t *testing.T) {
	tests := []struct {
		category Category
		expected bool
	}{
		{CategorySolo1, true},
		{CategorySolo2, true},
		{CategoryTeam, true},
		{"solo3", false},
		{"", false},
	}

	for _, tt := range tests {
		if result := tt.category.IsValid(); result != tt.expected {
			t.Errorf("IsValid(%q) = %v, expected %v", tt.category, result, tt.expected)
		}
	}
}

func TestAffinity_IsValid(t *testing.T) {
	tests := []struct {
		affinity Affinity
		expected bool
	}{
		{AffinitySolo1, true},
		{AffinitySolo2, true},
		{AffinityTeam, true},
		{AffinityBoth, true},
		{"solo3", false},
		{"", false},
	}

	for _, tt := range tests {
		if result := tt.affinity.IsValid(); result != tt.expected {
			t.Errorf("IsValid(%q) = %v, expected %v", tt.affinity, result, tt.expected)
		}
	}
}

func TestBlock_Weekday(t *testing.T) {
	// 2025-11-02 是周日
	b := &Block{Date: "2025-11-02"}
	wd, err := b.Weekday()
	if err != nil {
		t.Fatalf("Weekday() 返回错误: %v", err)
	}
	if wd != time.Sunday {
		t.Errorf("Weekday() = %v, expected Sunday", wd)
	}

	// 非法日期
	bad := &Block{Date: "not-a-date"}
	if _, err := bad.Weekday(); err == nil {
		t.Error("非法日期应返回错误")
	}
}

func TestBlock_SortKey(t *testing.T) {
	a := &Block{ID: "B1", Date: "2025-11-02", StartTime: "21:30"}
	b := &Block{ID: "B2", Date: "2025-11-03", StartTime: "06:00"}
	c := &Block{ID: "B3", Date: "2025-11-03", StartTime: "08:00"}

	if !(a.SortKey() < b.SortKey() && b.SortKey() < c.SortKey()) {
		t.Error("SortKey 的字典序应与时间序一致")
	}
}

func TestAssignment_Assigned(t *testing.T) {
	a := &Assignment{Block: Block{ID: "B1"}, DriverID: "D1"}
	if !a.Assigned() {
		t.Error("有司机的记录应为已分配")
	}

	u := NewUnassigned(Block{ID: "B2"})
	if u.Assigned() {
		t.Error("未分配记录不应有司机")
	}
	if u.Type != MatchUnassigned {
		t.Errorf("未分配记录类型 = %s, expected %s", u.Type, MatchUnassigned)
	}
}

func TestHasError(t *testing.T) {
	warnings := []Violation{
		{Kind: ViolationTimeBumpExceeded, Severity: SeverityWarning},
	}
	if HasError(warnings) {
		t.Error("仅含warning时不应判为有error")
	}

	mixed := append(warnings, Violation{Kind: ViolationInsufficientRest, Severity: SeverityError})
	if !HasError(mixed) {
		t.Error("含error级违规时应判为有error")
	}

	if got := len(WarningsOnly(mixed)); got != 1 {
		t.Errorf("WarningsOnly 应保留 1 条, got %d", got)
	}
}

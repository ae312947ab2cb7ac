// Package matcher 提供司机与工作块的匹配评分
package matcher

import (
	"github.com/paiche/paiche/pkg/compliance"
	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/rules"
)

// Result 匹配结果：最优可达的分配类型与数值评分
type Result struct {
	Type     model.AssignmentType `json:"type"`
	Score    float64              `json:"score"`
	Warnings []model.Violation    `json:"warnings,omitempty"`
}

// Matcher 匹配评分器
type Matcher struct {
	checker *compliance.Checker
}

// New 创建匹配评分器
func New() *Matcher {
	return &Matcher{checker: compliance.NewChecker()}
}

// Checker 返回内部的合规检查器
func (m *Matcher) Checker() *compliance.Checker {
	return m.checker
}

// Score 对司机与工作块评分
// 返回 nil 表示该司机不合格：类别不兼容、非在岗、存在 error 级违规，
// 或时间计算失败（调用方视为无合格候选）
func (m *Matcher) Score(driver *model.Driver, block *model.Block, existing []*model.Assignment) *Result {
	// 1. 类别归属不兼容，直接淘汰
	if !driver.CanTake(block.Category) {
		return nil
	}

	// 只有在岗司机可参与评分
	if !driver.IsActive() {
		return nil
	}

	// 2. 合规检查：任何 error 级违规即不合格
	others := filterByDriver(existing, driver.ID)
	violations, err := m.checker.Check(driver, block, others)
	if err != nil {
		return nil
	}
	if model.HasError(violations) {
		return nil
	}
	warnings := model.WarningsOnly(violations)

	// 3. 分级评分：自上而下取第一条命中的规则
	rule := rules.MustGet(block.Category)

	weekday, err := block.Weekday()
	if err != nil {
		return nil
	}

	// 惯常出车时间是 exact/close 档的锚点：没有锚点就无从谈
	// 时间吻合，最高只能到 pattern 档
	anchored := driver.CanonicalStart != ""
	delta := 0.0
	if anchored {
		delta, err = rules.ClockDelta(driver.CanonicalStart, block.StartTime)
		if err != nil {
			return nil
		}
	}

	preferred := driver.PrefersDay(weekday)

	switch {
	case preferred && anchored && delta <= 0.25:
		return &Result{Type: model.MatchExact, Score: 100, Warnings: warnings}
	case preferred && anchored && delta <= rule.BumpToleranceHours:
		return &Result{Type: model.MatchClose, Score: clamp(85 - 5*delta), Warnings: warnings}
	case preferred:
		return &Result{Type: model.MatchPattern, Score: clamp(70 - 2*delta), Warnings: warnings}
	case driver.IsFlexible():
		return &Result{Type: model.MatchCrossTrained, Score: clamp(50 - 2*delta), Warnings: warnings}
	default:
		return &Result{Type: model.MatchStandby, Score: clamp(30 - delta), Warnings: warnings}
	}
}

// filterByDriver 过滤出某司机名下的分配
func filterByDriver(assignments []*model.Assignment, driverID string) []*model.Assignment {
	var out []*model.Assignment
	for _, a := range assignments {
		if a.DriverID == driverID {
			out = append(out, a)
		}
	}
	return out
}

// clamp 评分下限为 0
func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	return score
}

// Package compliance 提供候选分配的合规检查
package compliance

import (
	"fmt"
	"time"

	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/rules"
)

// Checker 合规检查器
// 纯函数式：给定司机、候选工作块和该司机本周其他分配，返回违规列表
type Checker struct{}

// NewChecker 创建合规检查器
func NewChecker() *Checker {
	return &Checker{}
}

// Check 对候选分配执行全部合规检查
// 各项检查相互独立，全部求值，不短路
// 日期/时间格式错误只使本次计算失败，调用方应视为无合格候选人
func (c *Checker) Check(driver *model.Driver, block *model.Block, others []*model.Assignment) ([]model.Violation, error) {
	rule, err := rules.Get(block.Category)
	if err != nil {
		// 未知类别属于程序错误，快速失败
		panic(err)
	}

	blockStart, err := rules.Combine(block.Date, block.StartTime)
	if err != nil {
		return nil, err
	}
	blockWeekday, err := block.Weekday()
	if err != nil {
		return nil, err
	}

	var violations []model.Violation

	if v := c.checkWeeklyQuota(driver, block, rule, others); v != nil {
		violations = append(violations, *v)
	}

	sep, err := c.checkSeparation(driver, block, rule, blockStart, others)
	if err != nil {
		return nil, err
	}
	violations = append(violations, sep...)

	if v := c.checkConsecutiveDays(driver, block, rule, blockWeekday, others); v != nil {
		violations = append(violations, *v)
	}

	bump, err := c.checkTimeBump(driver, block, rule)
	if err != nil {
		return nil, err
	}
	if bump != nil {
		violations = append(violations, *bump)
	}

	return violations, nil
}

// checkWeeklyQuota 周配额检查
// 司机本周同类别分配数已达配额时，候选块不可再派
func (c *Checker) checkWeeklyQuota(driver *model.Driver, block *model.Block, rule rules.Rule, others []*model.Assignment) *model.Violation {
	quota := rules.QuotaFor(driver, block.Category)

	count := 0
	for _, a := range others {
		if a.Assigned() && a.Category == block.Category {
			count++
		}
	}

	if count >= quota {
		return &model.Violation{
			Kind:     model.ViolationWeeklyMaximum,
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("司机 %s 本周 %s 类别已排 %d 班，达到配额 %d", driver.Name, block.Category, count, quota),
			Actual:   float64(count),
			Required: float64(quota),
			DriverID: driver.ID,
			BlockID:  block.ID,
		}
	}
	return nil
}

// checkSeparation 间隔类检查：重叠、最小休息或最小出车间隔
// 重叠检查对所有类别生效；休息/出车间隔按类别规则二选一
func (c *Checker) checkSeparation(driver *model.Driver, block *model.Block, rule rules.Rule, blockStart time.Time, others []*model.Assignment) ([]model.Violation, error) {
	var violations []model.Violation
	blockEnd := blockStart.Add(time.Duration(rule.DurationHours * float64(time.Hour)))

	for _, a := range others {
		if !a.Assigned() {
			continue
		}

		otherStart, err := rules.Combine(a.Date, a.StartTime)
		if err != nil {
			return nil, err
		}
		otherRule := rules.MustGet(a.Category)
		otherEnd := otherStart.Add(time.Duration(otherRule.DurationHours * float64(time.Hour)))

		// 时间重叠：候选块与已有班次区间相交，任何类别都不允许
		if blockStart.Before(otherEnd) && otherStart.Before(blockEnd) {
			violations = append(violations, model.Violation{
				Kind:     model.ViolationScheduleOverlap,
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("司机 %s 候选班次与 %s %s 的已有班次时间重叠", driver.Name, a.Date, a.StartTime),
				DriverID: driver.ID,
				BlockID:  block.ID,
			})
			continue
		}

		if rule.UsesStartGap() {
			// 出车到出车间隔：只约束同类别班次
			if a.Category != block.Category {
				continue
			}
			gap := blockStart.Sub(otherStart).Hours()
			if gap < 0 {
				gap = -gap
			}
			if gap < rule.MinStartGapHours {
				violations = append(violations, model.Violation{
					Kind:     model.ViolationInsufficientGap,
					Severity: model.SeverityError,
					Message:  fmt.Sprintf("司机 %s 两次出车仅间隔 %.1f 小时，少于 %s 类别要求的 %.0f 小时", driver.Name, gap, block.Category, rule.MinStartGapHours),
					Actual:   gap,
					Required: rule.MinStartGapHours,
					DriverID: driver.ID,
					BlockID:  block.ID,
				})
			}
			continue
		}

		// 收车到出车休息：已有班次收车在前、候选出车在后时生效
		rest := blockStart.Sub(otherEnd).Hours()
		if rest > 0 && rest < rule.MinRestHours {
			violations = append(violations, model.Violation{
				Kind:     model.ViolationInsufficientRest,
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("司机 %s 收车后仅休息 %.1f 小时，少于要求的 %.0f 小时", driver.Name, rest, rule.MinRestHours),
				Actual:   rest,
				Required: rule.MinRestHours,
				DriverID: driver.ID,
				BlockID:  block.ID,
			})
		}
	}

	return violations, nil
}

// checkConsecutiveDays 连续工作天数检查
// 已工作周内日集合加上候选日，线性 周日→周六 计算最长连续段
func (c *Checker) checkConsecutiveDays(driver *model.Driver, block *model.Block, rule rules.Rule, blockWeekday time.Weekday, others []*model.Assignment) *model.Violation {
	days := make(map[time.Weekday]bool)
	for _, a := range others {
		if !a.Assigned() {
			continue
		}
		w, err := a.Block.Weekday()
		if err != nil {
			continue
		}
		days[w] = true
	}
	days[blockWeekday] = true

	run := rules.LongestRun(days)
	if run > rule.MaxConsecutiveDays {
		return &model.Violation{
			Kind:     model.ViolationMaxConsecutiveDays,
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("司机 %s 将连续工作 %d 天，超过上限 %d 天", driver.Name, run, rule.MaxConsecutiveDays),
			Actual:   float64(run),
			Required: float64(rule.MaxConsecutiveDays),
			DriverID: driver.ID,
			BlockID:  block.ID,
		}
	}
	return nil
}

// checkTimeBump 出车时间偏移检查
// 超过类别容差只产生 warning，从不影响资格
func (c *Checker) checkTimeBump(driver *model.Driver, block *model.Block, rule rules.Rule) (*model.Violation, error) {
	if driver.CanonicalStart == "" {
		return nil, nil
	}

	delta, err := rules.ClockDelta(driver.CanonicalStart, block.StartTime)
	if err != nil {
		return nil, err
	}

	if delta > rule.BumpToleranceHours {
		return &model.Violation{
			Kind:     model.ViolationTimeBumpExceeded,
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("司机 %s 惯常 %s 出车，本班 %s 出车，偏移 %.1f 小时超过容差 %.0f 小时", driver.Name, driver.CanonicalStart, block.StartTime, delta, rule.BumpToleranceHours),
			Actual:   delta,
			Required: rule.BumpToleranceHours,
			DriverID: driver.ID,
			BlockID:  block.ID,
		}, nil
	}
	return nil, nil
}

// Package rules 提供类别规则表与时间计算工具
package rules

import (
	"fmt"

	"github.com/paiche/paiche/pkg/model"
)

// Rule 单个工作类别的规则常量
// MinRestHours 与 MinStartGapHours 互斥：每个类别只定义其一
type Rule struct {
	Category model.Category `json:"category"`

	DurationHours float64 `json:"duration_hours"`

	// 休息规则（二选一）
	MinRestHours     float64 `json:"min_rest_hours,omitempty"`      // 收车→出车 最小间隔
	MinStartGapHours float64 `json:"min_start_gap_hours,omitempty"` // 出车→出车 最小间隔

	MaxConsecutiveDays int     `json:"max_consecutive_days"`
	WeeklyQuota        int     `json:"weekly_quota"`
	BumpToleranceHours float64 `json:"bump_tolerance_hours"`
	NominalPay         float64 `json:"nominal_pay"`
}

// UsesStartGap 检查该类别是否采用出车到出车的间隔规则
func (r Rule) UsesStartGap() bool {
	return r.MinStartGapHours > 0
}

// 规则表：按类别键入的固定常量，加载一次后不变
var catalog = map[model.Category]Rule{
	model.CategorySolo1: {
		Category:           model.CategorySolo1,
		DurationHours:      10,
		MinRestHours:       10,
		MaxConsecutiveDays: 6,
		WeeklyQuota:        5,
		BumpToleranceHours: 2,
		NominalPay:         281.50,
	},
	model.CategorySolo2: {
		Category:           model.CategorySolo2,
		DurationHours:      24,
		MinStartGapHours:   48,
		MaxConsecutiveDays: 6,
		WeeklyQuota:        3,
		BumpToleranceHours: 3,
		NominalPay:         675.00,
	},
	model.CategoryTeam: {
		Category:           model.CategoryTeam,
		DurationHours:      34,
		MinStartGapHours:   72,
		MaxConsecutiveDays: 6,
		WeeklyQuota:        2,
		BumpToleranceHours: 4,
		NominalPay:         1150.00,
	},
}

// Get 按类别查询规则
func Get(c model.Category) (Rule, error) {
	r, ok := catalog[c]
	if !ok {
		return Rule{}, fmt.Errorf("未知工作类别: %q", c)
	}
	return r, nil
}

// MustGet 按类别查询规则，未知类别直接 panic
// 工作块引用未知类别属于程序错误，不可恢复
func MustGet(c model.Category) Rule {
	r, err := Get(c)
	if err != nil {
		panic(err)
	}
	return r
}

// All 返回全部规则（按固定类别顺序）
func All() []Rule {
	out := make([]Rule, 0, len(catalog))
	for _, c := range model.Categories() {
		out = append(out, catalog[c])
	}
	return out
}

// QuotaFor 返回某司机在某类别下的有效周配额
// 司机档案配额优先，未设置时回落到类别默认值
func QuotaFor(d *model.Driver, c model.Category) int {
	if d.WeeklyQuota > 0 {
		return d.WeeklyQuota
	}
	return MustGet(c).WeeklyQuota
}

// DefaultQuotaFor 返回司机不区分类别的默认周配额
// 固定归属取其类别配额；both 归属取规则表中的最大配额
func DefaultQuotaFor(d *model.Driver) int {
	if d.WeeklyQuota > 0 {
		return d.WeeklyQuota
	}
	if d.Affinity == model.AffinityBoth {
		max := 0
		for _, r := range catalog {
			if r.WeeklyQuota > max {
				max = r.WeeklyQuota
			}
		}
		return max
	}
	return MustGet(model.Category(d.Affinity)).WeeklyQuota
}

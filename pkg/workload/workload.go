// Package workload 汇总每个司机的周工作量
package workload

import (
	"fmt"
	"sort"
	"time"

	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/rules"
)

// DriverWorkload 单个司机的周工作量汇总
type DriverWorkload struct {
	DriverID           string   `json:"driver_id"`
	DriverName         string   `json:"driver_name"`
	TotalBlocks        int      `json:"total_blocks"`
	WeeklyQuota        int      `json:"weekly_quota"`
	DaysWorked         int      `json:"days_worked"`
	MaxConsecutiveDays int      `json:"max_consecutive_days"`
	TotalPay           float64  `json:"total_pay"`
	IsAtMax            bool     `json:"is_at_max"`
	Warnings           []string `json:"warnings,omitempty"`
}

// Aggregator 工作量汇总器
type Aggregator struct{}

// NewAggregator 创建工作量汇总器
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Aggregate 按司机汇总分配结果
//
// 每个输入司机都出现在结果中，包括本周未分到任何工作块的司机。
// 结果按司机ID升序排列。
func (ag *Aggregator) Aggregate(assignments []*model.Assignment, drivers []*model.Driver) []*DriverWorkload {
	byDriver := make(map[string][]*model.Assignment)
	for _, a := range assignments {
		if a.Assigned() {
			byDriver[a.DriverID] = append(byDriver[a.DriverID], a)
		}
	}

	out := make([]*DriverWorkload, 0, len(drivers))
	for _, d := range drivers {
		w := ag.aggregateDriver(d, byDriver[d.ID])
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DriverID < out[j].DriverID
	})
	return out
}

// aggregateDriver 汇总单个司机的工作量
func (ag *Aggregator) aggregateDriver(d *model.Driver, assigned []*model.Assignment) *DriverWorkload {
	quota := rules.DefaultQuotaFor(d)
	w := &DriverWorkload{
		DriverID:    d.ID,
		DriverName:  d.Name,
		TotalBlocks: len(assigned),
		WeeklyQuota: quota,
	}

	days := make(map[time.Weekday]bool)
	dates := make(map[string]bool)
	for _, a := range assigned {
		wd, err := a.Weekday()
		if err == nil {
			days[wd] = true
		}
		dates[a.Date] = true
		pay := a.EstimatedPay
		if pay == 0 {
			if r, err := rules.Get(a.Category); err == nil {
				pay = r.NominalPay
			}
		}
		w.TotalPay += pay
	}
	w.DaysWorked = len(dates)
	w.MaxConsecutiveDays = rules.LongestRun(days)
	w.IsAtMax = w.TotalBlocks >= quota

	if w.IsAtMax {
		w.Warnings = append(w.Warnings, fmt.Sprintf("本周已达上限 %d 块", quota))
	} else if quota > 0 && w.TotalBlocks == quota-1 {
		w.Warnings = append(w.Warnings, fmt.Sprintf("本周 %d/%d 块，接近上限", w.TotalBlocks, quota))
	}
	if w.MaxConsecutiveDays >= 5 {
		w.Warnings = append(w.Warnings, fmt.Sprintf("连续出车 %d 天", w.MaxConsecutiveDays))
	}
	return w
}

// Package report 生成周排班的合规报告
package report

import (
	"sort"

	"github.com/paiche/paiche/pkg/compliance"
	"github.com/paiche/paiche/pkg/model"
)

// KindSummary 单类规则的通过情况
type KindSummary struct {
	Kind     model.ViolationKind `json:"kind"`
	Checked  int                 `json:"checked"`
	Failed   int                 `json:"failed"`
	Warned   int                 `json:"warned"`
	PassRate float64             `json:"pass_rate"`
}

// Report 周排班合规报告
type Report struct {
	TotalAssignments int                `json:"total_assignments"`
	CleanCount       int                `json:"clean_count"`
	Violations       []model.Violation  `json:"violations,omitempty"`
	ByKind           []*KindSummary     `json:"by_kind"`
	ByDriver         map[string]int     `json:"by_driver,omitempty"` // 司机ID -> 违规数
}

// Reporter 合规报告生成器
type Reporter struct {
	checker *compliance.Checker
}

// NewReporter 创建合规报告生成器
func NewReporter() *Reporter {
	return &Reporter{checker: compliance.NewChecker()}
}

// trackedKinds 报告覆盖的规则类别，按固定顺序输出
var trackedKinds = []model.ViolationKind{
	model.ViolationInsufficientRest,
	model.ViolationInsufficientGap,
	model.ViolationScheduleOverlap,
	model.ViolationMaxConsecutiveDays,
	model.ViolationWeeklyMaximum,
	model.ViolationTimeBumpExceeded,
}

// Generate 对最终分配结果逐条重新检查并汇总
//
// 每条已分配记录都在其余分配的背景下重跑全部合规检查，
// 所以换班等事后改动造成的违规也会体现在报告里。
func (r *Reporter) Generate(assignments []*model.Assignment, drivers []*model.Driver) *Report {
	driverByID := make(map[string]*model.Driver, len(drivers))
	for _, d := range drivers {
		driverByID[d.ID] = d
	}

	rep := &Report{
		ByDriver: make(map[string]int),
	}
	counts := make(map[model.ViolationKind]*KindSummary)
	for _, k := range trackedKinds {
		counts[k] = &KindSummary{Kind: k}
	}

	for _, a := range assignments {
		if !a.Assigned() {
			continue
		}
		d, ok := driverByID[a.DriverID]
		if !ok {
			continue
		}
		rep.TotalAssignments++
		others := make([]*model.Assignment, 0)
		for _, o := range assignments {
			if o != a && o.Assigned() && o.DriverID == a.DriverID {
				others = append(others, o)
			}
		}
		blk := a.Block
		violations, err := r.checker.Check(d, &blk, others)
		if err != nil {
			continue
		}
		for _, k := range trackedKinds {
			counts[k].Checked++
		}
		if !model.HasError(violations) {
			rep.CleanCount++
		}
		for _, v := range violations {
			s, ok := counts[v.Kind]
			if !ok {
				continue
			}
			if v.IsError() {
				s.Failed++
				rep.ByDriver[a.DriverID]++
			} else {
				s.Warned++
			}
			rep.Violations = append(rep.Violations, v)
		}
	}

	for _, k := range trackedKinds {
		s := counts[k]
		if s.Checked > 0 {
			s.PassRate = float64(s.Checked-s.Failed) / float64(s.Checked)
		}
		rep.ByKind = append(rep.ByKind, s)
	}
	sort.SliceStable(rep.Violations, func(i, j int) bool {
		return rep.Violations[i].BlockID < rep.Violations[j].BlockID
	})
	return rep
}

// Package engine 实现每周工作块的自动分配引擎
//
// 引擎按 (日期, 开始时间, 工作块ID) 的顺序单遍扫描所有工作块，
// 为每个工作块在当前已决定的分配基础上挑选得分最高的司机。
// 不做回溯：早的工作块优先占用司机容量。
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/paiche/paiche/pkg/compliance"
	"github.com/paiche/paiche/pkg/logger"
	"github.com/paiche/paiche/pkg/matcher"
	"github.com/paiche/paiche/pkg/model"
)

// Suggestion 未分配工作块的候选司机建议
type Suggestion struct {
	DriverID   string `json:"driver_id"`
	DriverName string `json:"driver_name"`
	Reason     string `json:"reason"` // 首个阻塞原因
}

// UnassignedBlock 未能分配的工作块及候选建议
type UnassignedBlock struct {
	Block       *model.Block `json:"block"`
	Reason      string       `json:"reason"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// Stats 一次分配运行的统计信息
type Stats struct {
	TotalBlocks   int            `json:"total_blocks"`
	Assigned      int            `json:"assigned"`
	Unassigned    int            `json:"unassigned"`
	FillRate      float64        `json:"fill_rate"`
	ByType        map[string]int `json:"by_type"`
	ActiveDrivers int            `json:"active_drivers"`
}

// Result 自动分配结果
type Result struct {
	Assignments []*model.Assignment `json:"assignments"`
	Unassigned  []*UnassignedBlock  `json:"unassigned"`
	Stats       *Stats              `json:"stats"`
	Duration    time.Duration       `json:"duration"`
}

// maxSuggestions 每个未分配工作块最多返回的候选建议数
const maxSuggestions = 3

// Engine 自动分配引擎
type Engine struct {
	matcher *matcher.Matcher
	checker *compliance.Checker
	log     *logger.EngineLogger
}

// New 创建自动分配引擎
func New() *Engine {
	m := matcher.New()
	return &Engine{
		matcher: m,
		checker: m.Checker(),
		log:     logger.NewEngineLogger(),
	}
}

// candidate 一轮评分中的候选司机
type candidate struct {
	driver *model.Driver
	result *matcher.Result
}

// Assign 对一周的工作块执行自动分配
//
// 返回的 Assignments 覆盖全部输入工作块：未能分配的工作块以
// 空司机记录出现，同时收录在 Unassigned 中并附候选建议。
// 相同输入总是产生相同输出。
func (e *Engine) Assign(ctx context.Context, blocks []*model.Block, drivers []*model.Driver) (*Result, error) {
	start := time.Now()

	active := make([]*model.Driver, 0, len(drivers))
	for _, d := range drivers {
		if d.IsActive() {
			active = append(active, d)
		}
	}
	e.log.StartAssign(len(blocks), len(active))

	sorted := make([]*model.Block, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SortKey() < sorted[j].SortKey()
	})

	assignments := make([]*model.Assignment, 0, len(sorted))
	unassigned := make([]*UnassignedBlock, 0)
	// 同一司机同一天只能出一次车
	driverDates := make(map[string]map[string]bool)
	// 本轮已分配块数，用于得分相同时的负载均衡
	assignedCount := make(map[string]int)

	for _, b := range sorted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		best := e.pickDriver(b, active, assignments, driverDates, assignedCount)
		if best == nil {
			e.log.BlockUnassigned(b.ID, string(b.Category))
			ub := &UnassignedBlock{
				Block:       b,
				Reason:      "没有可满足合规要求的司机",
				Suggestions: e.Suggest(b, active, assignments, maxSuggestions),
			}
			unassigned = append(unassigned, ub)
			assignments = append(assignments, model.NewUnassigned(*b))
			continue
		}

		a := &model.Assignment{
			Block:      *b,
			DriverID:   best.driver.ID,
			DriverName: best.driver.Name,
			Type:       best.result.Type,
			Score:      best.result.Score,
			Warnings:   best.result.Warnings,
		}
		for _, w := range a.Warnings {
			e.log.RuleViolation(string(w.Kind), w.Message)
		}
		assignments = append(assignments, a)
		if driverDates[best.driver.ID] == nil {
			driverDates[best.driver.ID] = make(map[string]bool)
		}
		driverDates[best.driver.ID][b.Date] = true
		assignedCount[best.driver.ID]++
	}

	stats := buildStats(assignments, len(active))
	result := &Result{
		Assignments: assignments,
		Unassigned:  unassigned,
		Stats:       stats,
		Duration:    time.Since(start),
	}
	e.log.AssignComplete(stats.Assigned, stats.Unassigned, result.Duration)
	return result, nil
}

// pickDriver 为单个工作块挑选得分最高的司机
//
// 得分相同时的决胜顺序：本轮已分配块数更少者优先，仍相同则
// 司机ID字典序更小者优先，保证结果确定。
func (e *Engine) pickDriver(b *model.Block, drivers []*model.Driver, assignments []*model.Assignment, driverDates map[string]map[string]bool, assignedCount map[string]int) *candidate {
	var best *candidate
	for _, d := range drivers {
		if driverDates[d.ID][b.Date] {
			continue
		}
		r := e.matcher.Score(d, b, assignments)
		if r == nil {
			continue
		}
		c := &candidate{driver: d, result: r}
		if best == nil || betterCandidate(c, best, assignedCount) {
			best = c
		}
	}
	return best
}

// betterCandidate 判断 a 是否优于 b
func betterCandidate(a, b *candidate, assignedCount map[string]int) bool {
	if a.result.Score != b.result.Score {
		return a.result.Score > b.result.Score
	}
	na, nb := assignedCount[a.driver.ID], assignedCount[b.driver.ID]
	if na != nb {
		return na < nb
	}
	return a.driver.ID < b.driver.ID
}

// Suggest 为无法分配的工作块生成候选司机建议
//
// 只考虑类别匹配的在岗司机，按硬性违规数量升序、司机ID升序
// 排列，每条建议附带首个阻塞原因。
func (e *Engine) Suggest(b *model.Block, drivers []*model.Driver, assignments []*model.Assignment, limit int) []Suggestion {
	type ranked struct {
		driver    *model.Driver
		errors    int
		firstFail string
	}
	candidates := make([]ranked, 0, len(drivers))
	for _, d := range drivers {
		if !d.IsActive() || !d.CanTake(b.Category) {
			continue
		}
		violations, err := e.checker.Check(d, b, filterByDriver(assignments, d.ID))
		if err != nil {
			continue
		}
		r := ranked{driver: d}
		for _, v := range violations {
			if v.IsError() {
				r.errors++
				if r.firstFail == "" {
					r.firstFail = v.Message
				}
			}
		}
		if r.firstFail == "" {
			r.firstFail = fmt.Sprintf("司机 %s 当天已有排班", d.ID)
		}
		candidates = append(candidates, r)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].errors != candidates[j].errors {
			return candidates[i].errors < candidates[j].errors
		}
		return candidates[i].driver.ID < candidates[j].driver.ID
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]Suggestion, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Suggestion{
			DriverID:   c.driver.ID,
			DriverName: c.driver.Name,
			Reason:     c.firstFail,
		})
	}
	return out
}

// filterByDriver 过滤出指定司机的已分配记录
func filterByDriver(assignments []*model.Assignment, driverID string) []*model.Assignment {
	out := make([]*model.Assignment, 0)
	for _, a := range assignments {
		if a.Assigned() && a.DriverID == driverID {
			out = append(out, a)
		}
	}
	return out
}

// buildStats 统计分配结果
func buildStats(assignments []*model.Assignment, activeDrivers int) *Stats {
	s := &Stats{
		TotalBlocks:   len(assignments),
		ByType:        make(map[string]int),
		ActiveDrivers: activeDrivers,
	}
	for _, a := range assignments {
		s.ByType[string(a.Type)]++
		if a.Assigned() {
			s.Assigned++
		} else {
			s.Unassigned++
		}
	}
	if s.TotalBlocks > 0 {
		s.FillRate = float64(s.Assigned) / float64(s.TotalBlocks)
	}
	return s
}

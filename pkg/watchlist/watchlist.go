// Package watchlist 生成本周调度关注列表
//
// 关注列表面向值班调度员：哪些司机负载逼近上限、哪些工作块
// 还没有人跑。司机条目与缺口条目分开列出。
package watchlist

import (
	"sort"

	"github.com/paiche/paiche/pkg/engine"
	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/workload"
)

// Level 关注级别
type Level string

const (
	LevelCritical Level = "critical"
	LevelWarning  Level = "warning"
)

// DriverItem 需要关注的司机
type DriverItem struct {
	DriverID           string   `json:"driver_id"`
	DriverName         string   `json:"driver_name"`
	Level              Level    `json:"level"`
	TotalBlocks        int      `json:"total_blocks"`
	WeeklyQuota        int      `json:"weekly_quota"`
	MaxConsecutiveDays int      `json:"max_consecutive_days"`
	Reasons            []string `json:"reasons"`
}

// Gap 未覆盖的工作块缺口
type Gap struct {
	Block       *model.Block        `json:"block"`
	Reason      string              `json:"reason"`
	Suggestions []engine.Suggestion `json:"suggestions,omitempty"`
}

// Watchlist 本周关注列表
type Watchlist struct {
	Drivers []*DriverItem `json:"drivers"`
	Gaps    []*Gap        `json:"gaps"`
}

// Builder 关注列表构建器
type Builder struct {
	aggregator *workload.Aggregator
	engine     *engine.Engine
}

// NewBuilder 创建关注列表构建器
func NewBuilder() *Builder {
	return &Builder{
		aggregator: workload.NewAggregator(),
		engine:     engine.New(),
	}
}

// Build 从最终分配结果构建关注列表
//
// 缺口建议基于定稿后的完整分配集合重新计算，与分配过程中
// 的建议可能不同。critical 条目排在 warning 之前。
func (b *Builder) Build(assignments []*model.Assignment, drivers []*model.Driver) *Watchlist {
	w := &Watchlist{
		Drivers: make([]*DriverItem, 0),
		Gaps:    make([]*Gap, 0),
	}

	for _, wl := range b.aggregator.Aggregate(assignments, drivers) {
		item := classify(wl)
		if item != nil {
			w.Drivers = append(w.Drivers, item)
		}
	}
	sort.Slice(w.Drivers, func(i, j int) bool {
		if w.Drivers[i].Level != w.Drivers[j].Level {
			return w.Drivers[i].Level == LevelCritical
		}
		return w.Drivers[i].DriverID < w.Drivers[j].DriverID
	})

	for _, a := range assignments {
		if a.Assigned() {
			continue
		}
		blk := a.Block
		w.Gaps = append(w.Gaps, &Gap{
			Block:       &blk,
			Reason:      "没有可满足合规要求的司机",
			Suggestions: b.engine.Suggest(&blk, drivers, assignments, 3),
		})
	}
	sort.Slice(w.Gaps, func(i, j int) bool {
		return w.Gaps[i].Block.SortKey() < w.Gaps[j].Block.SortKey()
	})
	return w
}

// classify 判断司机是否需要上关注列表
func classify(wl *workload.DriverWorkload) *DriverItem {
	var level Level
	var reasons []string

	switch {
	case wl.IsAtMax:
		level = LevelCritical
	case wl.MaxConsecutiveDays >= 6:
		level = LevelCritical
	case len(wl.Warnings) > 0:
		level = LevelWarning
	default:
		return nil
	}
	reasons = append(reasons, wl.Warnings...)

	return &DriverItem{
		DriverID:           wl.DriverID,
		DriverName:         wl.DriverName,
		Level:              level,
		TotalBlocks:        wl.TotalBlocks,
		WeeklyQuota:        wl.WeeklyQuota,
		MaxConsecutiveDays: wl.MaxConsecutiveDays,
		Reasons:            reasons,
	}
}

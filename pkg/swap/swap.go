// Package swap 实现换班的校验与执行
//
// 换班分两步：先 Validate 得到校验结果，再拿着通过的校验结果
// 调 Execute。Execute 只接受 Validate 的产物，类型上就堵住了
// 跳过校验直接改班的路。
package swap

import (
	"sort"

	"github.com/paiche/paiche/pkg/compliance"
	"github.com/paiche/paiche/pkg/errors"
	"github.com/paiche/paiche/pkg/logger"
	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/rules"
)

// DriverDelta 换班前后单个司机的负载变化
type DriverDelta struct {
	DriverID     string  `json:"driver_id"`
	BlocksBefore int     `json:"blocks_before"`
	BlocksAfter  int     `json:"blocks_after"`
	PayBefore    float64 `json:"pay_before"`
	PayAfter     float64 `json:"pay_after"`
}

// Impact 换班对双方司机的影响
type Impact struct {
	Current *DriverDelta `json:"current"`
	New     *DriverDelta `json:"new"`
}

// Validation 换班校验结果
type Validation struct {
	Valid           bool              `json:"valid"`
	BlockID         string            `json:"block_id"`
	CurrentDriverID string            `json:"current_driver_id"`
	NewDriverID     string            `json:"new_driver_id"`
	NewDriverName   string            `json:"new_driver_name"`
	Violations      []model.Violation `json:"violations,omitempty"`
	Impact          *Impact           `json:"impact"`
}

// Swapper 换班处理器
type Swapper struct {
	checker *compliance.Checker
	log     *logger.EngineLogger
}

// NewSwapper 创建换班处理器
func NewSwapper() *Swapper {
	return &Swapper{
		checker: compliance.NewChecker(),
		log:     logger.NewEngineLogger(),
	}
}

// Validate 校验把工作块从当前司机换给新司机是否合规
//
// 检查时把目标工作块从新司机的既有排班里剔除（它正要换过来，
// 不能既算旧账又算新账）。只有硬性违规会判为不通过，警告级
// 违规照常放行但收录在结果里。
func (s *Swapper) Validate(assignments []*model.Assignment, drivers []*model.Driver, blockID, currentDriverID, newDriverID string) (*Validation, error) {
	var target *model.Assignment
	for _, a := range assignments {
		if a.Block.ID == blockID {
			target = a
			break
		}
	}
	if target == nil {
		return nil, errors.NotFound("工作块", blockID)
	}
	if target.DriverID != currentDriverID {
		return nil, errors.InvalidInput("current_driver_id",
			"该工作块不属于此司机")
	}
	if currentDriverID == newDriverID {
		return nil, errors.InvalidInput("new_driver_id", "新旧司机相同")
	}

	var newDriver *model.Driver
	for _, d := range drivers {
		if d.ID == newDriverID {
			newDriver = d
			break
		}
	}
	if newDriver == nil {
		return nil, errors.NotFound("司机", newDriverID)
	}

	v := &Validation{
		BlockID:         blockID,
		CurrentDriverID: currentDriverID,
		NewDriverID:     newDriverID,
		NewDriverName:   newDriver.Name,
	}

	blk := target.Block
	// 同一司机同一天最多一条分配，与自动分配时的约束一致
	var sameDay *model.Assignment
	for _, a := range assignments {
		if a.Assigned() && a.DriverID == newDriverID && a.Block.ID != blockID && a.Date == blk.Date {
			sameDay = a
			break
		}
	}
	if !newDriver.IsActive() {
		v.Violations = append(v.Violations, model.Violation{
			Kind:     model.ViolationDriverIneligible,
			Severity: model.SeverityError,
			Message:  "司机 " + newDriverID + " 当前不在岗",
			DriverID: newDriverID,
			BlockID:  blockID,
		})
	} else if !newDriver.CanTake(blk.Category) {
		v.Violations = append(v.Violations, model.Violation{
			Kind:     model.ViolationDriverIneligible,
			Severity: model.SeverityError,
			Message:  "司机 " + newDriverID + " 不能承接 " + string(blk.Category) + " 类别",
			DriverID: newDriverID,
			BlockID:  blockID,
		})
	} else if sameDay != nil {
		v.Violations = append(v.Violations, model.Violation{
			Kind:     model.ViolationScheduleOverlap,
			Severity: model.SeverityError,
			Message:  "司机 " + newDriverID + " 在 " + blk.Date + " 已有排班（" + sameDay.Block.ID + "）",
			DriverID: newDriverID,
			BlockID:  blockID,
		})
	} else {
		others := make([]*model.Assignment, 0)
		for _, a := range assignments {
			if a.Assigned() && a.DriverID == newDriverID && a.Block.ID != blockID {
				others = append(others, a)
			}
		}
		violations, err := s.checker.Check(newDriver, &blk, others)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidTimeRange, "工作块时间无法解析")
		}
		v.Violations = violations
	}

	v.Valid = !model.HasError(v.Violations)
	v.Impact = s.buildImpact(assignments, target, currentDriverID, newDriverID)
	return v, nil
}

// Execute 执行一次已通过校验的换班
//
// 只接受 Validate 返回的通过结果；nil 或未通过一律拒绝。
// 不重新校验：校验与执行之间若有其他改动，由调用方重新
// Validate。返回换班后的完整分配列表，原列表不被修改。
func (s *Swapper) Execute(assignments []*model.Assignment, v *Validation) ([]*model.Assignment, error) {
	if v == nil {
		return nil, errors.SwapRejected("缺少校验结果")
	}
	if !v.Valid {
		return nil, errors.SwapRejected("校验未通过")
	}

	out := make([]*model.Assignment, 0, len(assignments))
	found := false
	for _, a := range assignments {
		if a.Block.ID == v.BlockID {
			if a.DriverID != v.CurrentDriverID {
				return nil, errors.SwapRejected("工作块归属已变化，请重新校验")
			}
			swapped := *a
			swapped.DriverID = v.NewDriverID
			swapped.DriverName = v.NewDriverName
			swapped.Type = model.MatchManual
			swapped.Score = 100
			swapped.Warnings = nil
			out = append(out, &swapped)
			found = true
			continue
		}
		out = append(out, a)
	}
	if !found {
		return nil, errors.NotFound("工作块", v.BlockID)
	}

	s.log.SwapExecuted(v.BlockID, v.CurrentDriverID, v.NewDriverID)
	return out, nil
}

// buildImpact 计算换班前后双方司机的块数与薪酬变化
func (s *Swapper) buildImpact(assignments []*model.Assignment, target *model.Assignment, currentID, newID string) *Impact {
	cur := &DriverDelta{DriverID: currentID}
	nw := &DriverDelta{DriverID: newID}
	for _, a := range assignments {
		if !a.Assigned() {
			continue
		}
		pay := blockPay(a)
		switch a.DriverID {
		case currentID:
			cur.BlocksBefore++
			cur.PayBefore += pay
		case newID:
			nw.BlocksBefore++
			nw.PayBefore += pay
		}
	}
	targetPay := blockPay(target)
	cur.BlocksAfter = cur.BlocksBefore - 1
	cur.PayAfter = cur.PayBefore - targetPay
	nw.BlocksAfter = nw.BlocksBefore + 1
	nw.PayAfter = nw.PayBefore + targetPay
	return &Impact{Current: cur, New: nw}
}

// blockPay 取分配记录的薪酬，缺省回落到类别标称薪酬
func blockPay(a *model.Assignment) float64 {
	if a.EstimatedPay > 0 {
		return a.EstimatedPay
	}
	if r, err := rules.Get(a.Category); err == nil {
		return r.NominalPay
	}
	return 0
}

// SortByBlock 按工作块排序分配列表，保证输出顺序稳定
func SortByBlock(assignments []*model.Assignment) {
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].SortKey() < assignments[j].SortKey()
	})
}

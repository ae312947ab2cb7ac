// Package model 定义司机排班引擎的核心数据模型
package model

// ViolationKind 合规违规类型
type ViolationKind string

const (
	ViolationInsufficientRest   ViolationKind = "insufficient_rest"    // 收车到出车间隔不足
	ViolationInsufficientGap    ViolationKind = "insufficient_gap"     // 出车到出车间隔不足
	ViolationScheduleOverlap    ViolationKind = "schedule_overlap"     // 与已有班次时间重叠
	ViolationMaxConsecutiveDays ViolationKind = "max_consecutive_days" // 连续工作天数超限
	ViolationWeeklyMaximum      ViolationKind = "weekly_maximum"       // 周配额已满
	ViolationNeedsWeeklyReset   ViolationKind = "needs_weekly_reset"   // 保留，当前逻辑未使用
	ViolationTimeBumpExceeded   ViolationKind = "time_bump_exceeded"   // 出车时间偏离惯常时间过大
	ViolationDriverIneligible   ViolationKind = "driver_ineligible"    // 司机不在岗或类别不符
)

// Violation 合规违规记录
// 不单独持久化，总是附在分配记录上或汇总进合规报告
type Violation struct {
	Kind     ViolationKind `json:"kind"`
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
	Actual   float64       `json:"actual"`
	Required float64       `json:"required"`
	DriverID string        `json:"driver_id,omitempty"`
	BlockID  string        `json:"block_id,omitempty"`
}

// IsError 检查是否为 error 级违规
func (v Violation) IsError() bool {
	return v.Severity == SeverityError
}

// HasError 检查违规列表中是否含有 error 级违规
func HasError(violations []Violation) bool {
	for _, v := range violations {
		if v.IsError() {
			return true
		}
	}
	return false
}

// WarningsOnly 过滤出 warning 级违规
// 分配记录上只允许保留 warning 级
func WarningsOnly(violations []Violation) []Violation {
	var out []Violation
	for _, v := range violations {
		if v.Severity == SeverityWarning {
			out = append(out, v)
		}
	}
	return out
}

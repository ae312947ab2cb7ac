// Package model 定义司机排班引擎的核心数据模型
package model

// AssignmentType 分配类型标签
type AssignmentType string

const (
	MatchExact        AssignmentType = "exact_match"   // 偏好日且时间几乎一致
	MatchClose        AssignmentType = "close_match"   // 偏好日且在容差内
	MatchPattern      AssignmentType = "pattern_match" // 偏好日但时间偏移较大
	MatchCrossTrained AssignmentType = "cross_trained" // 灵活司机跨类别接班
	MatchStandby      AssignmentType = "standby"       // 在岗但无日期匹配
	MatchManual       AssignmentType = "manual"        // 调度员手工指定
	MatchUnassigned   AssignmentType = "unassigned"    // 无人可派
)

// Assignment 排班分配：工作块加上司机与评分簿记字段
// 每个工作块在整轮运行中恰有一条分配记录；司机字段在初次分配和换班时变更
type Assignment struct {
	Block

	DriverID   string `json:"driver_id,omitempty" db:"driver_id"`
	DriverName string `json:"driver_name,omitempty" db:"driver_name"`

	Type  AssignmentType `json:"type" db:"type"`
	Score float64        `json:"score" db:"score"`

	// 分配时附带的 warning 级合规提示（error 级只用于候选过滤，不会落到记录上）
	Warnings []Violation `json:"warnings,omitempty" db:"-"`
}

// Assigned 检查该块是否已有司机
func (a *Assignment) Assigned() bool {
	return a.DriverID != ""
}

// NewUnassigned 创建未分配记录
func NewUnassigned(b Block) *Assignment {
	return &Assignment{
		Block: b,
		Type:  MatchUnassigned,
		Score: 0,
	}
}

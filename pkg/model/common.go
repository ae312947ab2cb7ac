// Package model 定义司机排班引擎的核心数据模型
package model

import "time"

// Category 工作类别（合同类型）
type Category string

const (
	CategorySolo1 Category = "solo1" // 短途单人班（每日往返）
	CategorySolo2 Category = "solo2" // 长途单人班（48小时往返）
	CategoryTeam  Category = "team"  // 双人车队班
)

// Categories 返回全部工作类别（固定顺序）
func Categories() []Category {
	return []Category{CategorySolo1, CategorySolo2, CategoryTeam}
}

// IsValid 检查类别是否合法
func (c Category) IsValid() bool {
	switch c {
	case CategorySolo1, CategorySolo2, CategoryTeam:
		return true
	}
	return false
}

// Severity 违规严重程度
type Severity string

const (
	SeverityError   Severity = "error"   // 候选人不合规，直接淘汰
	SeverityWarning Severity = "warning" // 可分配，但提示调度员关注
)

// WeekdayNames 周内日名称（周日为一周起点）
var WeekdayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// WeekdayName 返回周内日的短名称
func WeekdayName(w time.Weekday) string {
	return WeekdayNames[int(w)]
}

// Package model 定义司机排班引擎的核心数据模型
package model

import "time"

// Block 工作块：一个可排班的工作单元
// 由上游重建步骤产出，产出后不可变
type Block struct {
	ID            string   `json:"id" db:"id"`
	Date          string   `json:"date" db:"date"`             // YYYY-MM-DD
	StartTime     string   `json:"start_time" db:"start_time"` // HH:MM
	Category      Category `json:"category" db:"category"`
	DurationClass string   `json:"duration_class,omitempty" db:"duration_class"`
	EstimatedPay  float64  `json:"estimated_pay,omitempty" db:"estimated_pay"`
}

// Weekday 返回工作块所在的周内日（由日期推导）
func (b *Block) Weekday() (time.Weekday, error) {
	t, err := time.Parse("2006-01-02", b.Date)
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}

// StartAt 返回工作块的起始时间戳
func (b *Block) StartAt() (time.Time, error) {
	return time.Parse("2006-01-02 15:04", b.Date+" "+b.StartTime)
}

// SortKey 返回用于确定性排序的键（日期+时间+块ID）
// ISO 日期与 HH:MM 的字典序即时间序
func (b *Block) SortKey() string {
	return b.Date + " " + b.StartTime + " " + b.ID
}

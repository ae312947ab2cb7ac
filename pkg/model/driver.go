// Package model 定义司机排班引擎的核心数据模型
package model

import "time"

// Affinity 司机的类别归属：固定单一类别，或 both（可跨类别）
type Affinity string

const (
	AffinitySolo1 Affinity = "solo1"
	AffinitySolo2 Affinity = "solo2"
	AffinityTeam  Affinity = "team"
	AffinityBoth  Affinity = "both" // 灵活司机，接受任何类别
)

// IsValid 检查归属是否合法
func (a Affinity) IsValid() bool {
	switch a {
	case AffinitySolo1, AffinitySolo2, AffinityTeam, AffinityBoth:
		return true
	}
	return false
}

// DriverStatus 司机状态
type DriverStatus string

const (
	StatusActive   DriverStatus = "active"   // 在岗
	StatusStandby  DriverStatus = "standby"  // 待命
	StatusInactive DriverStatus = "inactive" // 停用
	StatusOnLeave  DriverStatus = "on_leave" // 休假
)

// Driver 司机档案
// 由外部花名册导入创建，单次排班运行内只读
type Driver struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	Affinity Affinity     `json:"affinity" db:"affinity"`
	Status   DriverStatus `json:"status" db:"status"`

	// 排班偏好
	PreferredDays  []time.Weekday `json:"preferred_days,omitempty" db:"preferred_days"`
	CanonicalStart string         `json:"canonical_start" db:"canonical_start"` // HH:MM，最典型的出车时间

	// WeeklyQuota 为 0 时使用类别默认配额
	WeeklyQuota int     `json:"weekly_quota,omitempty" db:"weekly_quota"`
	Reliability float64 `json:"reliability" db:"reliability"` // 0-1
}

// IsActive 检查司机是否在岗
func (d *Driver) IsActive() bool {
	return d.Status == StatusActive
}

// PrefersDay 检查某周内日是否在司机偏好集合内
func (d *Driver) PrefersDay(w time.Weekday) bool {
	for _, p := range d.PreferredDays {
		if p == w {
			return true
		}
	}
	return false
}

// CanTake 检查司机归属是否兼容某工作类别
// 固定归属的司机不可跨类别，both 归属接受任何类别
func (d *Driver) CanTake(c Category) bool {
	if d.Affinity == AffinityBoth {
		return true
	}
	return string(d.Affinity) == string(c)
}

// IsFlexible 检查司机是否为跨类别灵活司机
func (d *Driver) IsFlexible() bool {
	return d.Affinity == AffinityBoth
}

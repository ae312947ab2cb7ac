// Package rules 提供类别规则表与时间计算工具
package rules

import (
	"fmt"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	clockLayout    = "15:04"
	dateTimeLayout = "2006-01-02 15:04"
)

// ParseClock 解析 HH:MM 时刻，返回自零点起的小时数
func ParseClock(clock string) (float64, error) {
	t, err := time.Parse(clockLayout, clock)
	if err != nil {
		return 0, fmt.Errorf("解析时刻 %q 失败: %w", clock, err)
	}
	return float64(t.Hour()) + float64(t.Minute())/60.0, nil
}

// ParseDate 解析 YYYY-MM-DD 日期
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("解析日期 %q 失败: %w", date, err)
	}
	return t, nil
}

// Combine 将日期与时刻组合为时间戳
func Combine(date, clock string) (time.Time, error) {
	t, err := time.Parse(dateTimeLayout, date+" "+clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("解析时间 %q %q 失败: %w", date, clock, err)
	}
	return t, nil
}

// HoursBetween 计算两个日期+时刻之间的小时差（b - a，带符号）
func HoursBetween(aDate, aClock, bDate, bClock string) (float64, error) {
	a, err := Combine(aDate, aClock)
	if err != nil {
		return 0, err
	}
	b, err := Combine(bDate, bClock)
	if err != nil {
		return 0, err
	}
	return b.Sub(a).Hours(), nil
}

// AddHours 在日期+时刻上加一段时长
func AddHours(date, clock string, hours float64) (time.Time, error) {
	t, err := Combine(date, clock)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(time.Duration(hours * float64(time.Hour))), nil
}

// ClockDelta 计算两个时刻的绝对小时差（不跨日回绕）
func ClockDelta(a, b string) (float64, error) {
	ha, err := ParseClock(a)
	if err != nil {
		return 0, err
	}
	hb, err := ParseClock(b)
	if err != nil {
		return 0, err
	}
	d := ha - hb
	if d < 0 {
		d = -d
	}
	return d, nil
}

// WeekdayOf 返回日期的周内日
func WeekdayOf(date string) (time.Weekday, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}

// LongestRun 计算周内日集合中最长的连续段
// 一周按 周日→周六 线性处理，不回绕
func LongestRun(days map[time.Weekday]bool) int {
	longest := 0
	run := 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		if days[d] {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}

package score

import (
	"slices"
	"time"
)

// Level 表示单个习惯在某天的完成档位
// 0=跳过 1=部分完成 2=完全完成，积分分别为 0/0.5/1.0
type Level int

const (
	LevelSkipped Level = 0
	LevelPartial Level = 1
	LevelFull    Level = 2
)

// MaxBucket 为网格着色使用的最高强度档位
const MaxBucket = 4

// ScoredDay 表示引擎产出的单日评分
// Date 必须为天粒度（当天零点），CheckedIn 与 Score 相互独立：
// 全部习惯显式跳过的一天 CheckedIn=true 但 Score=0
type ScoredDay struct {
	Date      time.Time
	Score     int
	CheckedIn bool
}

// Day 将时间归一化到当天零点，保持原时区
// 所有日期比较前都应先经过该归一化
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// utcDay 将年月日落到 UTC 零点，作为跨时区安全的比较键
// 从数据库读回的时间可能携带与写入时不同的 Location，
// 直接用 time.Time 做 map 键或相等比较会因 Location 指针不同而失配
func utcDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Credit 返回完成档位对应的积分
func Credit(level Level) float64 {
	switch level {
	case LevelFull:
		return 1.0
	case LevelPartial:
		return 0.5
	default:
		return 0
	}
}

// DayScore 根据当日各习惯的完成档位与当日活跃习惯数计算 0..4 的评分档位
// totalHabitCount<=0 时直接返回 0，避免除零
func DayScore(levels []Level, totalHabitCount int) int {
	if totalHabitCount <= 0 {
		return 0
	}

	var credit float64
	for _, level := range levels {
		credit += Credit(level)
	}

	return Bucket(credit / float64(totalHabitCount))
}

// Bucket 将积分占比映射到 0..4 的强度档位
// 阈值：0→0，(0,0.25]→1，(0.25,0.5]→2，(0.5,0.75]→3，(0.75,+∞)→4
func Bucket(fraction float64) int {
	switch {
	case fraction <= 0:
		return 0
	case fraction <= 0.25:
		return 1
	case fraction <= 0.5:
		return 2
	case fraction <= 0.75:
		return 3
	default:
		return MaxBucket
	}
}

// CurrentStreak 从 asOf（含）开始逐日回溯，统计连续打卡天数
// 输入中缺失的日期视为未打卡；asOf 当天未打卡时返回 0
func CurrentStreak(days []ScoredDay, asOf time.Time) int {
	checkedIn := make(map[time.Time]bool, len(days))
	for _, day := range days {
		if day.CheckedIn {
			checkedIn[utcDay(day.Date)] = true
		}
	}

	streak := 0
	for cursor := utcDay(asOf); checkedIn[cursor]; cursor = cursor.AddDate(0, 0, -1) {
		streak++
	}

	return streak
}

// LongestStreak 返回历史上最长的连续打卡天数
// 未打卡的日期不参与计算，空输入返回 0
func LongestStreak(days []ScoredDay) int {
	dates := checkedInDates(days)
	if len(dates) == 0 {
		return 0
	}

	longest := 1
	current := 1

	for i := 1; i < len(dates); i++ {
		if dates[i-1].AddDate(0, 0, 1).Equal(dates[i]) {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 1
		}
	}

	return longest
}

// RollingAverage 计算 [asOf-windowDays, asOf] 区间内打卡日的平均评分
// 窗口内没有打卡日时返回 0，不会产生 NaN
func RollingAverage(days []ScoredDay, windowDays int, asOf time.Time) float64 {
	if windowDays < 0 {
		return 0
	}

	end := utcDay(asOf)
	start := end.AddDate(0, 0, -windowDays)

	sum := 0
	count := 0
	for _, day := range days {
		if !day.CheckedIn {
			continue
		}
		date := utcDay(day.Date)
		if date.Before(start) || date.After(end) {
			continue
		}
		sum += day.Score
		count++
	}

	if count == 0 {
		return 0
	}

	return float64(sum) / float64(count)
}

// checkedInDates 提取打卡日并按日期升序去重排序
func checkedInDates(days []ScoredDay) []time.Time {
	seen := make(map[time.Time]bool, len(days))
	dates := make([]time.Time, 0, len(days))

	for _, day := range days {
		if !day.CheckedIn {
			continue
		}
		date := utcDay(day.Date)
		if seen[date] {
			continue
		}
		seen[date] = true
		dates = append(dates, date)
	}

	slices.SortFunc(dates, func(a, b time.Time) int {
		return a.Compare(b)
	})

	return dates
}

package service

import (
	"fmt"
	"time"

	"github.com/lifegrid/internal/db"
	"github.com/lifegrid/internal/score"
	"gorm.io/gorm"
)

// 小组件与统计摘要使用的滚动窗口
const (
	weekWindowDays  = 6
	monthWindowDays = 29
	widgetTrailDays = 364
)

// StatsService 基于 day_entries 缓存产出评分序列与统计摘要
// 计算本身全部委托给 score 包的纯函数
type StatsService struct {
	db      *gorm.DB
	entries *EntryService
}

// StatsSummary 汇总面板与小组件共用的统计数据
type StatsSummary struct {
	AsOf           time.Time
	TodayScore     int
	TodayCheckedIn bool
	CurrentStreak  int
	LongestStreak  int
	WeekAverage    float64
	MonthAverage   float64
	CheckedInDays  int
}

// WidgetPayload 为手表/桌面小组件准备的紧凑数据
// Days 为尾随一年内 日期→评分档位 的映射，未打卡的日期不出现
type WidgetPayload struct {
	GeneratedAt   time.Time
	AsOf          time.Time
	TodayScore    int
	CurrentStreak int
	LongestStreak int
	Days          map[string]int
}

// NewStatsService 构造 StatsService
func NewStatsService(gdb *gorm.DB, entries *EntryService) *StatsService {
	return &StatsService{db: gdb, entries: entries}
}

// ScoredRange 返回区间内的评分序列，按日期升序
// 缺失的日期不出现在序列中，与“缺失即未打卡”的约定一致
func (s *StatsService) ScoredRange(start, end time.Time) ([]score.ScoredDay, error) {
	entries, err := s.entries.GetRange(start, end)
	if err != nil {
		return nil, err
	}
	return toScoredDays(entries), nil
}

// Summary 计算 asOf 当天视角下的统计摘要
func (s *StatsService) Summary(asOf time.Time) (*StatsSummary, error) {
	days, err := s.allScoredDays()
	if err != nil {
		return nil, err
	}

	today := score.Day(asOf)
	summary := &StatsSummary{
		AsOf:          today,
		CurrentStreak: score.CurrentStreak(days, today),
		LongestStreak: score.LongestStreak(days),
		WeekAverage:   score.RollingAverage(days, weekWindowDays, today),
		MonthAverage:  score.RollingAverage(days, monthWindowDays, today),
	}

	for _, day := range days {
		if !day.CheckedIn {
			continue
		}
		summary.CheckedInDays++
		if day.Date.Equal(today) {
			summary.TodayScore = day.Score
			summary.TodayCheckedIn = true
		}
	}

	return summary, nil
}

// Widget 生成小组件刷新所需的尾随一年数据
func (s *StatsService) Widget(asOf time.Time) (*WidgetPayload, error) {
	summary, err := s.Summary(asOf)
	if err != nil {
		return nil, err
	}

	today := score.Day(asOf)
	trail, err := s.ScoredRange(today.AddDate(0, 0, -widgetTrailDays), today)
	if err != nil {
		return nil, err
	}

	days := make(map[string]int, len(trail))
	for _, day := range trail {
		if day.CheckedIn {
			days[day.Date.Format("2006-01-02")] = day.Score
		}
	}

	return &WidgetPayload{
		GeneratedAt:   time.Now(),
		AsOf:          today,
		TodayScore:    summary.TodayScore,
		CurrentStreak: summary.CurrentStreak,
		LongestStreak: summary.LongestStreak,
		Days:          days,
	}, nil
}

// allScoredDays 加载全部缓存条目供连胜计算使用
// 个人应用的数据量以年计，整表加载是可接受的
func (s *StatsService) allScoredDays() ([]score.ScoredDay, error) {
	var entries []db.DayEntry
	if err := s.db.Order("day ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list all day entries: %w", err)
	}
	return toScoredDays(entries), nil
}

func toScoredDays(entries []db.DayEntry) []score.ScoredDay {
	days := make([]score.ScoredDay, 0, len(entries))
	for _, entry := range entries {
		days = append(days, score.ScoredDay{
			Date:      score.Day(entry.Day),
			Score:     entry.Score,
			CheckedIn: entry.CheckedIn,
		})
	}
	return days
}

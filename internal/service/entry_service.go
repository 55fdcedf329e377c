package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/lifegrid/internal/db"
	"github.com/lifegrid/internal/score"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntryService 维护 day_entries 派生缓存
// 缓存永远可以从 habit_completions 重新推导；每次打卡写入后同步重算当天，
// 活跃习惯数在重算时快照进 ActiveHabitCount，历史评分不随习惯增删漂移
type EntryService struct {
	db *gorm.DB
}

// NewEntryService 构造 EntryService
func NewEntryService(gdb *gorm.DB) *EntryService {
	return &EntryService{db: gdb}
}

// RecomputeDay 在给定事务内重算某天的缓存条目
// 当天没有任何打卡记录时删除缓存行（缺失即未打卡），返回 nil
func (s *EntryService) RecomputeDay(tx *gorm.DB, day time.Time) (*db.DayEntry, error) {
	normalized := score.Day(day)

	var completionCount int64
	if err := tx.Model(&db.HabitCompletion{}).
		Where("day = ?", normalized).
		Count(&completionCount).Error; err != nil {
		return nil, fmt.Errorf("count completions: %w", err)
	}

	if completionCount == 0 {
		if err := tx.Unscoped().Where("day = ?", normalized).Delete(&db.DayEntry{}).Error; err != nil {
			return nil, fmt.Errorf("delete empty day entry: %w", err)
		}
		return nil, nil
	}

	var activeCount int64
	if err := tx.Model(&db.Habit{}).Where("active = ?", true).Count(&activeCount).Error; err != nil {
		return nil, fmt.Errorf("count active habits: %w", err)
	}

	// 只有活跃习惯的打卡计入积分，归档/已删习惯的记录仅保留打卡痕迹
	var levels []int
	if err := tx.Model(&db.HabitCompletion{}).
		Joins("JOIN habits ON habits.id = habit_completions.habit_id").
		Where("habit_completions.day = ? AND habits.active = ? AND habits.deleted_at IS NULL", normalized, true).
		Pluck("habit_completions.level", &levels).Error; err != nil {
		return nil, fmt.Errorf("load completion levels: %w", err)
	}

	var credit float64
	scoreLevels := make([]score.Level, 0, len(levels))
	for _, level := range levels {
		scoreLevels = append(scoreLevels, score.Level(level))
		credit += score.Credit(score.Level(level))
	}

	entry := db.DayEntry{
		Day:              normalized,
		Score:            score.DayScore(scoreLevels, int(activeCount)),
		Credit:           credit,
		CheckedIn:        true,
		CompletionCount:  int(completionCount),
		ActiveHabitCount: int(activeCount),
	}

	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score", "credit", "checked_in", "completion_count", "active_habit_count", "updated_at",
		}),
	}).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("upsert day entry: %w", err)
	}

	if err := tx.Where("day = ?", normalized).First(&entry).Error; err != nil {
		return nil, fmt.Errorf("reload day entry: %w", err)
	}

	return &entry, nil
}

// RebuildRange 重算区间内每一天的缓存，供数据修复或全量校验使用
// 注意：重建会用当前活跃习惯数刷新历史快照
func (s *EntryService) RebuildRange(start, end time.Time) (int, error) {
	first := score.Day(start)
	last := score.Day(end)
	if last.Before(first) {
		return 0, fmt.Errorf("invalid range: end before start")
	}

	rebuilt := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
			if _, err := s.RecomputeDay(tx, day); err != nil {
				return err
			}
			rebuilt++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("rebuild range: %w", err)
	}

	return rebuilt, nil
}

// Get 返回某天的缓存条目，缺失时返回 nil
func (s *EntryService) Get(day time.Time) (*db.DayEntry, error) {
	var entry db.DayEntry
	if err := s.db.Where("day = ?", score.Day(day)).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get day entry: %w", err)
	}
	return &entry, nil
}

// GetRange 返回区间内已存在的缓存条目，按日期升序；缺失的日期不出现在结果中
func (s *EntryService) GetRange(start, end time.Time) ([]db.DayEntry, error) {
	var entries []db.DayEntry
	if err := s.db.
		Where("day BETWEEN ? AND ?", score.Day(start), score.Day(end)).
		Order("day ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list day entries: %w", err)
	}
	return entries, nil
}

package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lifegrid/internal/db"
	"github.com/lifegrid/internal/score"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrInvalidLevel 在完成档位不在 0..2 时返回
	ErrInvalidLevel = errors.New("invalid completion level")
	// ErrHabitArchived 在向已归档习惯打卡时返回
	ErrHabitArchived = errors.New("habit is archived")
	// ErrCompletionNotFound 在指定打卡记录不存在时返回
	ErrCompletionNotFound = errors.New("completion not found")
)

// CheckinService 负责打卡写入与查询
// 同一习惯同一天只保留一条记录，重复提交为“后写覆盖”；
// 每次写入/删除都会在同一事务内重算当天的 DayEntry 缓存
type CheckinService struct {
	db      *gorm.DB
	entries *EntryService
}

// CheckinInput 定义打卡时的输入对象
type CheckinInput struct {
	HabitID uint
	Day     time.Time
	Level   int
	Note    string
	Source  string
}

// CheckinFilter 指定查询区间，HabitID 为 0 时不限定习惯
type CheckinFilter struct {
	HabitID uint
	Start   time.Time
	End     time.Time
}

// NewCheckinService 构造 CheckinService
func NewCheckinService(gdb *gorm.DB, entries *EntryService) *CheckinService {
	return &CheckinService{db: gdb, entries: entries}
}

// Upsert 处理幂等打卡：若当天已有记录则覆盖档位/备注/来源，否则创建
// 归档习惯拒绝打卡，保证评分输入不会出现“非活跃习惯的完成记录”
func (s *CheckinService) Upsert(input CheckinInput) (*db.HabitCompletion, error) {
	if input.Level < int(score.LevelSkipped) || input.Level > int(score.LevelFull) {
		return nil, ErrInvalidLevel
	}

	var habit db.Habit
	if err := s.db.First(&habit, input.HabitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("find habit: %w", err)
	}
	if !habit.Active {
		return nil, ErrHabitArchived
	}

	day := score.Day(input.Day)
	record := db.HabitCompletion{
		HabitID: input.HabitID,
		Day:     day,
		Level:   input.Level,
		Note:    strings.TrimSpace(input.Note),
		Source:  strings.TrimSpace(input.Source),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "habit_id"}, {Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{"level", "note", "source", "updated_at"}),
		}).Create(&record).Error; err != nil {
			return fmt.Errorf("upsert completion: %w", err)
		}

		if err := tx.Where("habit_id = ? AND day = ?", input.HabitID, day).First(&record).Error; err != nil {
			return fmt.Errorf("reload completion: %w", err)
		}

		if _, err := s.entries.RecomputeDay(tx, day); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// Delete 删除指定打卡记录并重算当天缓存
func (s *CheckinService) Delete(id uint) error {
	var record db.HabitCompletion
	if err := s.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCompletionNotFound
		}
		return fmt.Errorf("find completion: %w", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		// (habit_id, day) 上有唯一索引，软删除残留的行会挡住同一天的重新打卡，必须物理删除
		if err := tx.Unscoped().Delete(&record).Error; err != nil {
			return fmt.Errorf("delete completion: %w", err)
		}
		if _, err := s.entries.RecomputeDay(tx, record.Day); err != nil {
			return err
		}
		return nil
	})
}

// ListDay 返回某天的全部打卡记录，附带习惯信息
func (s *CheckinService) ListDay(day time.Time) ([]db.HabitCompletion, error) {
	var records []db.HabitCompletion
	if err := s.db.Preload("Habit").
		Where("day = ?", score.Day(day)).
		Order("habit_id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list day completions: %w", err)
	}
	return records, nil
}

// ListRange 返回指定区间内的打卡记录
func (s *CheckinService) ListRange(filter CheckinFilter) ([]db.HabitCompletion, error) {
	start := score.Day(filter.Start)
	end := score.Day(filter.End)
	if end.Before(start) {
		return nil, fmt.Errorf("invalid range: end before start")
	}

	query := s.db.Where("day BETWEEN ? AND ?", start, end)
	if filter.HabitID != 0 {
		query = query.Where("habit_id = ?", filter.HabitID)
	}

	var records []db.HabitCompletion
	if err := query.Order("day ASC, habit_id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return records, nil
}

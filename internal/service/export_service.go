package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/lifegrid/internal/db"
	"github.com/lifegrid/internal/score"
	"gorm.io/gorm"
)

// ExportService 负责导出完整历史：习惯目录、逐日评分与原始打卡记录
// 导出的评分直接来自缓存，但附带原始记录，外部可以用同样的规则重新推导
type ExportService struct {
	db *gorm.DB
}

// ExportHabit 描述导出的习惯条目
type ExportHabit struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon,omitempty"`
	Color     string `json:"color,omitempty"`
	SortOrder int    `json:"sort_order"`
	Active    bool   `json:"active"`
	System    bool   `json:"system"`
}

// ExportCompletion 描述单条打卡记录
type ExportCompletion struct {
	HabitID uint   `json:"habit_id"`
	Level   int    `json:"level"`
	Note    string `json:"note,omitempty"`
}

// ExportDay 描述单日数据：评分档位与当日全部打卡
type ExportDay struct {
	Date             string             `json:"date"`
	Score            int                `json:"score"`
	CheckedIn        bool               `json:"checked_in"`
	ActiveHabitCount int                `json:"active_habit_count"`
	Completions      []ExportCompletion `json:"completions"`
}

// ExportPayload 为完整的导出文档
type ExportPayload struct {
	GeneratedAt string        `json:"generated_at"`
	Habits      []ExportHabit `json:"habits"`
	Days        []ExportDay   `json:"days"`
}

// NewExportService 构造 ExportService
func NewExportService(gdb *gorm.DB) *ExportService {
	return &ExportService{db: gdb}
}

// ExportAll 组装完整历史，天序升序
func (s *ExportService) ExportAll(now time.Time) (*ExportPayload, error) {
	var habits []db.Habit
	if err := s.db.Order("sort_order ASC, created_at ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("export habits: %w", err)
	}

	var entries []db.DayEntry
	if err := s.db.Order("day ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("export day entries: %w", err)
	}

	var completions []db.HabitCompletion
	if err := s.db.Order("day ASC, habit_id ASC").Find(&completions).Error; err != nil {
		return nil, fmt.Errorf("export completions: %w", err)
	}

	byDay := make(map[string][]ExportCompletion, len(entries))
	for _, completion := range completions {
		key := score.Day(completion.Day).Format("2006-01-02")
		byDay[key] = append(byDay[key], ExportCompletion{
			HabitID: completion.HabitID,
			Level:   completion.Level,
			Note:    completion.Note,
		})
	}

	payload := &ExportPayload{
		GeneratedAt: now.Format(time.RFC3339),
		Habits:      make([]ExportHabit, 0, len(habits)),
		Days:        make([]ExportDay, 0, len(entries)),
	}

	for _, habit := range habits {
		payload.Habits = append(payload.Habits, ExportHabit{
			ID:        habit.ID,
			Name:      habit.Name,
			Icon:      habit.Icon,
			Color:     habit.Color,
			SortOrder: habit.SortOrder,
			Active:    habit.Active,
			System:    habit.System,
		})
	}

	for _, entry := range entries {
		key := score.Day(entry.Day).Format("2006-01-02")
		payload.Days = append(payload.Days, ExportDay{
			Date:             key,
			Score:            entry.Score,
			CheckedIn:        entry.CheckedIn,
			ActiveHabitCount: entry.ActiveHabitCount,
			Completions:      byDay[key],
		})
	}

	return payload, nil
}

// WriteCSV 以每条打卡一行的扁平格式输出，便于表格工具处理
func (s *ExportService) WriteCSV(w io.Writer, now time.Time) error {
	payload, err := s.ExportAll(now)
	if err != nil {
		return err
	}

	names := make(map[uint]string, len(payload.Habits))
	for _, habit := range payload.Habits {
		names[habit.ID] = habit.Name
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "day_score", "habit_id", "habit_name", "level", "note"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, day := range payload.Days {
		for _, completion := range day.Completions {
			row := []string{
				day.Date,
				strconv.Itoa(day.Score),
				strconv.FormatUint(uint64(completion.HabitID), 10),
				names[completion.HabitID],
				strconv.Itoa(completion.Level),
				completion.Note,
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lifegrid/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrHabitNotFound 在指定习惯不存在时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrHabitNameRequired 在习惯名称为空时返回
	ErrHabitNameRequired = errors.New("habit name is required")
	// ErrSystemHabit 在尝试删除内置习惯时返回
	ErrSystemHabit = errors.New("system habit cannot be deleted")
)

// HabitService 负责习惯目录的增删改查
// 主要用于后台管理逻辑，保持与 handler 解耦
// Active 控制习惯是否参与当日评分，System 习惯只能归档不能删除

type HabitService struct {
	db *gorm.DB
}

// HabitFilter 描述列表过滤条件
type HabitFilter struct {
	Status string // active / archived / 空表示全部
	Search string
}

// HabitInput 定义创建/更新习惯时可配置字段
type HabitInput struct {
	Name        string
	Description string
	Icon        string
	Color       string
	SortOrder   int
}

// NewHabitService 构造 HabitService
func NewHabitService(gdb *gorm.DB) *HabitService {
	return &HabitService{db: gdb}
}

// List 返回习惯集合，支持基本筛选，按 SortOrder 升序
func (s *HabitService) List(filter HabitFilter) ([]db.Habit, error) {
	var habits []db.Habit

	query := s.db.Model(&db.Habit{})

	switch strings.ToLower(strings.TrimSpace(filter.Status)) {
	case "active":
		query = query.Where("active = ?", true)
	case "archived":
		query = query.Where("active = ?", false)
	}
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", strings.TrimSpace(filter.Search))
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	if err := query.Order("sort_order ASC, created_at ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	return habits, nil
}

// ListActive 返回当前参与评分的习惯
func (s *HabitService) ListActive() ([]db.Habit, error) {
	return s.List(HabitFilter{Status: "active"})
}

// ActiveCount 返回当前活跃习惯数，是当日评分的分母
func (s *HabitService) ActiveCount() (int, error) {
	var count int64
	if err := s.db.Model(&db.Habit{}).Where("active = ?", true).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count active habits: %w", err)
	}
	return int(count), nil
}

// Get 根据 ID 获取习惯
func (s *HabitService) Get(id uint) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

// Create 新建自定义习惯
func (s *HabitService) Create(input HabitInput) (*db.Habit, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrHabitNameRequired
	}

	habit := db.Habit{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Icon:        strings.TrimSpace(input.Icon),
		Color:       strings.TrimSpace(input.Color),
		SortOrder:   input.SortOrder,
		Active:      true,
	}

	if err := s.db.Create(&habit).Error; err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return &habit, nil
}

// Update 更新习惯元数据，身份（ID、System 标记）不可变
func (s *HabitService) Update(id uint, input HabitInput) (*db.Habit, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrHabitNameRequired
	}

	var existing db.Habit
	if err := s.db.First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("find habit: %w", err)
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.Description = strings.TrimSpace(input.Description)
	existing.Icon = strings.TrimSpace(input.Icon)
	existing.Color = strings.TrimSpace(input.Color)
	existing.SortOrder = input.SortOrder

	if err := s.db.Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return &existing, nil
}

// SetActive 归档或恢复习惯，影响后续日期的评分分母
func (s *HabitService) SetActive(id uint, active bool) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("find habit: %w", err)
	}

	habit.Active = active
	if err := s.db.Save(&habit).Error; err != nil {
		return nil, fmt.Errorf("set habit active: %w", err)
	}
	return &habit, nil
}

// Reorder 按给定 ID 顺序重写 SortOrder
func (s *HabitService) Reorder(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for position, id := range ids {
			result := tx.Model(&db.Habit{}).Where("id = ?", id).Update("sort_order", position)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrHabitNotFound
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrHabitNotFound) {
			return err
		}
		return fmt.Errorf("reorder habits: %w", err)
	}

	return nil
}

// Delete 删除自定义习惯，内置习惯只能归档
func (s *HabitService) Delete(id uint) error {
	var habit db.Habit
	if err := s.db.First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrHabitNotFound
		}
		return fmt.Errorf("find habit: %w", err)
	}

	if habit.System {
		return ErrSystemHabit
	}

	if err := s.db.Delete(&habit).Error; err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return nil
}

package db

import (
	"time"

	"gorm.io/gorm"
)

// Habit 定义了习惯模型
// Icon/Color 供网格与客户端渲染使用，SortOrder 控制列表顺序
// Active 控制习惯是否参与当日评分，System 标记内置习惯（只能归档不能删除）
type Habit struct {
	gorm.Model
	Name        string `gorm:"not null"`
	Description string
	Icon        string
	Color       string
	SortOrder   int  `gorm:"index"`
	Active      bool `gorm:"default:true"`
	System      bool
}

// HabitCompletion 记录某个习惯在某一天的完成情况
// HabitID + Day 采用唯一索引保证幂等，重复写入走 ON CONFLICT 更新
// Level 取值 0=跳过 1=部分 2=完成，Note 为可选的 Markdown 备注
type HabitCompletion struct {
	gorm.Model
	HabitID uint      `gorm:"index;index:idx_completion_unique,unique"`
	Habit   Habit     `gorm:"constraint:OnDelete:CASCADE"`
	Day     time.Time `gorm:"index:idx_completion_unique,unique"`
	Level   int
	Note    string
	Source  string
}

// TableName 重写确保唯一索引作用到 habit_id + day
func (HabitCompletion) TableName() string {
	return "habit_completions"
}

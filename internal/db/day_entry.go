package db

import (
	"time"

	"gorm.io/gorm"
)

// DayEntry 缓存单日的派生评分数据
// 始终可以从 habit_completions 重新推导，不作为第二数据源
// ActiveHabitCount 在写入时快照当日活跃习惯数，后续增删习惯不影响历史评分
type DayEntry struct {
	gorm.Model
	Day              time.Time `gorm:"uniqueIndex"`
	Score            int
	Credit           float64
	CheckedIn        bool
	CompletionCount  int
	ActiveHabitCount int
}

// TableName 自定义表名以保持命名一致
func (DayEntry) TableName() string {
	return "day_entries"
}

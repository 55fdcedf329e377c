package service

import (
	"errors"
	"testing"
	"time"

	"github.com/lifegrid/internal/db"
)

func seedHabit(t *testing.T, name string, active bool) db.Habit {
	t.Helper()
	habit := db.Habit{Name: name, Active: true}
	if err := db.DB.Create(&habit).Error; err != nil {
		t.Fatalf("failed to seed habit %s: %v", name, err)
	}
	// Active 带列默认值，零值写入会被默认值覆盖，归档状态单独落库
	if !active {
		if err := db.DB.Model(&habit).Update("active", false).Error; err != nil {
			t.Fatalf("failed to archive habit %s: %v", name, err)
		}
		habit.Active = false
	}
	return habit
}

func TestCheckinUpsertRecomputesDayEntry(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	entries := NewEntryService(db.DB)
	checkins := NewCheckinService(db.DB, entries)

	running := seedHabit(t, "晨跑", true)
	reading := seedHabit(t, "阅读", true)

	day := time.Date(2025, 3, 10, 15, 30, 0, 0, time.Local)

	record, err := checkins.Upsert(CheckinInput{HabitID: running.ID, Day: day, Level: 2, Source: "manual"})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if record.ID == 0 {
		t.Fatal("expected completion to have ID")
	}
	if h := record.Day.Hour(); h != 0 {
		t.Fatalf("expected day normalized to midnight, got hour %d", h)
	}

	// 两个活跃习惯中完成一个：1.0/2 = 0.5，落在档位 2
	entry, err := entries.Get(day)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if entry == nil {
		t.Fatal("expected day entry after checkin")
	}
	if entry.Score != 2 {
		t.Fatalf("expected score 2, got %d", entry.Score)
	}
	if !entry.CheckedIn {
		t.Fatal("expected day to be checked in")
	}
	if entry.ActiveHabitCount != 2 {
		t.Fatalf("expected active habit count 2, got %d", entry.ActiveHabitCount)
	}

	// 第二个习惯也完成后满分
	if _, err := checkins.Upsert(CheckinInput{HabitID: reading.ID, Day: day, Level: 2}); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	entry, _ = entries.Get(day)
	if entry.Score != 4 {
		t.Fatalf("expected score 4, got %d", entry.Score)
	}
	if entry.CompletionCount != 2 {
		t.Fatalf("expected completion count 2, got %d", entry.CompletionCount)
	}
}

func TestCheckinUpsertIsIdempotent(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	entries := NewEntryService(db.DB)
	checkins := NewCheckinService(db.DB, entries)

	habit := seedHabit(t, "冥想", true)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)

	first, err := checkins.Upsert(CheckinInput{HabitID: habit.ID, Day: day, Level: 2, Note: "早上"})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	// 同一天重复提交为后写覆盖，不产生第二条记录
	second, err := checkins.Upsert(CheckinInput{HabitID: habit.ID, Day: day, Level: 1, Note: "改为部分完成"})
	if err != nil {
		t.Fatalf("second Upsert returned error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same completion record, got %d and %d", first.ID, second.ID)
	}
	if second.Level != 1 || second.Note != "改为部分完成" {
		t.Fatalf("expected overwritten record, got %+v", second)
	}

	var count int64
	db.DB.Model(&db.HabitCompletion{}).Where("habit_id = ? AND day = ?", habit.ID, second.Day).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 completion row, got %d", count)
	}

	// 档位降级后评分同步变化：0.5/1 = 0.5 → 档位 2
	entry, _ := entries.Get(day)
	if entry.Score != 2 {
		t.Fatalf("expected score 2 after downgrade, got %d", entry.Score)
	}
}

func TestCheckinUpsertValidation(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	entries := NewEntryService(db.DB)
	checkins := NewCheckinService(db.DB, entries)

	archived := seedHabit(t, "旧习惯", false)
	day := time.Now()

	if _, err := checkins.Upsert(CheckinInput{HabitID: archived.ID, Day: day, Level: 2}); !errors.Is(err, ErrHabitArchived) {
		t.Fatalf("expected ErrHabitArchived, got %v", err)
	}

	active := seedHabit(t, "新习惯", true)
	if _, err := checkins.Upsert(CheckinInput{HabitID: active.ID, Day: day, Level: 3}); !errors.Is(err, ErrInvalidLevel) {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
	if _, err := checkins.Upsert(CheckinInput{HabitID: active.ID, Day: day, Level: -1}); !errors.Is(err, ErrInvalidLevel) {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
	if _, err := checkins.Upsert(CheckinInput{HabitID: 9999, Day: day, Level: 2}); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound, got %v", err)
	}
}

func TestCheckinSkippedLevelStillCountsAsCheckedIn(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	entries := NewEntryService(db.DB)
	checkins := NewCheckinService(db.DB, entries)

	habit := seedHabit(t, "晨跑", true)
	day := time.Date(2025, 3, 11, 0, 0, 0, 0, time.Local)

	// 明确记录“跳过”依然算打卡，只是不贡献积分
	if _, err := checkins.Upsert(CheckinInput{HabitID: habit.ID, Day: day, Level: 0}); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	entry, err := entries.Get(day)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if entry == nil {
		t.Fatal("expected day entry for skipped checkin")
	}
	if !entry.CheckedIn {
		t.Fatal("expected checked in to be true")
	}
	if entry.Score != 0 {
		t.Fatalf("expected score 0, got %d", entry.Score)
	}
}

func TestCheckinDeleteRemovesEmptyDayEntry(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	entries := NewEntryService(db.DB)
	checkins := NewCheckinService(db.DB, entries)

	habit := seedHabit(t, "晨跑", true)
	day := time.Date(2025, 3, 12, 0, 0, 0, 0, time.Local)

	record, err := checkins.Upsert(CheckinInput{HabitID: habit.ID, Day: day, Level: 2})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	if err := checkins.Delete(record.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	// 最后一条打卡删除后当天缓存行一并移除，缺失即未打卡
	entry, err := entries.Get(day)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected day entry to be removed, got %+v", entry)
	}

	if err := checkins.Delete(record.ID); !errors.Is(err, ErrCompletionNotFound) {
		t.Fatalf("expected ErrCompletionNotFound, got %v", err)
	}
}

func TestCheckinListRange(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	entries := NewEntryService(db.DB)
	checkins := NewCheckinService(db.DB, entries)

	running := seedHabit(t, "晨跑", true)
	reading := seedHabit(t, "阅读", true)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		if _, err := checkins.Upsert(CheckinInput{HabitID: running.ID, Day: base.AddDate(0, 0, i), Level: 2}); err != nil {
			t.Fatalf("Upsert returned error: %v", err)
		}
	}
	if _, err := checkins.Upsert(CheckinInput{HabitID: reading.ID, Day: base, Level: 1}); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	all, err := checkins.ListRange(CheckinFilter{Start: base, End: base.AddDate(0, 0, 2)})
	if err != nil {
		t.Fatalf("ListRange returned error: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 completions, got %d", len(all))
	}

	onlyRunning, err := checkins.ListRange(CheckinFilter{HabitID: running.ID, Start: base, End: base.AddDate(0, 0, 2)})
	if err != nil {
		t.Fatalf("ListRange returned error: %v", err)
	}
	if len(onlyRunning) != 3 {
		t.Fatalf("expected 3 completions for habit, got %d", len(onlyRunning))
	}

	if _, err := checkins.ListRange(CheckinFilter{Start: base.AddDate(0, 0, 2), End: base}); err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestCheckinDeleteAllowsRecheckinSameDay(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	entries := NewEntryService(db.DB)
	checkins := NewCheckinService(db.DB, entries)

	habit := seedHabit(t, "晨跑", true)
	day := time.Date(2025, 3, 13, 0, 0, 0, 0, time.Local)

	record, err := checkins.Upsert(CheckinInput{HabitID: habit.ID, Day: day, Level: 2})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if err := checkins.Delete(record.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	// 删除后同一习惯同一天可以重新打卡，唯一索引不应被已删除的行占用
	again, err := checkins.Upsert(CheckinInput{HabitID: habit.ID, Day: day, Level: 1})
	if err != nil {
		t.Fatalf("Upsert after delete returned error: %v", err)
	}
	if again.Level != 1 {
		t.Fatalf("expected level 1 on re-checkin, got %d", again.Level)
	}

	entry, err := entries.Get(day)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if entry == nil || !entry.CheckedIn {
		t.Fatalf("expected checked-in day entry after re-checkin, got %+v", entry)
	}
	if entry.Score != 2 {
		t.Fatalf("expected score 2 after re-checkin, got %d", entry.Score)
	}
}

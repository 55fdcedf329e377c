package service

import (
	"testing"
	"time"

	"github.com/lifegrid/internal/db"
)

func TestEntrySnapshotKeepsHistoricalDenominator(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	entries := NewEntryService(db.DB)
	checkins := NewCheckinService(db.DB, entries)

	running := seedHabit(t, "晨跑", true)
	reading := seedHabit(t, "阅读", true)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	if _, err := checkins.Upsert(CheckinInput{HabitID: running.ID, Day: day, Level: 2}); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if _, err := checkins.Upsert(CheckinInput{HabitID: reading.ID, Day: day, Level: 2}); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	entry, _ := entries.Get(day)
	if entry.Score != 4 || entry.ActiveHabitCount != 2 {
		t.Fatalf("unexpected entry before new habit: %+v", entry)
	}

	// 后续新增习惯不会改写历史分母，历史评分保持不变
	seedHabit(t, "冥想", true)

	entry, _ = entries.Get(day)
	if entry.Score != 4 || entry.ActiveHabitCount != 2 {
		t.Fatalf("expected historical entry untouched, got %+v", entry)
	}

	// 新的一天按最新习惯数快照
	next := day.AddDate(0, 0, 1)
	if _, err := checkins.Upsert(CheckinInput{HabitID: running.ID, Day: next, Level: 2}); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	entry, _ = entries.Get(next)
	if entry.ActiveHabitCount != 3 {
		t.Fatalf("expected active habit count 3, got %d", entry.ActiveHabitCount)
	}
	// 1.0/3 落在 (0.25, 0.5] 区间，档位 2
	if entry.Score != 2 {
		t.Fatalf("expected score 2, got %d", entry.Score)
	}
}

func TestEntryRebuildRangeRefreshesSnapshots(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	entries := NewEntryService(db.DB)
	checkins := NewCheckinService(db.DB, entries)

	running := seedHabit(t, "晨跑", true)
	reading := seedHabit(t, "阅读", true)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	if _, err := checkins.Upsert(CheckinInput{HabitID: running.ID, Day: day, Level: 2}); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if _, err := checkins.Upsert(CheckinInput{HabitID: reading.ID, Day: day, Level: 2}); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	seedHabit(t, "冥想", true)

	rebuilt, err := entries.RebuildRange(day, day.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("RebuildRange returned error: %v", err)
	}
	if rebuilt != 3 {
		t.Fatalf("expected 3 days rebuilt, got %d", rebuilt)
	}

	// 重建后历史快照被当前活跃习惯数刷新：2.0/3 落在 (0.5, 0.75]，档位 3
	entry, _ := entries.Get(day)
	if entry.ActiveHabitCount != 3 {
		t.Fatalf("expected refreshed denominator 3, got %d", entry.ActiveHabitCount)
	}
	if entry.Score != 3 {
		t.Fatalf("expected score 3, got %d", entry.Score)
	}

	// 没有打卡的日期在重建后依然没有缓存行
	empty, _ := entries.Get(day.AddDate(0, 0, 1))
	if empty != nil {
		t.Fatalf("expected no entry for empty day, got %+v", empty)
	}
}

func TestEntryRecomputeIgnoresArchivedHabitCompletions(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	entries := NewEntryService(db.DB)
	checkins := NewCheckinService(db.DB, entries)
	habits := NewHabitService(db.DB)

	running := seedHabit(t, "晨跑", true)
	reading := seedHabit(t, "阅读", true)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	if _, err := checkins.Upsert(CheckinInput{HabitID: running.ID, Day: day, Level: 2}); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if _, err := checkins.Upsert(CheckinInput{HabitID: reading.ID, Day: day, Level: 2}); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	// 归档习惯后重建：它的历史完成不再计入积分
	if _, err := habits.SetActive(reading.ID, false); err != nil {
		t.Fatalf("SetActive returned error: %v", err)
	}
	if _, err := entries.RebuildRange(day, day); err != nil {
		t.Fatalf("RebuildRange returned error: %v", err)
	}

	entry, _ := entries.Get(day)
	if entry == nil {
		t.Fatal("expected day entry to survive rebuild")
	}
	if entry.ActiveHabitCount != 1 {
		t.Fatalf("expected denominator 1, got %d", entry.ActiveHabitCount)
	}
	if entry.Score != 4 {
		t.Fatalf("expected score 4, got %d", entry.Score)
	}
	// 打卡痕迹保留，原始记录数不变
	if entry.CompletionCount != 2 {
		t.Fatalf("expected completion count 2, got %d", entry.CompletionCount)
	}
}

func TestEntryGetRangeSkipsMissingDays(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	entries := NewEntryService(db.DB)
	checkins := NewCheckinService(db.DB, entries)

	habit := seedHabit(t, "晨跑", true)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)

	// 第 1、3 天打卡，第 2 天留空
	for _, offset := range []int{0, 2} {
		if _, err := checkins.Upsert(CheckinInput{HabitID: habit.ID, Day: base.AddDate(0, 0, offset), Level: 2}); err != nil {
			t.Fatalf("Upsert returned error: %v", err)
		}
	}

	got, err := entries.GetRange(base, base.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("GetRange returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if !got[0].Day.Before(got[1].Day) {
		t.Fatal("expected entries ordered by day ascending")
	}
}

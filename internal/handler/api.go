package handler

import (
	"github.com/lifegrid/internal/service"
	"gorm.io/gorm"
)

// API 汇总各 HTTP 处理函数共享的服务依赖
type API struct {
	db        *gorm.DB
	habits    *service.HabitService
	checkins  *service.CheckinService
	entries   *service.EntryService
	stats     *service.StatsService
	exports   *service.ExportService
	settings  *service.SettingService
	reminders *service.ReminderService
	uploadDir string
	uploadURL string
}

// NewAPI 构造处理器集合，打卡与评分共享同一个 EntryService 实例
func NewAPI(db *gorm.DB, uploadDir, uploadURL string) *API {
	entryService := service.NewEntryService(db)
	settingService := service.NewSettingService(db)

	return &API{
		db:        db,
		habits:    service.NewHabitService(db),
		checkins:  service.NewCheckinService(db, entryService),
		entries:   entryService,
		stats:     service.NewStatsService(db, entryService),
		exports:   service.NewExportService(db),
		settings:  settingService,
		reminders: service.NewReminderService(db, settingService),
		uploadDir: uploadDir,
		uploadURL: uploadURL,
	}
}

// Reminders 暴露提醒服务供调度器复用同一实例。
func (a *API) Reminders() *service.ReminderService {
	return a.reminders
}

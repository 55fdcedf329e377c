package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/lifegrid/internal/config"
	"github.com/lifegrid/internal/db"
	"github.com/lifegrid/internal/handler"
	"github.com/lifegrid/internal/router"
	"github.com/lifegrid/internal/service"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// 确保管理员账号存在
	if err := db.EnsureUser(cfg.AdminUserName, cfg.AdminPassword); err != nil {
		log.Fatalf("failed to ensure admin user: %v", err)
	}

	api := handler.NewAPI(db.DB, cfg.UploadDir, cfg.UploadURLPath)

	// 首次启动时补齐小组件令牌和推送密钥
	settings := service.NewSettingService(db.DB)
	if _, err := settings.EnsureWidgetToken(); err != nil {
		log.Fatalf("failed to ensure widget token: %v", err)
	}
	if _, _, err := settings.EnsureVAPIDKeys(); err != nil {
		log.Fatalf("failed to ensure vapid keys: %v", err)
	}

	// 启动打卡提醒调度
	scheduler := service.NewReminderScheduler(api.Reminders())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api, cfg.SessionSecret, cfg.UploadDir, cfg.UploadURLPath)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}

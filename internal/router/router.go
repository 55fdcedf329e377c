package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/lifegrid/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret, uploadDir, uploadURLPath string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	// 不显式设置 Options 时底层默认 Secure 加 SameSite=None，
	// 纯 HTTP 部署下浏览器会丢弃会话 Cookie，导致无法登录
	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("lifegrid_session", store))

	// 上传的图标走静态文件服务
	if uploadDir != "" && uploadURLPath != "" {
		r.Static(uploadURLPath, uploadDir)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// 小组件免会话接口，凭令牌鉴权
	r.GET("/api/widget", api.GetWidget)

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.POST("/login", api.Login)
		admin.GET("/logout", api.Logout)

		// 需要认证的后台路由
		auth := admin.Group("")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("/dashboard", api.Dashboard)

			// API路由
			apiGroup := auth.Group("/api")
			{
				apiGroup.GET("/habits", api.ListHabits)
				apiGroup.POST("/habits", api.CreateHabit)
				apiGroup.PUT("/habits/reorder", api.ReorderHabits)
				apiGroup.GET("/habits/:id", api.GetHabit)
				apiGroup.PUT("/habits/:id", api.UpdateHabit)
				apiGroup.PUT("/habits/:id/active", api.SetHabitActive)
				apiGroup.DELETE("/habits/:id", api.DeleteHabit)

				apiGroup.POST("/checkins", api.UpsertCheckin)
				apiGroup.DELETE("/checkins/:id", api.DeleteCheckin)

				apiGroup.GET("/days/:date", api.GetDay)
				apiGroup.POST("/days/rebuild", api.RebuildEntries)

				apiGroup.GET("/grid", api.GetGrid)
				apiGroup.GET("/stats", api.GetStats)
				apiGroup.GET("/export", api.Export)

				apiGroup.GET("/settings", api.GetSettings)
				apiGroup.PUT("/settings", api.UpdateSettings)
				apiGroup.POST("/settings/widget-token", api.RotateWidgetToken)

				apiGroup.GET("/push/vapid-key", api.GetVAPIDKey)
				apiGroup.GET("/push/subscriptions", api.ListPushSubscriptions)
				apiGroup.POST("/push/subscribe", api.SubscribePush)
				apiGroup.DELETE("/push/subscriptions", api.UnsubscribePush)

				apiGroup.POST("/uploads/icon", api.UploadHabitIcon)
			}
		}
	}

	return r
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lifegrid/internal/service"
)

// GetSettings 返回系统设置，VAPID 私钥不对外暴露
func (a *API) GetSettings(c *gin.Context) {
	settings, err := a.settings.GetSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "读取设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": serializeSettings(settings)})
}

// UpdateSettings 保存系统设置
func (a *API) UpdateSettings(c *gin.Context) {
	var payload struct {
		SiteName        string `json:"site_name"`
		ReminderEnabled bool   `json:"reminder_enabled"`
		ReminderHour    int    `json:"reminder_hour"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	settings, err := a.settings.UpdateSettings(service.SettingsInput{
		SiteName:        payload.SiteName,
		ReminderEnabled: payload.ReminderEnabled,
		ReminderHour:    payload.ReminderHour,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": serializeSettings(settings)})
}

// RotateWidgetToken 生成新的小组件令牌，旧令牌立即失效
func (a *API) RotateWidgetToken(c *gin.Context) {
	token, err := a.settings.RotateWidgetToken()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "生成令牌失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"widget_token": token})
}

func serializeSettings(settings service.Settings) gin.H {
	return gin.H{
		"site_name":        settings.SiteName,
		"reminder_enabled": settings.ReminderEnabled,
		"reminder_hour":    settings.ReminderHour,
		"widget_token":     settings.WidgetToken,
		"vapid_public_key": settings.VAPIDPublicKey,
	}
}

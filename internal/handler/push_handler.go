package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lifegrid/internal/db"
	"github.com/lifegrid/internal/service"
)

// SubscribePush 注册浏览器推送订阅，用于接收打卡提醒
func (a *API) SubscribePush(c *gin.Context) {
	var payload struct {
		Endpoint   string `json:"endpoint"`
		P256dh     string `json:"p256dh"`
		Auth       string `json:"auth"`
		DeviceName string `json:"device_name"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	sub, err := a.reminders.Subscribe(service.SubscriptionInput{
		Endpoint:   payload.Endpoint,
		P256dh:     payload.P256dh,
		Auth:       payload.Auth,
		DeviceName: payload.DeviceName,
	})
	if err != nil {
		if errors.Is(err, service.ErrSubscriptionInvalid) {
			respondError(c, http.StatusBadRequest, "订阅信息不完整")
			return
		}
		respondError(c, http.StatusInternalServerError, "保存订阅失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": subscriptionToPayload(*sub)})
}

// UnsubscribePush 按 Endpoint 删除订阅
func (a *API) UnsubscribePush(c *gin.Context) {
	var payload struct {
		Endpoint string `json:"endpoint"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	if err := a.reminders.Unsubscribe(payload.Endpoint); err != nil {
		respondError(c, http.StatusInternalServerError, "删除订阅失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ListPushSubscriptions 返回全部订阅
func (a *API) ListPushSubscriptions(c *gin.Context) {
	subs, err := a.reminders.ListSubscriptions()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取订阅列表失败")
		return
	}

	items := make([]gin.H, 0, len(subs))
	for _, sub := range subs {
		items = append(items, subscriptionToPayload(sub))
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": items})
}

// GetVAPIDKey 返回客户端订阅所需的 VAPID 公钥，缺失时顺手生成
func (a *API) GetVAPIDKey(c *gin.Context) {
	publicKey, _, err := a.settings.EnsureVAPIDKeys()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "读取推送密钥失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"public_key": publicKey})
}

func subscriptionToPayload(sub db.PushSubscription) gin.H {
	return gin.H{
		"id":          sub.ID,
		"endpoint":    sub.Endpoint,
		"device_name": sub.DeviceName,
	}
}

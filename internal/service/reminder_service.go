package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/lifegrid/internal/db"
	"github.com/lifegrid/internal/score"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrSubscriptionExpired 表示推送订阅已失效（410 Gone）
	ErrSubscriptionExpired = errors.New("push subscription expired")
	// ErrSubscriptionInvalid 表示订阅缺少必要字段
	ErrSubscriptionInvalid = errors.New("endpoint, p256dh and auth are required")
)

// ReminderPayload 为推送到客户端的 JSON 内容
type ReminderPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// SubscriptionInput 定义注册推送订阅的输入
type SubscriptionInput struct {
	Endpoint   string
	P256dh     string
	Auth       string
	DeviceName string
}

// pushSender 抽象实际的 Web Push 发送，测试中可替换
type pushSender interface {
	Send(sub *db.PushSubscription, vapidPublic, vapidPrivate string, payload ReminderPayload) error
}

// webpushSender 通过 webpush-go 发送真实通知
type webpushSender struct{}

func (webpushSender) Send(sub *db.PushSubscription, vapidPublic, vapidPrivate string, payload ReminderPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  vapidPublic,
		VAPIDPrivateKey: vapidPrivate,
		Subscriber:      "mailto:noreply@lifegrid.app",
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return ErrSubscriptionExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// ReminderService 负责打卡提醒：管理推送订阅并在当天未打卡时推送
type ReminderService struct {
	db       *gorm.DB
	settings *SettingService
	sender   pushSender
}

// NewReminderService 构造 ReminderService
func NewReminderService(gdb *gorm.DB, settings *SettingService) *ReminderService {
	return &ReminderService{db: gdb, settings: settings, sender: webpushSender{}}
}

// SetSender 替换推送实现，主要面向测试场景
func (s *ReminderService) SetSender(sender pushSender) {
	if sender == nil {
		s.sender = webpushSender{}
		return
	}
	s.sender = sender
}

// Subscribe 注册或刷新一个推送订阅，Endpoint 冲突时覆盖密钥与设备名
func (s *ReminderService) Subscribe(input SubscriptionInput) (*db.PushSubscription, error) {
	endpoint := strings.TrimSpace(input.Endpoint)
	p256dh := strings.TrimSpace(input.P256dh)
	auth := strings.TrimSpace(input.Auth)
	if endpoint == "" || p256dh == "" || auth == "" {
		return nil, ErrSubscriptionInvalid
	}

	sub := db.PushSubscription{
		Endpoint:   endpoint,
		P256dhKey:  p256dh,
		AuthKey:    auth,
		DeviceName: strings.TrimSpace(input.DeviceName),
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh_key", "auth_key", "device_name", "updated_at"}),
	}).Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}

	if err := s.db.Where("endpoint = ?", endpoint).First(&sub).Error; err != nil {
		return nil, fmt.Errorf("reload subscription: %w", err)
	}

	return &sub, nil
}

// Unsubscribe 按 Endpoint 删除订阅
func (s *ReminderService) Unsubscribe(endpoint string) error {
	if err := s.db.Unscoped().Where("endpoint = ?", strings.TrimSpace(endpoint)).
		Delete(&db.PushSubscription{}).Error; err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// ListSubscriptions 返回全部订阅
func (s *ReminderService) ListSubscriptions() ([]db.PushSubscription, error) {
	var subs []db.PushSubscription
	if err := s.db.Order("created_at ASC").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

// SendDue 在到达提醒时刻且当天尚未打卡时向所有订阅推送提醒
// 每天最多发送一次；失效订阅（410）随手清理。返回成功推送的订阅数
func (s *ReminderService) SendDue(now time.Time) (int, error) {
	settings, err := s.settings.GetSettings()
	if err != nil {
		return 0, err
	}
	if !settings.ReminderEnabled {
		return 0, nil
	}
	if now.Hour() < settings.ReminderHour {
		return 0, nil
	}

	dayKey := score.Day(now).Format("2006-01-02")
	lastSent, err := s.lastSentDay()
	if err != nil {
		return 0, err
	}
	if lastSent == dayKey {
		return 0, nil
	}

	// 当天已打卡就不打扰
	var checkedIn int64
	if err := s.db.Model(&db.DayEntry{}).
		Where("day = ? AND checked_in = ?", score.Day(now), true).
		Count(&checkedIn).Error; err != nil {
		return 0, fmt.Errorf("check today entry: %w", err)
	}
	if checkedIn > 0 {
		return 0, s.recordSent(dayKey)
	}

	subs, err := s.ListSubscriptions()
	if err != nil {
		return 0, err
	}
	if len(subs) == 0 {
		return 0, s.recordSent(dayKey)
	}

	payload := ReminderPayload{
		Title: settings.SiteName,
		Body:  "今天还没有打卡，花一分钟记录一下吧",
		URL:   "/admin/dashboard",
		Tag:   "checkin-reminder-" + dayKey,
	}

	sent := 0
	for i := range subs {
		sub := subs[i]
		if err := s.sender.Send(&sub, settings.VAPIDPublicKey, settings.VAPIDPrivateKey, payload); err != nil {
			if errors.Is(err, ErrSubscriptionExpired) {
				_ = s.Unsubscribe(sub.Endpoint)
				continue
			}
			return sent, err
		}
		sent++
	}

	return sent, s.recordSent(dayKey)
}

func (s *ReminderService) lastSentDay() (string, error) {
	var record db.SystemSetting
	if err := s.db.Where("key = ?", db.SettingKeyReminderLastSent).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("load last sent: %w", err)
	}
	return record.Value, nil
}

func (s *ReminderService) recordSent(dayKey string) error {
	return upsertSetting(s.db, db.SettingKeyReminderLastSent, dayKey)
}

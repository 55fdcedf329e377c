package db

import "gorm.io/gorm"

// SystemSetting 存储可配置的系统级键值对。
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeySiteName 表示站点名称。
	SettingKeySiteName = "site_name"
	// SettingKeyReminderEnabled 控制是否发送打卡提醒。
	SettingKeyReminderEnabled = "reminder_enabled"
	// SettingKeyReminderHour 表示每日提醒的小时（0-23）。
	SettingKeyReminderHour = "reminder_hour"
	// SettingKeyReminderLastSent 记录最近一次发送提醒的日期，避免重复发送。
	SettingKeyReminderLastSent = "reminder_last_sent"
	// SettingKeyWidgetToken 用于小组件免登录拉取数据。
	SettingKeyWidgetToken = "widget_token"
	// SettingKeyVAPIDPublicKey 为 Web Push 的 VAPID 公钥。
	SettingKeyVAPIDPublicKey = "vapid_public_key"
	// SettingKeyVAPIDPrivateKey 为 Web Push 的 VAPID 私钥。
	SettingKeyVAPIDPrivateKey = "vapid_private_key"
)

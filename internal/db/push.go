package db

import "gorm.io/gorm"

// PushSubscription 保存浏览器推送订阅，用于发送打卡提醒
// Endpoint 唯一，订阅失效（410）时由提醒服务清理
type PushSubscription struct {
	gorm.Model
	Endpoint   string `gorm:"uniqueIndex;not null"`
	P256dhKey  string `gorm:"not null"`
	AuthKey    string `gorm:"not null"`
	DeviceName string
}

// TableName 自定义表名以保持命名一致
func (PushSubscription) TableName() string {
	return "push_subscriptions"
}

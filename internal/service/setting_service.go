package service

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lifegrid/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultSiteName     = "LifeGrid"
	defaultReminderHour = 20
)

// Settings 描述后台可配置的系统信息。
type Settings struct {
	SiteName        string
	ReminderEnabled bool
	ReminderHour    int
	WidgetToken     string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

// SettingsInput 用于更新系统设置。
type SettingsInput struct {
	SiteName        string
	ReminderEnabled bool
	ReminderHour    int
}

// SettingService 提供系统设置的读取与更新能力。
type SettingService struct {
	db *gorm.DB
}

// NewSettingService 构造 SettingService。
func NewSettingService(gdb *gorm.DB) *SettingService {
	return &SettingService{db: gdb}
}

var settingKeys = []string{
	db.SettingKeySiteName,
	db.SettingKeyReminderEnabled,
	db.SettingKeyReminderHour,
	db.SettingKeyWidgetToken,
	db.SettingKeyVAPIDPublicKey,
	db.SettingKeyVAPIDPrivateKey,
}

// GetSettings 读取系统设置，如未设置将返回默认值。
func (s *SettingService) GetSettings() (Settings, error) {
	result := Settings{SiteName: defaultSiteName, ReminderHour: defaultReminderHour}

	var records []db.SystemSetting
	if err := s.db.Where("key IN ?", settingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("load settings: %w", err)
	}

	for _, record := range records {
		switch record.Key {
		case db.SettingKeySiteName:
			if strings.TrimSpace(record.Value) != "" {
				result.SiteName = record.Value
			}
		case db.SettingKeyReminderEnabled:
			result.ReminderEnabled = record.Value == "true"
		case db.SettingKeyReminderHour:
			if hour, err := strconv.Atoi(record.Value); err == nil && hour >= 0 && hour <= 23 {
				result.ReminderHour = hour
			}
		case db.SettingKeyWidgetToken:
			result.WidgetToken = record.Value
		case db.SettingKeyVAPIDPublicKey:
			result.VAPIDPublicKey = record.Value
		case db.SettingKeyVAPIDPrivateKey:
			result.VAPIDPrivateKey = record.Value
		}
	}

	return result, nil
}

// UpdateSettings 保存系统设置，未填写站点名称时回退默认值。
func (s *SettingService) UpdateSettings(input SettingsInput) (Settings, error) {
	siteName := strings.TrimSpace(input.SiteName)
	if siteName == "" {
		siteName = defaultSiteName
	}

	hour := input.ReminderHour
	if hour < 0 || hour > 23 {
		hour = defaultReminderHour
	}

	enabled := "false"
	if input.ReminderEnabled {
		enabled = "true"
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertSetting(tx, db.SettingKeySiteName, siteName); err != nil {
			return err
		}
		if err := upsertSetting(tx, db.SettingKeyReminderEnabled, enabled); err != nil {
			return err
		}
		return upsertSetting(tx, db.SettingKeyReminderHour, strconv.Itoa(hour))
	})
	if err != nil {
		return Settings{}, fmt.Errorf("update settings: %w", err)
	}

	return s.GetSettings()
}

// RotateWidgetToken 生成并保存新的小组件令牌，旧令牌立即失效。
func (s *SettingService) RotateWidgetToken() (string, error) {
	token := uuid.New().String()
	if err := upsertSetting(s.db, db.SettingKeyWidgetToken, token); err != nil {
		return "", err
	}
	return token, nil
}

// EnsureWidgetToken 在令牌缺失时生成一个，已存在则原样返回。
func (s *SettingService) EnsureWidgetToken() (string, error) {
	settings, err := s.GetSettings()
	if err != nil {
		return "", err
	}
	if settings.WidgetToken != "" {
		return settings.WidgetToken, nil
	}
	return s.RotateWidgetToken()
}

// EnsureVAPIDKeys 在密钥缺失时生成 P-256 密钥对并持久化。
func (s *SettingService) EnsureVAPIDKeys() (publicKey, privateKey string, err error) {
	settings, err := s.GetSettings()
	if err != nil {
		return "", "", err
	}
	if settings.VAPIDPublicKey != "" && settings.VAPIDPrivateKey != "" {
		return settings.VAPIDPublicKey, settings.VAPIDPrivateKey, nil
	}

	publicKey, privateKey, err = generateVAPIDKeys()
	if err != nil {
		return "", "", err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertSetting(tx, db.SettingKeyVAPIDPublicKey, publicKey); err != nil {
			return err
		}
		return upsertSetting(tx, db.SettingKeyVAPIDPrivateKey, privateKey)
	})
	if err != nil {
		return "", "", fmt.Errorf("save vapid keys: %w", err)
	}

	return publicKey, privateKey, nil
}

// generateVAPIDKeys 生成 Web Push 使用的 ECDSA P-256 密钥对。
func generateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.Bytes())

	return publicKey, privateKey, nil
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SystemSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

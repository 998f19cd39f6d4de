// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormPlayer 玩家累计数据
type GormPlayer struct {
	gorm.Model
	UserID              string                 `gorm:"uniqueIndex;not null"`
	Name                string                 `gorm:"not null"`
	TotalBallsPurchased int                    `gorm:"default:0"`
	TotalStarsSpent     int64                  `gorm:"default:0"`
	Stats               map[string]interface{} `gorm:"type:jsonb;serializer:json"`
}

// GormPurchase 购买流水
type GormPurchase struct {
	gorm.Model
	UserID    string `gorm:"index;not null"`
	BallCount int    `gorm:"not null"`
	StarsPaid int64  `gorm:"not null"`
	PaymentID string `gorm:"index"`
}

// GormRaceRecord 一场比赛的归档记录
type GormRaceRecord struct {
	gorm.Model
	RaceID      string                 `gorm:"uniqueIndex;not null"`
	PlayerCount int                    `gorm:"not null"`
	Winner      map[string]interface{} `gorm:"type:jsonb;serializer:json"`
	Results     map[string]interface{} `gorm:"type:jsonb;serializer:json"`
	StartedAt   int64                  `gorm:"not null"` // 毫秒时间戳
	EndedAt     int64                  `gorm:"not null"`
	DurationMs  int64                  `gorm:"default:0"`
}

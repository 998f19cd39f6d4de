// persistence/gorm_postgresql.go
package persistence

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/ballrace/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormPlayer{}, &models.GormPurchase{}, &models.GormRaceRecord{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// RecordPurchase 事务内写入购买流水并累计玩家总量
func (g *GormPostgreSQL) RecordPurchase(userID, name string, ballCount int, starsPaid int64, paymentID string) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		var player models.GormPlayer
		err := tx.Where("user_id = ?", userID).First(&player).Error
		if err == gorm.ErrRecordNotFound {
			player = models.GormPlayer{UserID: userID, Name: name}
			if err := tx.Create(&player).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"name":                  name,
			"total_balls_purchased": gorm.Expr("total_balls_purchased + ?", ballCount),
			"total_stars_spent":     gorm.Expr("total_stars_spent + ?", starsPaid),
		}
		if err := tx.Model(&player).Updates(updates).Error; err != nil {
			return err
		}

		purchase := models.GormPurchase{
			UserID:    userID,
			BallCount: ballCount,
			StarsPaid: starsPaid,
			PaymentID: paymentID,
		}
		return tx.Create(&purchase).Error
	})
}

// SaveRaceRecord 归档一场已结束的比赛
func (g *GormPostgreSQL) SaveRaceRecord(summary *models.RaceSummary) error {
	record := models.GormRaceRecord{
		RaceID:      summary.RaceID,
		PlayerCount: summary.PlayerCount,
		Winner:      toJSONMap(summary.Winner),
		Results:     map[string]interface{}{"entries": toJSONSlice(summary.Results)},
		StartedAt:   summary.StartTime,
		EndedAt:     summary.EndTime,
		DurationMs:  summary.EndTime - summary.StartTime,
	}
	return g.db.Create(&record).Error
}

// RecentRaces 按结束时间倒序返回最近的比赛
func (g *GormPostgreSQL) RecentRaces(limit int) ([]models.RaceSummary, error) {
	var records []models.GormRaceRecord
	if err := g.db.Order("ended_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}

	summaries := make([]models.RaceSummary, 0, len(records))
	for _, rec := range records {
		summary := models.RaceSummary{
			RaceID:      rec.RaceID,
			StartTime:   rec.StartedAt,
			EndTime:     rec.EndedAt,
			PlayerCount: rec.PlayerCount,
		}
		if rec.Winner != nil {
			var winner models.WinnerInfo
			if err := fromJSONMap(rec.Winner, &winner); err == nil {
				summary.Winner = &winner
			}
		}
		if entries, ok := rec.Results["entries"]; ok {
			var results []models.RaceResultEntry
			if err := fromJSONMap(entries, &results); err == nil {
				summary.Results = results
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetPlayerStats 查询玩家累计数据
func (g *GormPostgreSQL) GetPlayerStats(userID string) (map[string]interface{}, error) {
	var player models.GormPlayer
	err := g.db.Where("user_id = ?", userID).First(&player).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"userId":              player.UserID,
		"name":                player.Name,
		"totalBallsPurchased": player.TotalBallsPurchased,
		"totalStarsSpent":     player.TotalStarsSpent,
	}, nil
}

// Close 关闭数据库连接
func (g *GormPostgreSQL) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// jsonb 字段与结构体之间经由 JSON 往返转换

func toJSONMap(v interface{}) map[string]interface{} {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func toJSONSlice(v interface{}) []interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var s []interface{}
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	return s
}

func fromJSONMap(src interface{}, dst interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

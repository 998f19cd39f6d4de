// persistence/postgresql.go
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/wfunc/ballrace/models"
)

// PostgreSQL 使用database/sql+lib/pq的实现，不依赖ORM
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建PostgreSQL数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	p := &PostgreSQL{db: db}
	if err := p.initTables(); err != nil {
		return nil, err
	}
	return p, nil
}

// initTables 初始化表结构
func (p *PostgreSQL) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id SERIAL PRIMARY KEY,
			user_id TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			total_balls_purchased INTEGER DEFAULT 0,
			total_stars_spent BIGINT DEFAULT 0,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS purchases (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			ball_count INTEGER NOT NULL,
			stars_paid BIGINT NOT NULL,
			payment_id TEXT,
			created_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_user_id ON purchases(user_id)`,
		`CREATE TABLE IF NOT EXISTS race_records (
			id SERIAL PRIMARY KEY,
			race_id TEXT UNIQUE NOT NULL,
			player_count INTEGER NOT NULL,
			winner JSONB,
			results JSONB,
			started_at BIGINT NOT NULL,
			ended_at BIGINT NOT NULL,
			duration_ms BIGINT DEFAULT 0,
			created_at TIMESTAMP DEFAULT NOW()
		)`,
	}

	for _, q := range queries {
		if _, err := p.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// RecordPurchase 事务内写入购买流水并累计玩家总量
func (p *PostgreSQL) RecordPurchase(userID, name string, ballCount int, starsPaid int64, paymentID string) error {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO players (user_id, name, total_balls_purchased, total_stars_spent)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			name = $2,
			total_balls_purchased = players.total_balls_purchased + $3,
			total_stars_spent = players.total_stars_spent + $4,
			updated_at = NOW()`,
		userID, name, ballCount, starsPaid)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO purchases (user_id, ball_count, stars_paid, payment_id)
		VALUES ($1, $2, $3, $4)`,
		userID, ballCount, starsPaid, paymentID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// SaveRaceRecord 归档一场已结束的比赛
func (p *PostgreSQL) SaveRaceRecord(summary *models.RaceSummary) error {
	var winnerJSON []byte
	if summary.Winner != nil {
		data, err := json.Marshal(summary.Winner)
		if err != nil {
			return err
		}
		winnerJSON = data
	}
	resultsJSON, err := json.Marshal(summary.Results)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(`
		INSERT INTO race_records (race_id, player_count, winner, results, started_at, ended_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		summary.RaceID, summary.PlayerCount, winnerJSON, resultsJSON,
		summary.StartTime, summary.EndTime, summary.EndTime-summary.StartTime)
	return err
}

// RecentRaces 按结束时间倒序返回最近的比赛
func (p *PostgreSQL) RecentRaces(limit int) ([]models.RaceSummary, error) {
	rows, err := p.db.Query(`
		SELECT race_id, player_count, winner, results, started_at, ended_at
		FROM race_records ORDER BY ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.RaceSummary
	for rows.Next() {
		var summary models.RaceSummary
		var winnerJSON, resultsJSON []byte
		if err := rows.Scan(&summary.RaceID, &summary.PlayerCount,
			&winnerJSON, &resultsJSON, &summary.StartTime, &summary.EndTime); err != nil {
			return nil, err
		}
		if len(winnerJSON) > 0 {
			var winner models.WinnerInfo
			if err := json.Unmarshal(winnerJSON, &winner); err == nil {
				summary.Winner = &winner
			}
		}
		if len(resultsJSON) > 0 {
			if err := json.Unmarshal(resultsJSON, &summary.Results); err != nil {
				return nil, err
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// GetPlayerStats 查询玩家累计数据
func (p *PostgreSQL) GetPlayerStats(userID string) (map[string]interface{}, error) {
	var name string
	var totalBalls int
	var totalStars int64
	err := p.db.QueryRow(`
		SELECT name, total_balls_purchased, total_stars_spent
		FROM players WHERE user_id = $1`, userID).Scan(&name, &totalBalls, &totalStars)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"userId":              userID,
		"name":                name,
		"totalBallsPurchased": totalBalls,
		"totalStarsSpent":     totalStars,
	}, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

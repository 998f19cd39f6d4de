package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	Admins   AdminConfig    `mapstructure:"admins"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	// Driver 选择持久化实现："gorm"（默认）或 "pq"
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GameConfig 游戏与物理参数。这些值是引擎对外契约的一部分：
// 障碍生成、物理模拟和客户端渲染必须使用同一套常量。
type GameConfig struct {
	WorldWidth        float64       `mapstructure:"world_width"`
	WorldHeight       float64       `mapstructure:"world_height"`
	Gravity           float64       `mapstructure:"gravity"`
	BallRadius        float64       `mapstructure:"ball_radius"`
	FinishMargin      float64       `mapstructure:"finish_margin"`
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	RaceInterval      time.Duration `mapstructure:"race_interval"`
	RaceTimeout       time.Duration `mapstructure:"race_timeout"`
	GraceDelay        time.Duration `mapstructure:"grace_delay"`
	MaxBallsPerPlayer int           `mapstructure:"max_balls_per_player"`
	MaxPlayers        int           `mapstructure:"max_players"`
	BallPrice         int64         `mapstructure:"ball_price"`
	HistorySize       int           `mapstructure:"history_size"`
}

type AdminConfig struct {
	IDs []string `mapstructure:"ids"`
}

// IsAdmin 判断用户是否为管理员
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.Admins.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// DefaultGame returns the canonical constant set. Tests and the engine
// fall back to these values when no config file overrides them.
func DefaultGame() GameConfig {
	return GameConfig{
		WorldWidth:        800,
		WorldHeight:       1200,
		Gravity:           0.5,
		BallRadius:        12,
		FinishMargin:      100,
		TickInterval:      16 * time.Millisecond,
		RaceInterval:      2 * time.Minute,
		RaceTimeout:       60 * time.Second,
		GraceDelay:        3 * time.Second,
		MaxBallsPerPlayer: 50,
		MaxPlayers:        20,
		BallPrice:         50,
		HistorySize:       10,
	}
}

func setGameDefaults() {
	def := DefaultGame()
	viper.SetDefault("game.world_width", def.WorldWidth)
	viper.SetDefault("game.world_height", def.WorldHeight)
	viper.SetDefault("game.gravity", def.Gravity)
	viper.SetDefault("game.ball_radius", def.BallRadius)
	viper.SetDefault("game.finish_margin", def.FinishMargin)
	viper.SetDefault("game.tick_interval", def.TickInterval)
	viper.SetDefault("game.race_interval", def.RaceInterval)
	viper.SetDefault("game.race_timeout", def.RaceTimeout)
	viper.SetDefault("game.grace_delay", def.GraceDelay)
	viper.SetDefault("game.max_balls_per_player", def.MaxBallsPerPlayer)
	viper.SetDefault("game.max_players", def.MaxPlayers)
	viper.SetDefault("game.ball_price", def.BallPrice)
	viper.SetDefault("game.history_size", def.HistorySize)
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetDefault("database.driver", "gorm")
	setGameDefaults()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}

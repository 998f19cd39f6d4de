// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/ballrace/models"
)

// Database 数据库接口。两种实现：GORM（默认）和 database/sql+lib/pq。
// 引擎只依赖 SaveRaceRecord（见 engine.Recorder），其余方法服务于
// 购买记账和管理查询。
type Database interface {
	RecordPurchase(userID, name string, ballCount int, starsPaid int64, paymentID string) error
	SaveRaceRecord(summary *models.RaceSummary) error
	RecentRaces(limit int) ([]models.RaceSummary, error)
	GetPlayerStats(userID string) (map[string]interface{}, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)

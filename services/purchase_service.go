// services/purchase_service.go
package services

import (
	"errors"

	"github.com/wfunc/ballrace/persistence"
)

// 错误定义
var (
	ErrInvalidBallCount = errors.New("ball count must be positive")
	ErrAmountMismatch   = errors.New("payment amount does not match ball price")
)

// PurchaseService 校验购买请求并落库流水。支付本身由上游平台完成，
// 这里只核对金额与单价一致，再委托 persistence 记账。
type PurchaseService struct {
	db        persistence.Database
	ballPrice int64
}

func NewPurchaseService(db persistence.Database, ballPrice int64) *PurchaseService {
	return &PurchaseService{db: db, ballPrice: ballPrice}
}

// VerifyAndRecord 校验并记录一次购买。记账失败不应阻止发球，
// 调用方自行决定如何处理返回的错误。
func (s *PurchaseService) VerifyAndRecord(userID, name string, ballCount int, amount int64, paymentID string) error {
	if ballCount <= 0 {
		return ErrInvalidBallCount
	}
	if amount != int64(ballCount)*s.ballPrice {
		return ErrAmountMismatch
	}
	if s.db == nil {
		return nil
	}
	return s.db.RecordPurchase(userID, name, ballCount, amount, paymentID)
}

// GetPlayerStats 查询玩家累计数据
func (s *PurchaseService) GetPlayerStats(userID string) (map[string]interface{}, error) {
	if s.db == nil {
		return nil, persistence.ErrRecordNotFound
	}
	return s.db.GetPlayerStats(userID)
}

// BallPrice 单价
func (s *PurchaseService) BallPrice() int64 {
	return s.ballPrice
}

// models/models.go
package models

// 对外广播与请求的载荷类型。字段名即客户端渲染契约，
// 不要在不升级客户端的情况下改动。

// Vec 二维坐标/速度
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RangeState 移动平台的摆动范围
type RangeState struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// LobbyPlayer 大厅玩家的公开视图
type LobbyPlayer struct {
	Username  string `json:"username"`
	BallCount int    `json:"ballCount"`
}

// LobbyUpdate 每次大厅变化后全量广播
type LobbyUpdate struct {
	Players      []LobbyPlayer `json:"players"`
	TotalPlayers int           `json:"totalPlayers"`
}

// NextRaceTime 下一场比赛的开始时间（毫秒时间戳）
type NextRaceTime struct {
	NextRaceTime int64 `json:"nextRaceTime"`
}

// ObstacleState 障碍物快照
type ObstacleState struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Color    string      `json:"color"`
	Velocity *Vec        `json:"velocity,omitempty"`
	Range    *RangeState `json:"range,omitempty"`
}

// BallState 球的快照
type BallState struct {
	ID         string `json:"id"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Color      string `json:"color"`
	Position   Vec    `json:"position"`
	Velocity   Vec    `json:"velocity"`
	Finished   bool   `json:"finished"`
	FinishTime *int64 `json:"finishTime"` // 毫秒时间戳，未完成时为 null
}

// WinnerInfo 获胜球及其所属玩家
type WinnerInfo struct {
	BallID     string `json:"ballId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	FinishTime int64  `json:"finishTime"`
}

// RaceStarted 比赛开始时广播一次
type RaceStarted struct {
	RaceID    string          `json:"raceId"`
	Players   []LobbyPlayer   `json:"players"`
	Obstacles []ObstacleState `json:"obstacles"`
}

// RaceState 每个模拟 tick 广播一次
type RaceState struct {
	RaceID      string          `json:"raceId"`
	Balls       []BallState     `json:"balls"`
	Obstacles   []ObstacleState `json:"obstacles"`
	Winner      *WinnerInfo     `json:"winner"`
	TimeElapsed int64           `json:"timeElapsed"` // 毫秒
}

// RaceResultEntry 单个球的最终名次条目
type RaceResultEntry struct {
	BallID        string `json:"ballId"`
	PlayerID      string `json:"playerId"`
	PlayerName    string `json:"playerName"`
	Finished      bool   `json:"finished"`
	FinishTime    *int64 `json:"finishTime"`
	FinalPosition Vec    `json:"finalPosition"`
}

// RaceEnded 比赛结束时广播一次，results 覆盖开赛时存在的每一个球
type RaceEnded struct {
	RaceID  string            `json:"raceId"`
	Winner  *WinnerInfo       `json:"winner"`
	Results []RaceResultEntry `json:"results"`
}

// RaceSummary 历史记录条目，也是落库的载荷
type RaceSummary struct {
	RaceID      string            `json:"raceId"`
	StartTime   int64             `json:"startTime"`
	EndTime     int64             `json:"endTime"`
	Winner      *WinnerInfo       `json:"winner"`
	Results     []RaceResultEntry `json:"results"`
	PlayerCount int               `json:"playerCount"`
}

// --- 客户端请求 ---

// JoinLobbyRequest join-lobby 请求。身份由上游支付/认证层校验。
type JoinLobbyRequest struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// BuyBallsRequest buy-balls 请求。支付校验属于外部协作方，
// 这里只携带其结果。
type BuyBallsRequest struct {
	BallCount int    `json:"ballCount"`
	PaymentID string `json:"paymentId"`
	Amount    int64  `json:"amount"`
}

// PlayerStats 购买成功后的确认
type PlayerStats struct {
	BallCount  int   `json:"ballCount"`
	TotalSpent int64 `json:"totalSpent"`
}

// ErrorMessage 显式错误确认
type ErrorMessage struct {
	Message string `json:"message"`
}

package network

const (
	MsgTypeHeartbeat = 1

	// 客户端 -> 服务端
	MsgTypeJoinLobby       = 101
	MsgTypeBuyBalls        = 102
	MsgTypeAdminForceStart = 103
	MsgTypeAdminReset      = 104

	// 服务端 -> 客户端
	MsgTypeError        = 201
	MsgTypePlayerStats  = 202
	MsgTypeAdminAck     = 203
	MsgTypeLobbyUpdate  = 301
	MsgTypeNextRaceTime = 302
	MsgTypeRaceStarted  = 303
	MsgTypeRaceState    = 304
	MsgTypeRaceEnded    = 305
)

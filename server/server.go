package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/ballrace/broadcast"
	"github.com/wfunc/ballrace/config"
	"github.com/wfunc/ballrace/engine"
	"github.com/wfunc/ballrace/logger"
	"github.com/wfunc/ballrace/models"
	"github.com/wfunc/ballrace/monitor"
	"github.com/wfunc/ballrace/network"
	"github.com/wfunc/ballrace/persistence"
	ballrace_rpc "github.com/wfunc/ballrace/rpc"
	"github.com/wfunc/ballrace/services"
	"github.com/wfunc/ballrace/session"
	"github.com/wfunc/ballrace/timer"
)

// 空闲会话超过该时长未发任何包（包括心跳）即被断开
const idleTimeout = 5 * time.Minute

// GameServer 持有 WebSocket 入口、会话表和引擎。所有大厅/比赛状态
// 都在引擎循环里，这里只做解包、鉴权和应答。
type GameServer struct {
	cfg            *config.Config
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	engine         *engine.Engine
	purchases      *services.PurchaseService
	broadcaster    broadcast.Broadcaster
	mon            *monitor.Monitor
	rpcServer      *ballrace_rpc.Server
	timers         *timer.Manager

	spentMutex sync.Mutex
	spent      map[string]int64 // 本进程内各玩家累计消费，用于应答

	shutdownChan chan struct{}
}

func NewGameServer(cfg *config.Config, db persistence.Database, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		cfg:            cfg,
		sessionManager: session.NewManager(),
		purchases:      services.NewPurchaseService(db, cfg.Game.BallPrice),
		mon:            mon,
		timers:         timer.NewManager(),
		spent:          make(map[string]int64),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	s.broadcaster = broadcast.NewSessionBroadcaster(s.sessionManager)

	var metrics engine.Metrics
	if mon != nil {
		metrics = mon
	}
	var recorder engine.Recorder
	if db != nil {
		recorder = db
	}
	s.engine = engine.New(cfg.Game, s.broadcaster, metrics, recorder)
	s.engine.SetAdminCheck(cfg.IsAdmin)

	// 初始化RPC服务器
	rpcServer, err := ballrace_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	adminService := ballrace_rpc.NewAdminService(s.engine, s.purchases)
	rpc.Register(adminService)

	return s
}

// Engine exposes the engine for tests and embedding callers.
func (s *GameServer) Engine() *engine.Engine {
	return s.engine
}

func (s *GameServer) Start() error {
	go s.engine.Run()
	go s.rpcServer.Start()
	go s.runTimerLoop()

	// 空闲会话定期清理
	s.timers.Schedule(30*time.Second, 30*time.Second, s.sweepIdleSessions)

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.cfg.Server.HTTPAddress)
	return http.ListenAndServe(s.cfg.Server.HTTPAddress, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.timers.Stop()
	s.rpcServer.Stop()
	s.engine.Stop()
}

// runTimerLoop 串行消费定时器回调，回调之间不会并发
func (s *GameServer) runTimerLoop() {
	for {
		select {
		case <-s.shutdownChan:
			return
		case fn := <-s.timers.C:
			fn()
		}
	}
}

func (s *GameServer) sweepIdleSessions() {
	deadline := time.Now().Add(-idleTimeout)
	for _, sess := range s.sessionManager.All() {
		if sess.IdleSince(deadline) {
			logger.Log.Infof("Closing idle session %s", sess.GetID())
			sess.Close()
		}
	}
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	if s.mon != nil {
		s.mon.IncOnlinePlayers()
	}

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		if s.mon != nil {
			s.mon.DecOnlinePlayers()
		}
		userID, _, _ := sess.Identity()
		if userID != "" && len(s.sessionManager.GetByUserID(userID)) == 0 {
			// 最后一条连接断开才算离场，刷新页面不丢大厅位置
			s.engine.Leave(userID)
		}
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	if s.mon != nil {
		s.mon.IncMessagesReceived()
	}

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeJoinLobby:
		s.handleJoinLobby(sess, packet)
	case network.MsgTypeBuyBalls:
		s.handleBuyBalls(sess, packet)
	case network.MsgTypeAdminForceStart:
		s.handleAdmin(sess, false)
	case network.MsgTypeAdminReset:
		s.handleAdmin(sess, true)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *GameServer) handleJoinLobby(sess *session.Session, packet *network.Packet) {
	var req models.JoinLobbyRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "malformed join request")
		return
	}
	if req.UserID == "" || req.Username == "" {
		s.sendError(sess, "userId and username are required")
		return
	}

	isAdmin := s.cfg.IsAdmin(req.UserID)
	sess.Identify(req.UserID, req.Username, isAdmin)
	s.engine.Join(req.UserID, req.Username, isAdmin)

	logger.Log.Infof("Session %s joined lobby as %s (admin=%v)", sess.GetID(), req.UserID, isAdmin)

	// 新加入的连接立刻获得下一场的开赛时间，不用等下一次广播
	next := s.engine.NextRace()
	s.sendJSON(sess, network.MsgTypeNextRaceTime, models.NextRaceTime{NextRaceTime: next.UnixMilli()})
}

func (s *GameServer) handleBuyBalls(sess *session.Session, packet *network.Packet) {
	userID, name, _ := sess.Identity()
	if userID == "" {
		s.sendError(sess, "join the lobby before buying balls")
		return
	}

	var req models.BuyBallsRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "malformed purchase request")
		return
	}

	// 先核验支付，再改大厅状态
	if err := s.purchases.VerifyAndRecord(userID, name, req.BallCount, req.Amount, req.PaymentID); err != nil {
		logger.Log.Warnf("Purchase rejected for %s: %v", userID, err)
		s.sendError(sess, err.Error())
		return
	}

	total, err := s.engine.AddBalls(userID, name, req.BallCount)
	if err != nil {
		s.sendError(sess, err.Error())
		return
	}

	s.spentMutex.Lock()
	s.spent[userID] += req.Amount
	totalSpent := s.spent[userID]
	s.spentMutex.Unlock()

	// 同一个玩家可能开着多个连接，全部同步到最新状态
	stats, err := json.Marshal(models.PlayerStats{
		BallCount:  total,
		TotalSpent: totalSpent,
	})
	if err != nil {
		logger.Log.Errorf("Failed to marshal player stats for %s: %v", userID, err)
		return
	}
	if err := s.broadcaster.BroadcastToUser(userID, network.MsgTypePlayerStats, stats); err != nil {
		logger.Log.Warnf("Failed to deliver player stats to %s: %v", userID, err)
	}
}

func (s *GameServer) handleAdmin(sess *session.Session, reset bool) {
	userID, _, _ := sess.Identity()
	if userID == "" {
		s.sendError(sess, "join the lobby first")
		return
	}

	var err error
	action := "force_start"
	if reset {
		action = "reset"
		err = s.engine.Reset(userID)
	} else {
		err = s.engine.ForceStart(userID)
	}
	if err != nil {
		s.sendError(sess, err.Error())
		return
	}

	resp := map[string]string{"action": action}
	data, _ := json.Marshal(resp)
	sess.Send(network.MsgTypeAdminAck, data)
}

func (s *GameServer) sendJSON(sess *session.Session, msgID uint16, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("Failed to marshal message %d: %v", msgID, err)
		return
	}
	if err := sess.Send(msgID, data); err != nil {
		logger.Log.Warnf("Failed to send message %d to session %s: %v", msgID, sess.GetID(), err)
	}
}

func (s *GameServer) sendError(sess *session.Session, message string) {
	s.sendJSON(sess, network.MsgTypeError, models.ErrorMessage{Message: message})
}

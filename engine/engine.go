package engine

import (
	"encoding/json"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/ballrace/config"
	"github.com/wfunc/ballrace/lobby"
	"github.com/wfunc/ballrace/logger"
	"github.com/wfunc/ballrace/models"
	"github.com/wfunc/ballrace/network"
	"github.com/wfunc/ballrace/physics"
	"github.com/wfunc/ballrace/race"
	"github.com/wfunc/ballrace/state"
)

// Engine 游戏会话引擎：大厅、调度器和比赛循环都跑在同一个事件循环
// goroutine 上。购买、管理命令通过 inbox 进入循环，模拟由 ticker 驱动。
// 单一写者：大厅和比赛状态只在这个 goroutine 上被修改，
// 大厅晋级（快照+清空）因此是一个没有挂起点的原子步骤。
type Engine struct {
	cfg   config.GameConfig
	world physics.World

	lobby   *lobby.Lobby
	machine state.StateMachine
	race    *race.Race
	history *race.History

	waiting *waitingState
	racing  *racingState

	nextRaceTime time.Time

	broadcaster Broadcaster
	metrics     Metrics
	recorder    Recorder
	adminCheck  func(userID string) bool

	inbox chan interface{}
	quit  chan struct{}

	now func() time.Time
	rng *rand.Rand
}

// --- 循环内部命令 ---

type joinCmd struct {
	userID  string
	name    string
	isAdmin bool
}

type leaveCmd struct {
	userID string
}

type addBallsCmd struct {
	userID string
	name   string
	count  int
	reply  chan addBallsReply
}

type addBallsReply struct {
	total int
	err   error
}

type adminCmd struct {
	requesterID string
	reset       bool
	reply       chan error
}

type historyCmd struct {
	reply chan []models.RaceSummary
}

type nextRaceCmd struct {
	reply chan time.Time
}

func New(cfg config.GameConfig, broadcaster Broadcaster, metrics Metrics, recorder Recorder) *Engine {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	e := &Engine{
		cfg:         cfg,
		world:       physics.NewWorld(cfg.WorldWidth, cfg.WorldHeight, cfg.Gravity, cfg.BallRadius, cfg.FinishMargin),
		lobby:       lobby.New(cfg.MaxBallsPerPlayer, cfg.MaxPlayers, rng),
		history:     race.NewHistory(cfg.HistorySize),
		broadcaster: broadcaster,
		metrics:     metrics,
		recorder:    recorder,
		inbox:       make(chan interface{}, 256),
		quit:        make(chan struct{}),
		now:         time.Now,
		rng:         rng,
	}

	e.waiting = &waitingState{e: e}
	e.racing = &racingState{e: e}

	machine := state.NewBaseStateMachine(e.waiting)
	// 两个转换条件共同保证单比赛不变式：晋级前必须已装入比赛，
	// 回到等待前必须已清空。
	machine.AddTransition(e.waiting, e.racing, func() bool { return e.race != nil })
	machine.AddTransition(e.racing, e.waiting, func() bool { return e.race == nil })
	e.machine = machine

	return e
}

// SetAdminCheck installs an out-of-band admin authorizer (the config
// admin list) for requests arriving outside the lobby, e.g. over RPC.
// Must be called before Run.
func (e *Engine) SetAdminCheck(fn func(userID string) bool) {
	e.adminCheck = fn
}

// Run drives the event loop until Stop. Blocks; run it on its own
// goroutine.
func (e *Engine) Run() {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.quit:
			return
		case cmd := <-e.inbox:
			e.handleCommand(cmd)
		case <-ticker.C:
			e.step(e.now())
		}
	}
}

func (e *Engine) Stop() {
	close(e.quit)
}

// step advances the lifecycle state machine by one tick. One tick
// completes synchronously before the next command or tick is taken.
func (e *Engine) step(now time.Time) {
	start := time.Now()
	e.machine.GetCurrentState().OnUpdate(now)
	if e.metrics != nil {
		e.metrics.ObserveTick(time.Since(start))
	}
}

func (e *Engine) handleCommand(cmd interface{}) {
	switch c := cmd.(type) {
	case joinCmd:
		if e.lobby.Join(c.userID, c.name, c.isAdmin) == nil {
			logger.Log.Warnf("Join rejected, lobby full: %s", c.userID)
			return
		}
		e.lobbyChanged()
	case leaveCmd:
		e.lobby.Remove(c.userID)
		e.lobbyChanged()
	case addBallsCmd:
		total, err := e.lobby.AddBalls(c.userID, c.name, c.count)
		if err == nil {
			if e.metrics != nil {
				e.metrics.AddBallsSold(c.count)
			}
			e.lobbyChanged()
		}
		c.reply <- addBallsReply{total: total, err: err}
	case adminCmd:
		if c.reset {
			c.reply <- e.handleReset(c.requesterID)
		} else {
			c.reply <- e.handleForceStart(c.requesterID)
		}
	case historyCmd:
		c.reply <- e.history.All()
	case nextRaceCmd:
		c.reply <- e.nextRaceTime
	}
}

// --- 对外 API：从任意 goroutine 调用，经 inbox 串行化 ---

// Join registers a lobby player. The admin flag is determined by the
// caller (config list); the engine only stores it.
func (e *Engine) Join(userID, displayName string, isAdmin bool) {
	e.post(joinCmd{userID: userID, name: displayName, isAdmin: isAdmin})
}

// Leave drops a player from the lobby, e.g. on disconnect.
func (e *Engine) Leave(userID string) {
	e.post(leaveCmd{userID: userID})
}

// AddBalls appends purchased balls for the player and returns the new
// total. Payment verification happens before this call; the lobby
// mutation itself is synchronous on the engine loop.
func (e *Engine) AddBalls(userID, displayName string, count int) (int, error) {
	reply := make(chan addBallsReply, 1)
	if !e.post(addBallsCmd{userID: userID, name: displayName, count: count, reply: reply}) {
		return 0, ErrStopped
	}
	r := <-reply
	return r.total, r.err
}

// ForceStart promotes the lobby immediately, bypassing the timer.
// Requires an admin requester and at least one funded player.
func (e *Engine) ForceStart(requesterID string) error {
	reply := make(chan error, 1)
	if !e.post(adminCmd{requesterID: requesterID, reply: reply}) {
		return ErrStopped
	}
	return <-reply
}

// Reset discards any running race, clears the lobby and re-arms the
// next-race timer from now.
func (e *Engine) Reset(requesterID string) error {
	reply := make(chan error, 1)
	if !e.post(adminCmd{requesterID: requesterID, reset: true, reply: reply}) {
		return ErrStopped
	}
	return <-reply
}

// History returns the bounded ring of completed race summaries.
func (e *Engine) History() []models.RaceSummary {
	reply := make(chan []models.RaceSummary, 1)
	if !e.post(historyCmd{reply: reply}) {
		return nil
	}
	return <-reply
}

// NextRace returns the currently armed next-race time.
func (e *Engine) NextRace() time.Time {
	reply := make(chan time.Time, 1)
	if !e.post(nextRaceCmd{reply: reply}) {
		return time.Time{}
	}
	return <-reply
}

func (e *Engine) post(cmd interface{}) bool {
	select {
	case e.inbox <- cmd:
		return true
	case <-e.quit:
		return false
	}
}

// --- 循环内部操作 ---

func (e *Engine) isAdmin(userID string) bool {
	if p, ok := e.lobby.Player(userID); ok && p.IsAdmin {
		return true
	}
	return e.adminCheck != nil && e.adminCheck(userID)
}

func (e *Engine) handleForceStart(requesterID string) error {
	if !e.isAdmin(requesterID) {
		return ErrUnauthorized
	}
	if e.race != nil {
		// 不变式保护：绝不并行开第二场
		logger.Log.Errorf("Force start rejected: race %s already running", e.race.ID)
		return ErrRaceInProgress
	}
	if e.lobby.FundedPlayers() == 0 {
		return ErrNoEligiblePlayers
	}

	logger.Log.Infof("Admin %s forced race start", requesterID)
	e.promote(e.now())
	return nil
}

func (e *Engine) handleReset(requesterID string) error {
	if !e.isAdmin(requesterID) {
		return ErrUnauthorized
	}

	logger.Log.Infof("Admin %s reset the game", requesterID)

	if e.race != nil {
		// 丢弃进行中的比赛。先清空比赛槽再切状态，
		// 转换条件 racing->waiting 才会放行。
		e.race = nil
		if err := e.machine.ChangeState(e.waiting); err != nil {
			logger.Log.Errorf("Reset state change failed: %v", err)
		}
	} else {
		e.armNextRace(e.now())
	}

	e.lobby.Clear()
	e.lobbyChanged()
	return nil
}

// promote is the atomic lobby-to-race transition: drain the lobby,
// generate the field, install the race and switch states, all within
// one loop iteration.
func (e *Engine) promote(now time.Time) {
	entrants := e.lobby.Drain()
	e.lobbyChanged()

	raceEntrants := make([]race.Entrant, 0, len(entrants))
	for _, p := range entrants {
		entrant := race.Entrant{PlayerID: p.UserID, DisplayName: p.DisplayName}
		for _, b := range p.Balls {
			entrant.Balls = append(entrant.Balls, race.EntrantBall{ID: b.ID, Color: b.Color})
		}
		raceEntrants = append(raceEntrants, entrant)
	}

	obstacles := physics.GenerateField(e.world, e.rng)
	r := race.New(uuid.New().String(), raceEntrants, obstacles, e.world, race.Config{
		GraceDelay:  e.cfg.GraceDelay,
		HardTimeout: e.cfg.RaceTimeout,
	}, now, e.rng)

	e.race = r
	if err := e.machine.ChangeState(e.racing); err != nil {
		// 结构上不可能：上面刚装入比赛。宁可拒绝也不能破坏状态。
		logger.Log.Errorf("Promotion state change failed: %v", err)
		e.race = nil
		return
	}

	logger.Log.Infof("Race %s started with %d players, %d balls", r.ID, len(raceEntrants), len(r.Balls))
	if e.metrics != nil {
		e.metrics.IncRacesStarted()
	}

	e.emit(network.MsgTypeRaceStarted, models.RaceStarted{
		RaceID:    r.ID,
		Players:   r.Entrants(),
		Obstacles: race.ObstacleStates(obstacles),
	})
}

// finishRace publishes the result, archives the summary and returns the
// engine to the waiting state.
func (e *Engine) finishRace(now time.Time) {
	r := e.race
	summary := r.Summary()

	e.emit(network.MsgTypeRaceEnded, models.RaceEnded{
		RaceID:  r.ID,
		Winner:  summary.Winner,
		Results: summary.Results,
	})

	e.history.Add(summary)
	if e.recorder != nil {
		// 落库不能阻塞模拟循环
		go func() {
			if err := e.recorder.SaveRaceRecord(&summary); err != nil {
				logger.Log.Errorf("Failed to save race record %s: %v", summary.RaceID, err)
			}
		}()
	}

	if summary.Winner != nil {
		logger.Log.Infof("Race %s won by %s (ball %s)", r.ID, summary.Winner.PlayerName, summary.Winner.BallID)
	} else {
		logger.Log.Infof("Race %s timed out with no winner", r.ID)
	}
	if e.metrics != nil {
		e.metrics.ObserveRaceFinished(r.Elapsed(now))
	}

	e.race = nil
	if err := e.machine.ChangeState(e.waiting); err != nil {
		logger.Log.Errorf("Settlement state change failed: %v", err)
	}
}

func (e *Engine) armNextRace(now time.Time) {
	e.nextRaceTime = now.Add(e.cfg.RaceInterval)
	e.emit(network.MsgTypeNextRaceTime, models.NextRaceTime{NextRaceTime: e.nextRaceTime.UnixMilli()})
}

func (e *Engine) lobbyChanged() {
	if e.metrics != nil {
		e.metrics.SetLobbyPlayers(e.lobby.Len())
	}
	e.emit(network.MsgTypeLobbyUpdate, e.lobby.Snapshot())
}

// emit 序列化并广播，失败只记日志，不影响模拟
func (e *Engine) emit(msgID uint16, v interface{}) {
	if e.broadcaster == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("Failed to marshal broadcast %d: %v", msgID, err)
		return
	}
	e.broadcaster.BroadcastToAll(msgID, data)
}

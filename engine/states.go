package engine

import (
	"time"

	"github.com/wfunc/ballrace/logger"
	"github.com/wfunc/ballrace/models"
	"github.com/wfunc/ballrace/network"
)

// waitingState 等待阶段：大厅开放，倒计时每秒广播一次。
// 计时到期后若有带球玩家则晋级，否则静默重新计时。
type waitingState struct {
	e            *Engine
	lastAnnounce time.Time
}

func (s *waitingState) GetID() string { return "waiting" }

func (s *waitingState) OnEnter() {
	now := s.e.now()
	s.e.armNextRace(now)
	s.lastAnnounce = now
}

func (s *waitingState) OnExit() {}

func (s *waitingState) OnUpdate(now time.Time) {
	e := s.e

	if now.Sub(s.lastAnnounce) >= time.Second {
		e.emit(network.MsgTypeNextRaceTime, models.NextRaceTime{NextRaceTime: e.nextRaceTime.UnixMilli()})
		s.lastAnnounce = now
	}

	if now.Before(e.nextRaceTime) {
		return
	}

	if e.lobby.FundedPlayers() == 0 {
		e.nextRaceTime = now.Add(e.cfg.RaceInterval)
		return
	}

	logger.Log.Infof("Race timer elapsed, promoting %d funded players", e.lobby.FundedPlayers())
	e.promote(now)
}

// racingState 比赛阶段：每个 tick 推进一次模拟并广播快照，
// 比赛结束后回到等待阶段。
type racingState struct {
	e *Engine
}

func (s *racingState) GetID() string { return "racing" }

func (s *racingState) OnEnter() {}

func (s *racingState) OnExit() {}

func (s *racingState) OnUpdate(now time.Time) {
	e := s.e
	r := e.race
	if r == nil {
		// Reset 丢弃了比赛但状态还没切换成功，这里兜底
		if err := e.machine.ChangeState(e.waiting); err != nil {
			logger.Log.Errorf("Recovery state change failed: %v", err)
		}
		return
	}

	finished := r.Tick(now)
	e.emit(network.MsgTypeRaceState, r.Snapshot(now))

	if finished {
		e.finishRace(now)
	}
}

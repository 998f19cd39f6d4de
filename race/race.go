package race

import (
	"math/rand"
	"sort"
	"time"

	"github.com/wfunc/ballrace/models"
	"github.com/wfunc/ballrace/physics"
)

// Status is the race lifecycle. A race transitions to StatusFinished
// exactly once: after the grace window following the first finisher, or
// on the hard timeout.
type Status int

const (
	StatusRunning Status = iota
	StatusFinished
)

// Config holds the two race deadlines.
type Config struct {
	GraceDelay  time.Duration // winner shown this long before teardown
	HardTimeout time.Duration // wall-clock ceiling, bypasses the grace window
}

// EntrantBall is a purchased ball stub carried into the race.
type EntrantBall struct {
	ID    string
	Color string
}

// Entrant is one funded player promoted out of the lobby, in join order.
type Entrant struct {
	PlayerID    string
	DisplayName string
	Balls       []EntrantBall
}

// Winner identifies the first ball across the finish strip.
type Winner struct {
	BallID     string
	PlayerID   string
	PlayerName string
	FinishTime time.Time
}

// Race owns its balls and obstacles exclusively for its lifetime. It is
// not safe for concurrent use: the engine loop is the only caller.
type Race struct {
	ID        string
	StartTime time.Time
	Status    Status
	Obstacles []*physics.Obstacle
	Balls     []*physics.Ball
	Winner    *Winner

	world         physics.World
	cfg           Config
	playerCount   int
	entrants      []models.LobbyPlayer
	graceDeadline time.Time
	hardDeadline  time.Time
	lastTick      time.Time
	endTime       time.Time
	rng           *rand.Rand
}

// New materializes a race from the drained lobby. Balls spawn spread
// across the top of the world with a small random horizontal velocity;
// ball order is entrant join order then purchase order, which is also
// the tie-break order everywhere downstream.
func New(id string, entrants []Entrant, obstacles []*physics.Obstacle, w physics.World, cfg Config, now time.Time, rng *rand.Rand) *Race {
	r := &Race{
		ID:           id,
		StartTime:    now,
		Status:       StatusRunning,
		Obstacles:    obstacles,
		world:        w,
		cfg:          cfg,
		playerCount:  len(entrants),
		hardDeadline: now.Add(cfg.HardTimeout),
		lastTick:     now,
		rng:          rng,
	}

	for _, e := range entrants {
		r.entrants = append(r.entrants, models.LobbyPlayer{
			Username:  e.DisplayName,
			BallCount: len(e.Balls),
		})
		for i, stub := range e.Balls {
			r.Balls = append(r.Balls, &physics.Ball{
				ID:         stub.ID,
				PlayerID:   e.PlayerID,
				PlayerName: e.DisplayName,
				Color:      stub.Color,
				Pos: physics.Vec2{
					X: 100 + rng.Float64()*(w.Width-200),
					Y: 50 + float64(i)*5,
				},
				Vel: physics.Vec2{
					X: (rng.Float64() - 0.5) * 2,
					Y: 0,
				},
			})
		}
	}

	return r
}

// Tick advances the simulation by one step and reports whether the race
// just finished. One tick completes synchronously: moving platforms
// first, then every ball, then the winner scan against the deadlines.
func (r *Race) Tick(now time.Time) bool {
	if r.Status == StatusFinished {
		return true
	}

	dt := physics.Dt(now.Sub(r.lastTick), r.world.MaxDT)
	r.lastTick = now

	physics.AdvanceObstacles(r.Obstacles, dt)
	for _, b := range r.Balls {
		physics.StepBall(b, r.Obstacles, dt, now, r.world, r.rng)
	}

	if r.Winner == nil {
		if w := r.scanWinner(now); w != nil {
			r.Winner = w
			r.graceDeadline = now.Add(r.cfg.GraceDelay)
		}
	}

	if r.Winner != nil && !now.Before(r.graceDeadline) {
		r.finish(now)
		return true
	}
	if r.Winner == nil && now.After(r.hardDeadline) {
		r.finish(now)
		return true
	}
	return false
}

// scanWinner finds the finished ball with the strictly minimal finish
// time. Penalized balls carry a finish stamp in the future and are
// skipped, so they can never win. Ties keep stable input order because
// only a strictly earlier time displaces the candidate.
func (r *Race) scanWinner(now time.Time) *Winner {
	var best *physics.Ball
	for _, b := range r.Balls {
		if !b.Finished || b.FinishTime.After(now) {
			continue
		}
		if best == nil || b.FinishTime.Before(best.FinishTime) {
			best = b
		}
	}
	if best == nil {
		return nil
	}
	return &Winner{
		BallID:     best.ID,
		PlayerID:   best.PlayerID,
		PlayerName: best.PlayerName,
		FinishTime: best.FinishTime,
	}
}

func (r *Race) finish(now time.Time) {
	r.Status = StatusFinished
	r.endTime = now
}

// Elapsed is the wall-clock time since promotion.
func (r *Race) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.StartTime)
}

// Entrants returns the public player list broadcast at race start.
func (r *Race) Entrants() []models.LobbyPlayer {
	return r.entrants
}

// Results ranks every ball that existed at race start: finished balls
// ascending by finish time, then unfinished balls by furthest Y
// descending. Sorting is stable, so ties keep input order.
func (r *Race) Results() []models.RaceResultEntry {
	finished := make([]*physics.Ball, 0, len(r.Balls))
	unfinished := make([]*physics.Ball, 0, len(r.Balls))
	for _, b := range r.Balls {
		if b.Finished {
			finished = append(finished, b)
		} else {
			unfinished = append(unfinished, b)
		}
	}

	sort.SliceStable(finished, func(i, j int) bool {
		return finished[i].FinishTime.Before(finished[j].FinishTime)
	})
	sort.SliceStable(unfinished, func(i, j int) bool {
		return unfinished[i].Pos.Y > unfinished[j].Pos.Y
	})

	results := make([]models.RaceResultEntry, 0, len(r.Balls))
	for _, b := range append(finished, unfinished...) {
		entry := models.RaceResultEntry{
			BallID:        b.ID,
			PlayerID:      b.PlayerID,
			PlayerName:    b.PlayerName,
			Finished:      b.Finished,
			FinalPosition: models.Vec{X: b.Pos.X, Y: b.Pos.Y},
		}
		if b.Finished {
			ms := b.FinishTime.UnixMilli()
			entry.FinishTime = &ms
		}
		results = append(results, entry)
	}
	return results
}

// Snapshot builds the per-tick broadcast state. Elapsed time is derived
// from the tick clock, so consecutive snapshots never go backwards.
func (r *Race) Snapshot(now time.Time) models.RaceState {
	state := models.RaceState{
		RaceID:      r.ID,
		Balls:       make([]models.BallState, 0, len(r.Balls)),
		Obstacles:   ObstacleStates(r.Obstacles),
		Winner:      r.winnerInfo(),
		TimeElapsed: r.Elapsed(now).Milliseconds(),
	}

	for _, b := range r.Balls {
		bs := models.BallState{
			ID:         b.ID,
			PlayerID:   b.PlayerID,
			PlayerName: b.PlayerName,
			Color:      b.Color,
			Position:   models.Vec{X: b.Pos.X, Y: b.Pos.Y},
			Velocity:   models.Vec{X: b.Vel.X, Y: b.Vel.Y},
			Finished:   b.Finished,
		}
		if b.Finished {
			ms := b.FinishTime.UnixMilli()
			bs.FinishTime = &ms
		}
		state.Balls = append(state.Balls, bs)
	}

	return state
}

// Summary collapses the race into its history/persistence record.
func (r *Race) Summary() models.RaceSummary {
	return models.RaceSummary{
		RaceID:      r.ID,
		StartTime:   r.StartTime.UnixMilli(),
		EndTime:     r.endTime.UnixMilli(),
		Winner:      r.winnerInfo(),
		Results:     r.Results(),
		PlayerCount: r.playerCount,
	}
}

func (r *Race) winnerInfo() *models.WinnerInfo {
	if r.Winner == nil {
		return nil
	}
	return &models.WinnerInfo{
		BallID:     r.Winner.BallID,
		PlayerID:   r.Winner.PlayerID,
		PlayerName: r.Winner.PlayerName,
		FinishTime: r.Winner.FinishTime.UnixMilli(),
	}
}

// ObstacleStates converts obstacles for broadcast.
func ObstacleStates(obstacles []*physics.Obstacle) []models.ObstacleState {
	states := make([]models.ObstacleState, 0, len(obstacles))
	for _, o := range obstacles {
		s := models.ObstacleState{
			ID:     o.ID,
			Type:   string(o.Kind),
			X:      o.X,
			Y:      o.Y,
			Width:  o.Width,
			Height: o.Height,
			Color:  o.Color,
		}
		if o.Kind == physics.KindMoving {
			s.Velocity = &models.Vec{X: o.VelX}
			s.Range = &models.RangeState{Min: o.Range.Min, Max: o.Range.Max}
		}
		states = append(states, s)
	}
	return states
}

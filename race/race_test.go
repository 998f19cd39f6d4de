package race

import (
	"math/rand"
	"testing"
	"time"

	"github.com/wfunc/ballrace/physics"
)

var raceStart = time.Unix(1000, 0)

func testConfig() Config {
	return Config{
		GraceDelay:  3 * time.Second,
		HardTimeout: 60 * time.Second,
	}
}

func testObstacles(w physics.World) []*physics.Obstacle {
	return []*physics.Obstacle{{
		ID:    "finish_line",
		Kind:  physics.KindFinish,
		X:     0,
		Y:     w.FinishY,
		Width: w.Width,
	}}
}

func newTestRace(entrants []Entrant) *Race {
	w := physics.DefaultWorld()
	return New("race-1", entrants, testObstacles(w), w, testConfig(), raceStart, rand.New(rand.NewSource(1)))
}

func twoPlayerEntrants() []Entrant {
	return []Entrant{
		{PlayerID: "u1", DisplayName: "Alice", Balls: []EntrantBall{{ID: "u1_0", Color: "#FF6B6B"}, {ID: "u1_1", Color: "#4ECDC4"}}},
		{PlayerID: "u2", DisplayName: "Bob", Balls: []EntrantBall{{ID: "u2_0", Color: "#45B7D1"}}},
	}
}

func TestNewMaterializesAllBalls(t *testing.T) {
	r := newTestRace(twoPlayerEntrants())

	if len(r.Balls) != 3 {
		t.Fatalf("Expected 3 balls, got %d", len(r.Balls))
	}
	if r.Balls[0].ID != "u1_0" || r.Balls[2].ID != "u2_0" {
		t.Error("Ball order should follow entrant join order then purchase order")
	}
	if r.Status != StatusRunning {
		t.Error("New race should be running")
	}

	w := physics.DefaultWorld()
	for _, b := range r.Balls {
		if b.Pos.X < 100 || b.Pos.X > w.Width-100 {
			t.Errorf("Ball %s spawned outside the spawn band: X=%f", b.ID, b.Pos.X)
		}
		if b.Pos.Y >= w.FinishY {
			t.Errorf("Ball %s spawned past the finish strip: Y=%f", b.ID, b.Pos.Y)
		}
	}
}

func TestWinnerIsEarliestFinisher(t *testing.T) {
	r := newTestRace(twoPlayerEntrants())
	now := raceStart.Add(10 * time.Second)

	r.Balls[1].Finished = true
	r.Balls[1].FinishTime = now.Add(-2 * time.Second)
	r.Balls[2].Finished = true
	r.Balls[2].FinishTime = now.Add(-5 * time.Second)

	r.Tick(now)

	if r.Winner == nil {
		t.Fatal("Expected a winner")
	}
	if r.Winner.BallID != "u2_0" {
		t.Errorf("Expected earliest finisher u2_0 to win, got %s", r.Winner.BallID)
	}
	if r.Winner.PlayerName != "Bob" {
		t.Errorf("Winner should carry the player name, got %q", r.Winner.PlayerName)
	}
}

func TestWinnerTieKeepsInputOrder(t *testing.T) {
	r := newTestRace(twoPlayerEntrants())
	now := raceStart.Add(10 * time.Second)
	stamp := now.Add(-time.Second)

	r.Balls[0].Finished = true
	r.Balls[0].FinishTime = stamp
	r.Balls[2].Finished = true
	r.Balls[2].FinishTime = stamp

	r.Tick(now)

	if r.Winner == nil || r.Winner.BallID != "u1_0" {
		t.Errorf("On a tie the earlier ball in input order wins, got %+v", r.Winner)
	}
}

func TestPenalizedBallNeverWins(t *testing.T) {
	r := newTestRace(twoPlayerEntrants())
	now := raceStart.Add(10 * time.Second)

	// Fallen ball with a penalty stamp in the future
	r.Balls[0].Finished = true
	r.Balls[0].FinishTime = now.Add(60 * time.Second)

	r.Tick(now)
	if r.Winner != nil {
		t.Fatalf("Penalized ball must not win, got %+v", r.Winner)
	}

	// A real finisher still wins over it
	r.Balls[2].Finished = true
	r.Balls[2].FinishTime = now
	r.Tick(now.Add(time.Second))
	if r.Winner == nil || r.Winner.BallID != "u2_0" {
		t.Errorf("Real finisher should win, got %+v", r.Winner)
	}
}

func TestGraceWindowDelaysTeardown(t *testing.T) {
	r := newTestRace(twoPlayerEntrants())
	now := raceStart.Add(10 * time.Second)

	r.Balls[0].Finished = true
	r.Balls[0].FinishTime = now

	if r.Tick(now) {
		t.Fatal("Race must keep running through the grace window")
	}
	if r.Winner == nil {
		t.Fatal("Winner should be visible during the grace window")
	}
	if r.Tick(now.Add(2 * time.Second)) {
		t.Fatal("Grace window has not elapsed yet")
	}
	if !r.Tick(now.Add(3 * time.Second)) {
		t.Fatal("Race should finish once the grace window elapses")
	}
	if r.Status != StatusFinished {
		t.Error("Status should be finished")
	}

	// Further ticks are inert
	if !r.Tick(now.Add(10 * time.Second)) {
		t.Error("Finished race should report finished on every tick")
	}
}

func TestHardTimeoutWithoutWinner(t *testing.T) {
	r := newTestRace(twoPlayerEntrants())

	// Park every ball so nothing ever finishes
	for _, b := range r.Balls {
		b.Pos = physics.Vec2{X: 400, Y: 100}
		b.Vel = physics.Vec2{}
	}

	if r.Tick(raceStart.Add(30 * time.Second)) {
		t.Fatal("Race should still be running before the hard timeout")
	}

	// 把球重新固定住，避免上面那次 tick 的位移影响后续断言
	r.Balls[0].Pos.Y = 300
	r.Balls[1].Pos.Y = 500
	r.Balls[2].Pos.Y = 400

	if !r.Tick(raceStart.Add(61 * time.Second)) {
		t.Fatal("Race should finish at the hard timeout")
	}
	if r.Winner != nil {
		t.Errorf("Timed-out race has no winner, got %+v", r.Winner)
	}

	results := r.Results()
	if len(results) != 3 {
		t.Fatalf("Results must cover every ball, got %d", len(results))
	}
	// Unfinished balls rank by furthest progress (largest Y) first
	for i := 1; i < len(results); i++ {
		if results[i-1].FinalPosition.Y < results[i].FinalPosition.Y {
			t.Errorf("Unfinished results out of order at %d: %f < %f",
				i, results[i-1].FinalPosition.Y, results[i].FinalPosition.Y)
		}
	}
}

func TestResultsRankFinishedBeforeUnfinished(t *testing.T) {
	r := newTestRace(twoPlayerEntrants())
	now := raceStart.Add(10 * time.Second)

	r.Balls[1].Finished = true
	r.Balls[1].FinishTime = now.Add(-time.Second)
	r.Balls[2].Finished = true
	r.Balls[2].FinishTime = now.Add(-3 * time.Second)
	r.Balls[0].Pos.Y = 700

	results := r.Results()
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	if results[0].BallID != "u2_0" || results[1].BallID != "u1_1" {
		t.Errorf("Finished balls should rank by finish time: got %s, %s", results[0].BallID, results[1].BallID)
	}
	if results[2].BallID != "u1_0" || results[2].Finished {
		t.Errorf("Unfinished ball should rank last: %+v", results[2])
	}
	if results[0].FinishTime == nil {
		t.Error("Finished entries must carry a finish time")
	}
	if results[2].FinishTime != nil {
		t.Error("Unfinished entries must not carry a finish time")
	}
}

func TestSnapshotAndSummary(t *testing.T) {
	r := newTestRace(twoPlayerEntrants())
	now := raceStart.Add(5 * time.Second)

	snap := r.Snapshot(now)
	if snap.RaceID != "race-1" {
		t.Errorf("Snapshot race ID wrong: %q", snap.RaceID)
	}
	if len(snap.Balls) != 3 || len(snap.Obstacles) != 1 {
		t.Errorf("Snapshot should carry 3 balls and 1 obstacle, got %d/%d", len(snap.Balls), len(snap.Obstacles))
	}
	if snap.TimeElapsed != 5000 {
		t.Errorf("Expected 5000ms elapsed, got %d", snap.TimeElapsed)
	}

	r.Balls[0].Finished = true
	r.Balls[0].FinishTime = now
	r.Tick(now.Add(4 * time.Second))

	summary := r.Summary()
	if summary.PlayerCount != 2 {
		t.Errorf("Summary should count 2 players, got %d", summary.PlayerCount)
	}
	if summary.Winner == nil || summary.Winner.BallID != "u1_0" {
		t.Errorf("Summary winner wrong: %+v", summary.Winner)
	}
	if len(summary.Results) != 3 {
		t.Errorf("Summary should rank every ball, got %d", len(summary.Results))
	}
	if summary.EndTime <= summary.StartTime {
		t.Error("Summary end time should be after start time")
	}
}

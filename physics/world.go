package physics

import "time"

// Vec2 is a position or velocity in world units.
type Vec2 struct {
	X float64
	Y float64
}

// Ball is one purchased token falling through the obstacle field.
// A ball is owned exclusively by the race that materialized it.
type Ball struct {
	ID         string
	PlayerID   string
	PlayerName string
	Color      string
	Pos        Vec2
	Vel        Vec2
	Finished   bool
	FinishTime time.Time // zero until finished; may lie in the future for penalized balls
}

type ObstacleKind string

const (
	KindPlatform ObstacleKind = "platform"
	KindMoving   ObstacleKind = "moving"
	KindFinish   ObstacleKind = "finish"
)

// Range bounds the horizontal oscillation of a moving platform.
type Range struct {
	Min float64
	Max float64
}

// Obstacle is an axis-aligned collidable rectangle. Only moving
// platforms mutate (their X) after generation; the finish strip is the
// distinguished win condition and never collides.
type Obstacle struct {
	ID     string
	Kind   ObstacleKind
	X      float64
	Y      float64
	Width  float64
	Height float64
	Color  string
	VelX   float64 // moving platforms only
	Range  Range   // moving platforms only
}

// World 物理世界常量。与 config.GameConfig 保持一致，
// 是生成器、步进器和渲染端共享的契约。
type World struct {
	Width          float64
	Height         float64
	Gravity        float64
	BallRadius     float64
	FinishY        float64
	WallBounce     float64
	BounceX        float64
	BounceY        float64
	DampingX       float64
	DampingY       float64
	OverflowMargin float64
	MaxDT          float64
	PenaltyDelay   time.Duration
}

// NewWorld fills in the tuned simulation constants around the
// configurable dimensions. Bounce factors are strictly below 1 so every
// collision loses energy and the simulation terminates.
func NewWorld(width, height, gravity, ballRadius, finishMargin float64) World {
	return World{
		Width:          width,
		Height:         height,
		Gravity:        gravity,
		BallRadius:     ballRadius,
		FinishY:        height - finishMargin,
		WallBounce:     0.6,
		BounceX:        0.7,
		BounceY:        0.6,
		DampingX:       0.999,
		DampingY:       0.9995,
		OverflowMargin: 200,
		MaxDT:          2,
		PenaltyDelay:   60 * time.Second,
	}
}

// DefaultWorld is the canonical 800x1200 world.
func DefaultWorld() World {
	return NewWorld(800, 1200, 0.5, 12, 100)
}

// nominalTick is the frame duration dt is normalized against: dt == 1
// means exactly one 60 FPS frame elapsed.
const nominalTick = 16.67 * float64(time.Millisecond)

// Dt converts elapsed wall-clock time into a step factor, clamped to
// maxDT so a stalled process cannot produce an unstable super-step.
// Tick debt beyond the clamp is dropped, not queued.
func Dt(elapsed time.Duration, maxDT float64) float64 {
	dt := float64(elapsed) / nominalTick
	if dt > maxDT {
		return maxDT
	}
	if dt < 0 {
		return 0
	}
	return dt
}

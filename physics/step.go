package physics

import (
	"math"
	"math/rand"
	"time"
)

// StepBall advances one ball by one tick. It reads the obstacle list but
// shares no mutable state with other balls, so the caller may step balls
// in any order. now is the tick's wall-clock time, used for finish
// stamps. rng injects the symmetry-breaking perturbation and must be the
// race's own source for reproducible tests.
func StepBall(b *Ball, obstacles []*Obstacle, dt float64, now time.Time, w World, rng *rand.Rand) {
	// Gravity, then light air resistance on both components.
	b.Vel.Y += w.Gravity * dt
	b.Vel.X *= w.DampingX
	b.Vel.Y *= w.DampingY

	b.Pos.X += b.Vel.X * dt
	b.Pos.Y += b.Vel.Y * dt

	r := w.BallRadius
	if b.Pos.X <= r {
		b.Pos.X = r
		b.Vel.X = math.Abs(b.Vel.X) * w.WallBounce
	} else if b.Pos.X >= w.Width-r {
		b.Pos.X = w.Width - r
		b.Vel.X = -math.Abs(b.Vel.X) * w.WallBounce
	}

	for _, o := range obstacles {
		if o.Kind == KindFinish {
			if !b.Finished && b.Pos.Y+r >= o.Y {
				b.Finished = true
				b.FinishTime = now
			}
			continue
		}
		ResolveCollision(b, o, w, rng)
	}

	// Safety clamp: a ball past the overflow margin is pinned and forced
	// finished with a penalty stamp so it can never win but stops costing
	// simulation work.
	if b.Pos.Y > w.Height+w.OverflowMargin {
		b.Pos.Y = w.Height + w.OverflowMargin
		b.Vel.Y = 0
		if !b.Finished {
			b.Finished = true
			b.FinishTime = now.Add(w.PenaltyDelay)
		}
	}
}

// ResolveCollision corrects a ball overlapping an obstacle along the
// axis of minimum overlap: position is moved just outside the closest
// edge and the matching velocity component is inverted and damped.
// Top hits get a small random horizontal kick so balls do not stack
// forever on a ledge. Returns whether a collision was resolved.
func ResolveCollision(b *Ball, o *Obstacle, w World, rng *rand.Rand) bool {
	r := w.BallRadius

	ballLeft := b.Pos.X - r
	ballRight := b.Pos.X + r
	ballTop := b.Pos.Y - r
	ballBottom := b.Pos.Y + r

	obstacleLeft := o.X
	obstacleRight := o.X + o.Width
	obstacleTop := o.Y
	obstacleBottom := o.Y + o.Height

	if ballRight <= obstacleLeft || ballLeft >= obstacleRight ||
		ballBottom <= obstacleTop || ballTop >= obstacleBottom {
		return false
	}

	overlapLeft := ballRight - obstacleLeft
	overlapRight := obstacleRight - ballLeft
	overlapTop := ballBottom - obstacleTop
	overlapBottom := obstacleBottom - ballTop

	minOverlap := math.Min(math.Min(overlapLeft, overlapRight), math.Min(overlapTop, overlapBottom))

	switch minOverlap {
	case overlapTop:
		b.Pos.Y = obstacleTop - r
		b.Vel.Y = -math.Abs(b.Vel.Y) * w.BounceY
		if rng != nil {
			b.Vel.X += (rng.Float64() - 0.5) * 2
		}
	case overlapBottom:
		b.Pos.Y = obstacleBottom + r
		b.Vel.Y = math.Abs(b.Vel.Y) * w.BounceY
	case overlapLeft:
		b.Pos.X = obstacleLeft - r
		b.Vel.X = -math.Abs(b.Vel.X) * w.BounceX
	default:
		b.Pos.X = obstacleRight + r
		b.Vel.X = math.Abs(b.Vel.X) * w.BounceX
	}

	return true
}

// AdvanceObstacles moves every oscillating platform by one tick. Runs
// once per obstacle per tick regardless of ball count, before any ball
// is stepped.
func AdvanceObstacles(obstacles []*Obstacle, dt float64) {
	for _, o := range obstacles {
		if o.Kind != KindMoving {
			continue
		}

		o.X += o.VelX * dt

		if o.X <= o.Range.Min || o.X >= o.Range.Max {
			o.VelX = -o.VelX
			o.X = math.Max(o.Range.Min, math.Min(o.Range.Max, o.X))
		}
	}
}

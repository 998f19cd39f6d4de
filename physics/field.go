package physics

import (
	"fmt"
	"math/rand"
)

// Field generation layout. Level platforms are blue, extra statics
// purple, movers red and the finish strip green per the renderer
// contract.
const (
	platformLevels  = 6
	levelSpacing    = 150
	levelTopOffset  = 120
	platformHeight  = 20
	sideMargin      = 50
	gapMin          = 120
	gapMax          = 200
	movingCount     = 2
	movingWidth     = 80
	extraStatics    = 3
	finishHeight    = 15
	levelRetryLimit = 8
)

const (
	colorPlatform = "#4f46e5"
	colorStatic   = "#7c3aed"
	colorMoving   = "#dc2626"
	colorFinish   = "#10b981"
)

// GenerateField produces a randomized obstacle layout for one race:
// platformLevels rows of 2-3 platforms separated by traversable gaps, a
// few extra static platforms, two oscillating platforms and exactly one
// finish strip spanning the full width at w.FinishY. Deterministic for a
// seeded rng; output order is stable.
func GenerateField(w World, rng *rand.Rand) []*Obstacle {
	obstacles := make([]*Obstacle, 0, platformLevels*3+movingCount+extraStatics+1)

	for level := 1; level <= platformLevels; level++ {
		obstacles = append(obstacles, generateLevel(w, level, rng)...)
	}

	for i := 0; i < movingCount; i++ {
		speed := 0.8 + rng.Float64()*0.7
		if rng.Float64() > 0.5 {
			speed = -speed
		}
		obstacles = append(obstacles, &Obstacle{
			ID:     fmt.Sprintf("moving_%d", i),
			Kind:   KindMoving,
			X:      100 + float64(i)*300,
			Y:      250 + float64(i)*300,
			Width:  movingWidth,
			Height: platformHeight,
			Color:  colorMoving,
			VelX:   speed,
			Range:  Range{Min: sideMargin, Max: w.Width - sideMargin - movingWidth},
		})
	}

	for i := 0; i < extraStatics; i++ {
		obstacles = append(obstacles, &Obstacle{
			ID:     fmt.Sprintf("static_%d", i),
			Kind:   KindPlatform,
			X:      200 + rng.Float64()*400,
			Y:      200 + float64(i)*200,
			Width:  60 + rng.Float64()*40,
			Height: 15,
			Color:  colorStatic,
		})
	}

	obstacles = append(obstacles, &Obstacle{
		ID:     "finish_line",
		Kind:   KindFinish,
		X:      0,
		Y:      w.FinishY,
		Width:  w.Width,
		Height: finishHeight,
		Color:  colorFinish,
	})

	return obstacles
}

// generateLevel lays out one row of platforms whose combined width plus
// the randomized gaps fills the usable width. The gap between adjacent
// platforms must exceed the ball diameter or the level is rerolled;
// after levelRetryLimit attempts the gap is widened directly so the
// invariant holds for any configured radius.
func generateLevel(w World, level int, rng *rand.Rand) []*Obstacle {
	y := float64(levelTopOffset + level*levelSpacing)
	usable := w.Width - 2*sideMargin

	for attempt := 0; ; attempt++ {
		numPlatforms := 2
		if rng.Float64() <= 0.3 {
			numPlatforms = 3
		}

		gapTotal := gapMin + rng.Float64()*(gapMax-gapMin)
		gapEach := gapTotal / float64(numPlatforms-1)
		if gapEach <= 2*w.BallRadius {
			if attempt < levelRetryLimit {
				continue
			}
			gapEach = 2*w.BallRadius + 1
			gapTotal = gapEach * float64(numPlatforms-1)
		}

		platformWidth := (usable - gapTotal) / float64(numPlatforms)
		if platformWidth <= 0 {
			if attempt < levelRetryLimit {
				continue
			}
			numPlatforms = 2
			gapTotal = 2*w.BallRadius + 1
			gapEach = gapTotal
			platformWidth = (usable - gapTotal) / 2
		}

		obstacles := make([]*Obstacle, 0, numPlatforms)
		for i := 0; i < numPlatforms; i++ {
			obstacles = append(obstacles, &Obstacle{
				ID:     fmt.Sprintf("platform_%d_%d", level, i),
				Kind:   KindPlatform,
				X:      sideMargin + float64(i)*(platformWidth+gapEach),
				Y:      y,
				Width:  platformWidth,
				Height: platformHeight,
				Color:  colorPlatform,
			})
		}
		return obstacles
	}
}

package physics

import (
	"math/rand"
	"strings"
	"testing"
)

func TestGenerateFieldDeterministicForSeed(t *testing.T) {
	w := DefaultWorld()

	a := GenerateField(w, rand.New(rand.NewSource(42)))
	b := GenerateField(w, rand.New(rand.NewSource(42)))

	if len(a) != len(b) {
		t.Fatalf("Same seed produced different obstacle counts: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if *a[i] != *b[i] {
			t.Errorf("Obstacle %d differs between identical seeds: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerateFieldHasSingleFinishStrip(t *testing.T) {
	w := DefaultWorld()
	obstacles := GenerateField(w, rand.New(rand.NewSource(7)))

	var finish *Obstacle
	count := 0
	for _, o := range obstacles {
		if o.Kind == KindFinish {
			finish = o
			count++
		}
	}

	if count != 1 {
		t.Fatalf("Expected exactly one finish strip, got %d", count)
	}
	if finish.X != 0 || finish.Width != w.Width {
		t.Errorf("Finish strip should span the full width, got X=%f W=%f", finish.X, finish.Width)
	}
	if finish.Y != w.FinishY {
		t.Errorf("Finish strip should sit at FinishY=%f, got %f", w.FinishY, finish.Y)
	}

	// Nothing collidable below the strip
	for _, o := range obstacles {
		if o.Kind != KindFinish && o.Y >= finish.Y {
			t.Errorf("Obstacle %s sits below the finish strip at Y=%f", o.ID, o.Y)
		}
	}
}

func TestGenerateFieldGapsPassTheBall(t *testing.T) {
	w := DefaultWorld()

	// 每个种子都要满足间隙不变式，抽查一批
	for seed := int64(0); seed < 50; seed++ {
		obstacles := GenerateField(w, rand.New(rand.NewSource(seed)))

		byLevel := make(map[float64][]*Obstacle)
		for _, o := range obstacles {
			if strings.HasPrefix(o.ID, "platform_") {
				byLevel[o.Y] = append(byLevel[o.Y], o)
			}
		}

		for y, row := range byLevel {
			for i := 1; i < len(row); i++ {
				gap := row[i].X - (row[i-1].X + row[i-1].Width)
				if gap <= 2*w.BallRadius {
					t.Fatalf("Seed %d level Y=%f: gap %f does not pass a ball of radius %f",
						seed, y, gap, w.BallRadius)
				}
			}
		}
	}
}

func TestGenerateFieldMoverRanges(t *testing.T) {
	w := DefaultWorld()
	obstacles := GenerateField(w, rand.New(rand.NewSource(3)))

	movers := 0
	for _, o := range obstacles {
		if o.Kind != KindMoving {
			continue
		}
		movers++
		if o.VelX == 0 {
			t.Errorf("Mover %s has zero velocity", o.ID)
		}
		if o.Range.Min >= o.Range.Max {
			t.Errorf("Mover %s has an empty range: %+v", o.ID, o.Range)
		}
		if o.X < o.Range.Min || o.X > o.Range.Max {
			t.Errorf("Mover %s spawns outside its range: X=%f %+v", o.ID, o.X, o.Range)
		}
	}
	if movers != movingCount {
		t.Errorf("Expected %d movers, got %d", movingCount, movers)
	}
}

func TestGenerateFieldUniqueIDs(t *testing.T) {
	w := DefaultWorld()
	obstacles := GenerateField(w, rand.New(rand.NewSource(11)))

	seen := make(map[string]bool)
	for _, o := range obstacles {
		if seen[o.ID] {
			t.Errorf("Duplicate obstacle ID %q", o.ID)
		}
		seen[o.ID] = true
	}
}

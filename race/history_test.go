package race

import (
	"fmt"
	"testing"

	"github.com/wfunc/ballrace/models"
)

func TestHistoryEvictsOldestBeyondCapacity(t *testing.T) {
	h := NewHistory(10)

	for i := 0; i < 15; i++ {
		h.Add(models.RaceSummary{RaceID: fmt.Sprintf("race-%d", i)})
	}

	if h.Len() != 10 {
		t.Fatalf("Expected 10 entries, got %d", h.Len())
	}

	all := h.All()
	if all[0].RaceID != "race-5" {
		t.Errorf("Oldest surviving entry should be race-5, got %s", all[0].RaceID)
	}
	if all[9].RaceID != "race-14" {
		t.Errorf("Newest entry should be race-14, got %s", all[9].RaceID)
	}
}

func TestHistoryAllReturnsCopy(t *testing.T) {
	h := NewHistory(10)
	h.Add(models.RaceSummary{RaceID: "race-0"})

	all := h.All()
	all[0].RaceID = "mutated"

	if h.All()[0].RaceID != "race-0" {
		t.Error("All must return a copy, not the internal slice")
	}
}

func TestHistoryMinimumCapacity(t *testing.T) {
	h := NewHistory(0)
	h.Add(models.RaceSummary{RaceID: "race-0"})
	h.Add(models.RaceSummary{RaceID: "race-1"})

	if h.Len() != 1 {
		t.Fatalf("Zero capacity should clamp to 1, got %d entries", h.Len())
	}
	if h.All()[0].RaceID != "race-1" {
		t.Errorf("Only the newest entry should survive, got %s", h.All()[0].RaceID)
	}
}

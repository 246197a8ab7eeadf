package dispatch

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"quickaid/go-backend/pkg/models"
)

func helperAt(identity string, lat, lng, rating float64, updatedAt time.Time, caps ...string) models.Party {
	capSet := make(map[string]struct{}, len(caps))
	for _, c := range caps {
		capSet[c] = struct{}{}
	}
	return models.Party{
		Identity:     identity,
		Role:         models.RoleHelper,
		DisplayName:  identity,
		Capabilities: capSet,
		Location:     &models.Location{Lat: lat, Lng: lng, UpdatedAt: updatedAt},
		Available:    true,
		Rating:       rating,
	}
}

func TestRankOrdersByDistance(t *testing.T) {
	now := time.Now().UTC()
	helpers := []models.Party{
		helperAt("far", 13.1187, 80.2707, 5, now, "bike"),
		helperAt("near", 13.0917, 80.2707, 3, now, "bike"),
	}

	got := Rank(helpers, "bike", 13.0827, 80.2707, 5, 25, 3)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Identity != "near" || got[1].Identity != "far" {
		t.Fatalf("expected nearest first regardless of rating, got %+v", got)
	}
}

func TestRankFiltersIneligibleHelpers(t *testing.T) {
	now := time.Now().UTC()
	unavailable := helperAt("busy", 13.0917, 80.2707, 5, now, "bike")
	unavailable.Available = false
	unlocated := helperAt("nowhere", 0, 0, 5, now, "bike")
	unlocated.Location = nil

	helpers := []models.Party{
		unavailable,
		unlocated,
		helperAt("wrongskill", 13.0917, 80.2707, 5, now, "tow"),
		helperAt("outofrange", 13.5000, 80.2707, 5, now, "bike"), // ~46 km away
		helperAt("good", 13.0917, 80.2707, 2, now, "bike"),
	}

	got := Rank(helpers, "bike", 13.0827, 80.2707, 5, 25, 10)
	if len(got) != 1 || got[0].Identity != "good" {
		t.Fatalf("expected only the eligible helper, got %+v", got)
	}
}

func TestRankTieBreaksByRatingThenFreshness(t *testing.T) {
	now := time.Now().UTC()
	helpers := []models.Party{
		helperAt("lowrated", 13.0917, 80.2707, 3.0, now, "bike"),
		helperAt("highrated", 13.0917, 80.2707, 4.9, now, "bike"),
		helperAt("stale", 13.0927, 80.2707, 4.0, now.Add(-time.Hour), "bike"),
		helperAt("fresh", 13.0927, 80.2707, 4.0, now, "bike"),
	}

	got := Rank(helpers, "bike", 13.0827, 80.2707, 5, 25, 10)
	if len(got) != 4 {
		t.Fatalf("expected 4 candidates, got %d", len(got))
	}
	if got[0].Identity != "highrated" || got[1].Identity != "lowrated" {
		t.Fatalf("expected rating tie-break at equal distance, got %+v", got)
	}
	if got[2].Identity != "fresh" || got[3].Identity != "stale" {
		t.Fatalf("expected freshness tie-break at equal distance and rating, got %+v", got)
	}
}

func TestRankDeterministicAcrossCalls(t *testing.T) {
	now := time.Now().UTC()
	var helpers []models.Party
	for i := 0; i < 30; i++ {
		helpers = append(helpers, helperAt(fmt.Sprintf("h%02d", i), 13.0917, 80.2707, 4.0, now, "bike"))
	}

	first := Rank(helpers, "bike", 13.0827, 80.2707, 5, 25, 10)
	for i := 0; i < 5; i++ {
		again := Rank(helpers, "bike", 13.0827, 80.2707, 5, 25, 10)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("rank not stable across calls: %+v vs %+v", first, again)
		}
	}
}

func TestRankCapAppliedBeforeLimit(t *testing.T) {
	now := time.Now().UTC()
	var helpers []models.Party
	for i := 0; i < 40; i++ {
		helpers = append(helpers, helperAt(fmt.Sprintf("h%02d", i), 13.0917, 80.2707, 4.0, now, "bike"))
	}

	got := Rank(helpers, "bike", 13.0827, 80.2707, 5, 25, 100)
	if len(got) != 25 {
		t.Fatalf("expected candidate cap of 25, got %d", len(got))
	}
}

func TestRankNormalizesRequiredCapability(t *testing.T) {
	now := time.Now().UTC()
	helpers := []models.Party{helperAt("h1", 13.0917, 80.2707, 4.0, now, "bike")}

	got := Rank(helpers, "  BIKE ", 13.0827, 80.2707, 5, 25, 3)
	if len(got) != 1 {
		t.Fatalf("expected capability match after normalization, got %+v", got)
	}
	if got := Rank(helpers, "   ", 13.0827, 80.2707, 5, 25, 3); got != nil {
		t.Fatalf("expected nil for empty capability, got %+v", got)
	}
}

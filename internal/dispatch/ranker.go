package dispatch

import (
	"sort"
	"strings"

	"quickaid/go-backend/internal/geo"
	"quickaid/go-backend/pkg/models"
)

// Rank filters the helper snapshot down to available, located, capable
// helpers within radiusKm of the origin and orders them: nearest first, then
// higher-rated, then most recently located. A trailing identity compare keeps
// the order stable for identical keys. The result is capped at cap before
// limit is applied so cost stays bounded under a large helper population.
func Rank(helpers []models.Party, requiredCapability string, originLat, originLng, radiusKm float64, maxCandidates, limit int) []models.Candidate {
	requiredCapability = strings.ToLower(strings.TrimSpace(requiredCapability))
	if requiredCapability == "" || limit < 1 {
		return nil
	}

	type scored struct {
		party    models.Party
		distance float64
	}
	eligible := make([]scored, 0, len(helpers))
	for _, h := range helpers {
		if !h.Available || h.Location == nil || !h.HasCapability(requiredCapability) {
			continue
		}
		d := geo.DistanceKm(originLat, originLng, h.Location.Lat, h.Location.Lng)
		if d > radiusKm {
			continue
		}
		eligible = append(eligible, scored{party: h, distance: d})
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.party.Rating != b.party.Rating {
			return a.party.Rating > b.party.Rating
		}
		if !a.party.Location.UpdatedAt.Equal(b.party.Location.UpdatedAt) {
			return a.party.Location.UpdatedAt.After(b.party.Location.UpdatedAt)
		}
		return a.party.Identity < b.party.Identity
	})

	if maxCandidates > 0 && len(eligible) > maxCandidates {
		eligible = eligible[:maxCandidates]
	}
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}

	out := make([]models.Candidate, 0, len(eligible))
	for _, e := range eligible {
		out = append(out, models.Candidate{Identity: e.party.Identity, DistanceKm: e.distance})
	}
	return out
}

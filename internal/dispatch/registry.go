package dispatch

import (
	"math"
	"strings"
	"sync"
	"time"

	"quickaid/go-backend/pkg/models"
)

const (
	placeholderDisplayName = "Anonymous"
	defaultRating          = 4.5
	minRating              = 0
	maxRating              = 5
)

// Registry holds the live Party for every open connection. Parties are
// created on handshake, mutated by availability and location events, and
// removed on disconnect; nothing survives a disconnect.
type Registry struct {
	mu      sync.RWMutex
	parties map[string]*models.Party
}

func NewRegistry() *Registry {
	return &Registry{parties: make(map[string]*models.Party)}
}

// UpsertOnHandshake creates or replaces the Party for identity. Malformed
// input is coerced, never rejected: capabilities are trimmed, lower-cased and
// de-duplicated, a blank name falls back to a placeholder, and an
// out-of-range or non-finite rating falls back to the default.
func (r *Registry) UpsertOnHandshake(identity string, role models.Role, name string, capabilities []string, rating float64) models.Party {
	caps := make(map[string]struct{}, len(capabilities))
	for _, c := range capabilities {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		caps[c] = struct{}{}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = placeholderDisplayName
	}
	if math.IsNaN(rating) || math.IsInf(rating, 0) || rating < minRating || rating > maxRating {
		rating = defaultRating
	}
	if role != models.RoleHelper {
		role = models.RoleSeeker
	}

	party := &models.Party{
		Identity:     identity,
		Role:         role,
		DisplayName:  name,
		Capabilities: caps,
		Available:    true,
		Rating:       rating,
	}

	r.mu.Lock()
	r.parties[identity] = party
	r.mu.Unlock()
	return *party
}

// SetAvailability is a no-op for unknown identities.
func (r *Registry) SetAvailability(identity string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.parties[identity]; ok {
		p.Available = available
	}
}

// SetLocation replaces the party's location and freshness timestamp. Unknown
// identities and non-finite coordinates are ignored.
func (r *Registry) SetLocation(identity string, lat, lng float64, now time.Time) {
	if !validCoordinate(lat, lng) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.parties[identity]; ok {
		p.Location = &models.Location{Lat: lat, Lng: lng, UpdatedAt: now}
	}
}

func (r *Registry) Remove(identity string) {
	r.mu.Lock()
	delete(r.parties, identity)
	r.mu.Unlock()
}

// Get returns a snapshot of the party, if connected.
func (r *Registry) Get(identity string) (models.Party, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parties[identity]
	if !ok {
		return models.Party{}, false
	}
	return snapshotParty(p), true
}

// Helpers returns a snapshot of every connected helper. Consumed by the
// ranker; mutations after the call are not reflected.
func (r *Registry) Helpers() []models.Party {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Party, 0, len(r.parties))
	for _, p := range r.parties {
		if p.Role != models.RoleHelper {
			continue
		}
		out = append(out, snapshotParty(p))
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.parties)
}

func snapshotParty(p *models.Party) models.Party {
	out := *p
	if p.Location != nil {
		loc := *p.Location
		out.Location = &loc
	}
	caps := make(map[string]struct{}, len(p.Capabilities))
	for c := range p.Capabilities {
		caps[c] = struct{}{}
	}
	out.Capabilities = caps
	return out
}

func validCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

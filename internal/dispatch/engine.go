// Package dispatch implements the proximity dispatch and
// acceptance-arbitration engine: the registry of connected parties, the
// candidate ranker, the request lifecycle state machine, and the fan-out
// orchestration that ties them together.
package dispatch

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quickaid/go-backend/internal/observability"
	"quickaid/go-backend/internal/platform/ratelimiter"
	"quickaid/go-backend/pkg/models"
)

// Outbound notification methods, delivered over a party's stream.
const (
	MethodIncoming  = "dispatch.incoming"
	MethodSummary   = "dispatch.summary"
	MethodAccepted  = "dispatch.accepted"
	MethodTaken     = "dispatch.taken"
	MethodCancelled = "dispatch.cancelled"
	MethodResolved  = "dispatch.resolved"
)

// Notifier delivers an outbound notification to one party. Delivery is
// best-effort; the engine never learns whether it landed.
type Notifier interface {
	Publish(identity, method string, payload any)
}

type Config struct {
	RadiusKm      float64
	DispatchWidth int
	CandidateCap  int
	PostCooldown  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RadiusKm:      5,
		DispatchWidth: 3,
		CandidateCap:  25,
		PostCooldown:  5 * time.Second,
	}
}

// Engine owns all dispatch state for one process. Every inbound event is
// serialized behind a single mutex, which is what makes "first helper to
// accept wins" well-defined: no two events ever observe the stores
// concurrently.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	registry *Registry
	requests *RequestStore
	cooldown *ratelimiter.CooldownLimiter
	notifier Notifier
	logger   *slog.Logger

	now          func() time.Time
	newRequestID func() string
}

func NewEngine(cfg Config, notifier Notifier, logger *slog.Logger) *Engine {
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = DefaultConfig().RadiusKm
	}
	if cfg.DispatchWidth < 1 {
		cfg.DispatchWidth = 1
	}
	if cfg.CandidateCap < 1 {
		cfg.CandidateCap = DefaultConfig().CandidateCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		registry: NewRegistry(),
		requests: NewRequestStore(),
		cooldown: ratelimiter.New(cfg.PostCooldown, 10*time.Minute),
		notifier: notifier,
		logger:   logger,
		now: func() time.Time {
			return time.Now().UTC()
		},
		newRequestID: func() string {
			return "req_" + uuid.NewString()
		},
	}
}

// Handshake registers a fresh Party for the connection identity.
func (e *Engine) Handshake(identity string, role models.Role, name string, capabilities []string, rating float64) models.Party {
	e.mu.Lock()
	defer e.mu.Unlock()
	party := e.registry.UpsertOnHandshake(identity, role, name, capabilities, rating)
	e.logger.Info("party connected", "identity", identity, "role", party.Role)
	return party
}

func (e *Engine) SetAvailability(identity string, available bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.SetAvailability(identity, available)
}

func (e *Engine) UpdateLocation(identity string, lat, lng float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.SetLocation(identity, lat, lng, e.now())
}

// Party returns a snapshot of the connected party, if any.
func (e *Engine) Party(identity string) (models.Party, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Get(identity)
}

// Request returns a snapshot of the request, if it exists.
func (e *Engine) Request(id string) (models.Request, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests.Get(id)
}

// PostRequest validates and creates a request, then runs the first dispatch
// round. addr is the caller's originating network address and keys the post
// cooldown. The returned request reflects the state after dispatch.
func (e *Engine) PostRequest(identity, addr, requiredCapability, note string, lat, lng float64) (models.Request, error) {
	started := time.Now()
	defer func() { observability.RecordEvent("post", time.Since(started)) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	caller, ok := e.registry.Get(identity)
	if !ok {
		observability.RecordPost("not_connected")
		return models.Request{}, ErrNotConnected
	}
	if caller.Role != models.RoleSeeker {
		observability.RecordPost("not_seeker")
		return models.Request{}, ErrNotSeeker
	}
	now := e.now()
	if !e.cooldown.Allow(addr, now) {
		observability.RecordPost("too_many_requests")
		return models.Request{}, ErrTooManyRequests
	}
	requiredCapability = strings.ToLower(strings.TrimSpace(requiredCapability))
	if requiredCapability == "" {
		observability.RecordPost("missing_skill")
		return models.Request{}, ErrMissingSkill
	}
	if !validCoordinate(lat, lng) {
		observability.RecordPost("missing_location")
		return models.Request{}, ErrMissingLocation
	}

	req := e.requests.Create(e.newRequestID(), identity, requiredCapability, lat, lng, strings.TrimSpace(note), now)
	reached := e.dispatchRound(req)
	observability.RecordPost("ok")
	e.logger.Info("request posted", "request_id", req.ID, "capability", requiredCapability, "reached", reached)

	out, _ := e.requests.Get(req.ID)
	return out, nil
}

// AcceptRequest arbitrates concurrent acceptances: the first helper to pass
// the guards is committed atomically and everyone else sees taken.
func (e *Engine) AcceptRequest(identity, requestID string) (models.Request, error) {
	started := time.Now()
	defer func() { observability.RecordEvent("accept", time.Since(started)) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	caller, ok := e.registry.Get(identity)
	if !ok {
		observability.RecordAccept("not_connected")
		return models.Request{}, ErrNotConnected
	}
	if caller.Role != models.RoleHelper {
		observability.RecordAccept("not_helper")
		return models.Request{}, ErrNotHelper
	}

	req, err := e.requests.Assign(requestID, models.AssignedHelper{
		Identity:    caller.Identity,
		DisplayName: caller.DisplayName,
	})
	if err != nil {
		observability.RecordAccept(Code(err))
		return models.Request{}, err
	}

	e.registry.SetAvailability(caller.Identity, false)
	e.notifier.Publish(req.SeekerIdentity, MethodAccepted, models.AcceptedNotice{
		RequestID:         req.ID,
		HelperIdentity:    caller.Identity,
		HelperDisplayName: caller.DisplayName,
	})
	for candidate := range req.RespondedTo {
		if candidate == caller.Identity {
			continue
		}
		e.notifier.Publish(candidate, MethodTaken, models.TakenNotice{RequestID: req.ID})
	}
	observability.RecordAccept("ok")
	e.logger.Info("request accepted", "request_id", req.ID, "helper", identity)
	return req, nil
}

// CancelRequest closes a request on behalf of its seeker and informs every
// helper that ever saw it, plus the assigned helper if there is one.
func (e *Engine) CancelRequest(identity, requestID string) (models.Request, error) {
	started := time.Now()
	defer func() { observability.RecordEvent("cancel", time.Since(started)) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.registry.Get(identity); !ok {
		return models.Request{}, ErrNotConnected
	}
	req, err := e.requests.Cancel(requestID, identity)
	if err != nil {
		return models.Request{}, err
	}

	notified := make(map[string]struct{}, len(req.RespondedTo)+1)
	for candidate := range req.RespondedTo {
		notified[candidate] = struct{}{}
	}
	if req.AssignedHelper != nil {
		notified[req.AssignedHelper.Identity] = struct{}{}
	}
	for target := range notified {
		e.notifier.Publish(target, MethodCancelled, models.CancelledNotice{RequestID: req.ID})
	}
	e.logger.Info("request cancelled", "request_id", req.ID)
	return req, nil
}

// ResolveRequest completes an accepted request. The assigned helper becomes
// available again and the seeker is informed.
func (e *Engine) ResolveRequest(identity, requestID string) (models.Request, error) {
	started := time.Now()
	defer func() { observability.RecordEvent("resolve", time.Since(started)) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.registry.Get(identity); !ok {
		return models.Request{}, ErrNotConnected
	}
	req, err := e.requests.Resolve(requestID, identity)
	if err != nil {
		return models.Request{}, err
	}

	e.registry.SetAvailability(identity, true)
	e.notifier.Publish(req.SeekerIdentity, MethodResolved, models.ResolvedNotice{RequestID: req.ID})
	e.logger.Info("request resolved", "request_id", req.ID, "helper", identity)
	return req, nil
}

// Disconnect removes the party and, if it was the assigned helper on any
// accepted request, reopens those requests and immediately re-runs dispatch
// with a fresh ranking.
func (e *Engine) Disconnect(identity string) {
	started := time.Now()
	defer func() { observability.RecordEvent("disconnect", time.Since(started)) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	assigned := e.requests.AcceptedByHelper(identity)
	e.registry.Remove(identity)

	for _, requestID := range assigned {
		req, ok := e.requests.Reopen(requestID)
		if !ok {
			continue
		}
		observability.RecordReopen()
		reached := e.dispatchRound(req)
		e.logger.Info("request reopened after helper loss", "request_id", requestID, "helper", identity, "reached", reached)
	}
	e.logger.Info("party disconnected", "identity", identity)
}

// dispatchRound ranks candidates for the request, records them, notifies
// each one, and sends the seeker a summary. Caller must hold e.mu.
func (e *Engine) dispatchRound(req models.Request) int {
	candidates := Rank(
		e.registry.Helpers(),
		req.RequiredCapability,
		req.OriginLat,
		req.OriginLng,
		e.cfg.RadiusKm,
		e.cfg.CandidateCap,
		e.cfg.DispatchWidth,
	)
	e.requests.MarkDispatched(req.ID, candidates)

	for _, c := range candidates {
		e.notifier.Publish(c.Identity, MethodIncoming, models.DispatchNotice{
			RequestID:          req.ID,
			RequiredCapability: req.RequiredCapability,
			OriginLat:          req.OriginLat,
			OriginLng:          req.OriginLng,
			DistanceKm:         c.DistanceKm,
			Note:               req.Note,
			CreatedAt:          req.CreatedAt,
		})
	}
	e.notifier.Publish(req.SeekerIdentity, MethodSummary, models.DispatchSummary{
		RequestID: req.ID,
		Reached:   len(candidates),
	})
	observability.RecordFanout(len(candidates))
	return len(candidates)
}

package dispatch

import (
	"sync"
	"time"

	"quickaid/go-backend/pkg/models"
)

// RequestStore holds every live request keyed by id. Lifecycle transitions
// go through the mutating methods below; each one either fully commits or
// leaves the request untouched.
type RequestStore struct {
	mu       sync.RWMutex
	requests map[string]*models.Request
}

func NewRequestStore() *RequestStore {
	return &RequestStore{requests: make(map[string]*models.Request)}
}

func (s *RequestStore) Create(id, seekerIdentity, requiredCapability string, originLat, originLng float64, note string, now time.Time) models.Request {
	req := &models.Request{
		ID:                 id,
		SeekerIdentity:     seekerIdentity,
		RequiredCapability: requiredCapability,
		OriginLat:          originLat,
		OriginLng:          originLng,
		Note:               note,
		CreatedAt:          now,
		Status:             models.RequestPending,
		RespondedTo:        make(map[string]struct{}),
	}
	s.mu.Lock()
	s.requests[id] = req
	s.mu.Unlock()
	return snapshotRequest(req)
}

// Get returns a snapshot of the request, if it exists.
func (s *RequestStore) Get(id string) (models.Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return models.Request{}, false
	}
	return snapshotRequest(req), true
}

// MarkDispatched records a dispatch round: every candidate identity joins
// respondedTo (the set only ever grows) and, if at least one candidate was
// reached, a pending request moves to dispatched.
func (s *RequestStore) MarkDispatched(id string, candidates []models.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return
	}
	for _, c := range candidates {
		req.RespondedTo[c.Identity] = struct{}{}
	}
	if len(candidates) > 0 && req.Status == models.RequestPending {
		req.Status = models.RequestDispatched
	}
}

// Assign commits an acceptance: first caller to pass the guards wins. The
// guard check and the commit happen under one critical section, so two
// accept attempts for the same request can never both observe it unassigned.
func (s *RequestStore) Assign(id string, helper models.AssignedHelper) (models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return models.Request{}, ErrNotFound
	}
	if req.Status.IsTerminal() {
		return models.Request{}, ErrClosed
	}
	if req.AssignedHelper != nil {
		return models.Request{}, ErrTaken
	}
	h := helper
	req.AssignedHelper = &h
	req.Status = models.RequestAccepted
	return snapshotRequest(req), nil
}

// Cancel moves any non-terminal request to cancelled. Only the originating
// seeker may cancel.
func (s *RequestStore) Cancel(id, callerIdentity string) (models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return models.Request{}, ErrNotFound
	}
	if req.SeekerIdentity != callerIdentity {
		return models.Request{}, ErrNotOwner
	}
	if req.Status.IsTerminal() {
		return models.Request{}, ErrClosed
	}
	req.Status = models.RequestCancelled
	return snapshotRequest(req), nil
}

// Resolve moves an accepted request to resolved. Only the currently assigned
// helper may resolve.
func (s *RequestStore) Resolve(id, callerIdentity string) (models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return models.Request{}, ErrNotFound
	}
	if req.Status.IsTerminal() {
		return models.Request{}, ErrClosed
	}
	if req.Status != models.RequestAccepted || req.AssignedHelper == nil || req.AssignedHelper.Identity != callerIdentity {
		return models.Request{}, ErrNotAssignedHelper
	}
	req.Status = models.RequestResolved
	return snapshotRequest(req), nil
}

// Reopen clears the assignment of an accepted request and returns it to
// pending, ready for a fresh dispatch round. Used when the assigned helper's
// connection is lost.
func (s *RequestStore) Reopen(id string) (models.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.Status != models.RequestAccepted {
		return models.Request{}, false
	}
	req.AssignedHelper = nil
	req.Status = models.RequestPending
	return snapshotRequest(req), true
}

// AcceptedByHelper returns the ids of requests currently assigned to the
// helper, for helper-loss reopening.
func (s *RequestStore) AcceptedByHelper(helperIdentity string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for id, req := range s.requests {
		if req.Status == models.RequestAccepted && req.AssignedHelper != nil && req.AssignedHelper.Identity == helperIdentity {
			out = append(out, id)
		}
	}
	return out
}

func snapshotRequest(req *models.Request) models.Request {
	out := *req
	if req.AssignedHelper != nil {
		h := *req.AssignedHelper
		out.AssignedHelper = &h
	}
	responded := make(map[string]struct{}, len(req.RespondedTo))
	for identity := range req.RespondedTo {
		responded[identity] = struct{}{}
	}
	out.RespondedTo = responded
	return out
}

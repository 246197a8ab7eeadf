package models

import "time"

type Role string

const (
	RoleSeeker Role = "seeker"
	RoleHelper Role = "helper"
)

type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestDispatched RequestStatus = "dispatched"
	RequestAccepted   RequestStatus = "accepted"
	RequestCancelled  RequestStatus = "cancelled"
	RequestResolved   RequestStatus = "resolved"
)

// IsTerminal reports whether no further lifecycle transition is valid.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestCancelled || s == RequestResolved
}

type Location struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Party is one connected actor. It lives exactly as long as its connection;
// a reconnect produces a fresh Party under a fresh identity.
type Party struct {
	Identity     string              `json:"identity"`
	Role         Role                `json:"role"`
	DisplayName  string              `json:"display_name"`
	Capabilities map[string]struct{} `json:"-"`
	Location     *Location           `json:"location,omitempty"`
	Available    bool                `json:"available"`
	Rating       float64             `json:"rating"`
}

// HasCapability reports whether the party carries the normalized tag.
func (p Party) HasCapability(tag string) bool {
	_, ok := p.Capabilities[tag]
	return ok
}

type AssignedHelper struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
}

// Request is one posted need for help. Origin is the seeker's location
// snapshot at creation time and never moves afterwards.
type Request struct {
	ID                 string              `json:"id"`
	SeekerIdentity     string              `json:"seeker_identity"`
	RequiredCapability string              `json:"required_capability"`
	OriginLat          float64             `json:"origin_lat"`
	OriginLng          float64             `json:"origin_lng"`
	Note               string              `json:"note,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	Status             RequestStatus       `json:"status"`
	AssignedHelper     *AssignedHelper     `json:"assigned_helper,omitempty"`
	RespondedTo        map[string]struct{} `json:"-"`
}

// Candidate is one ranked helper for a request.
type Candidate struct {
	Identity   string  `json:"identity"`
	DistanceKm float64 `json:"distance_km"`
}

// DispatchNotice is sent to each helper a request is fanned out to.
type DispatchNotice struct {
	RequestID          string    `json:"request_id"`
	RequiredCapability string    `json:"required_capability"`
	OriginLat          float64   `json:"origin_lat"`
	OriginLng          float64   `json:"origin_lng"`
	DistanceKm         float64   `json:"distance_km"`
	Note               string    `json:"note,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// DispatchSummary tells the seeker how many helpers were reached in a round.
type DispatchSummary struct {
	RequestID string `json:"request_id"`
	Reached   int    `json:"reached"`
}

type AcceptedNotice struct {
	RequestID         string `json:"request_id"`
	HelperIdentity    string `json:"helper_identity"`
	HelperDisplayName string `json:"helper_display_name"`
}

type TakenNotice struct {
	RequestID string `json:"request_id"`
}

type CancelledNotice struct {
	RequestID string `json:"request_id"`
}

type ResolvedNotice struct {
	RequestID string `json:"request_id"`
}

package dispatch

import "errors"

var (
	ErrNotConnected      = errors.New("party is not connected")
	ErrNotSeeker         = errors.New("only seekers can perform this action")
	ErrNotHelper         = errors.New("only helpers can perform this action")
	ErrTooManyRequests   = errors.New("post cooldown is active")
	ErrMissingSkill      = errors.New("required capability is missing")
	ErrMissingLocation   = errors.New("origin location is missing or invalid")
	ErrNotFound          = errors.New("request not found")
	ErrClosed            = errors.New("request is closed")
	ErrTaken             = errors.New("request is already taken")
	ErrNotOwner          = errors.New("caller does not own this request")
	ErrNotAssignedHelper = errors.New("caller is not the assigned helper")
)

// Code maps an engine error to its stable wire identifier.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConnected):
		return "not_connected"
	case errors.Is(err, ErrNotSeeker):
		return "not_seeker"
	case errors.Is(err, ErrNotHelper):
		return "not_helper"
	case errors.Is(err, ErrTooManyRequests):
		return "too_many_requests"
	case errors.Is(err, ErrMissingSkill):
		return "missing_skill"
	case errors.Is(err, ErrMissingLocation):
		return "missing_location"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, ErrTaken):
		return "taken"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrNotAssignedHelper):
		return "not_assigned_helper"
	default:
		return "internal"
	}
}

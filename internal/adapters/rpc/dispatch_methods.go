package rpc

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strings"

	"quickaid/go-backend/pkg/models"
)

type handshakeParams struct {
	Role         string   `json:"role"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
	Rating       *float64 `json:"rating"`
}

type availabilityParams struct {
	Identity  string `json:"identity"`
	Available bool   `json:"available"`
}

type locationParams struct {
	Identity string  `json:"identity"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

type postRequestParams struct {
	Identity           string `json:"identity"`
	RequiredCapability string `json:"required_capability"`
	Note               string `json:"note"`
	Location           latLng `json:"location"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type requestRefParams struct {
	Identity  string `json:"identity"`
	RequestID string `json:"request_id"`
}

type okResult struct {
	OK bool `json:"ok"`
}

type handshakeResult struct {
	OK       bool   `json:"ok"`
	Identity string `json:"identity"`
}

type postRequestResult struct {
	OK        bool   `json:"ok"`
	RequestID string `json:"request_id"`
}

func (s *Server) dispatchRPC(r *http.Request, method string, params json.RawMessage) (any, *rpcError) {
	switch method {
	case "dispatch.handshake":
		var p handshakeParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, rpcInvalidParams()
		}
		identity, err := newIdentity()
		if err != nil {
			return nil, &rpcError{Code: -32099, Message: "identity generation failed"}
		}
		// Absent rating defers to the registry default.
		rating := math.NaN()
		if p.Rating != nil {
			rating = *p.Rating
		}
		s.engine.Handshake(identity, models.Role(strings.ToLower(strings.TrimSpace(p.Role))), p.Name, p.Capabilities, rating)
		return handshakeResult{OK: true, Identity: identity}, nil

	case "dispatch.setAvailability":
		var p availabilityParams
		if err := json.Unmarshal(params, &p); err != nil || p.Identity == "" {
			return nil, rpcInvalidParams()
		}
		s.engine.SetAvailability(p.Identity, p.Available)
		return okResult{OK: true}, nil

	case "dispatch.updateLocation":
		var p locationParams
		if err := json.Unmarshal(params, &p); err != nil || p.Identity == "" {
			return nil, rpcInvalidParams()
		}
		s.engine.UpdateLocation(p.Identity, p.Lat, p.Lng)
		return okResult{OK: true}, nil

	case "dispatch.postRequest":
		var p postRequestParams
		if err := json.Unmarshal(params, &p); err != nil || p.Identity == "" {
			return nil, rpcInvalidParams()
		}
		req, err := s.engine.PostRequest(p.Identity, remoteAddrKey(r), p.RequiredCapability, p.Note, p.Location.Lat, p.Location.Lng)
		if err != nil {
			return nil, mapEngineError(err)
		}
		return postRequestResult{OK: true, RequestID: req.ID}, nil

	case "dispatch.acceptRequest":
		var p requestRefParams
		if err := json.Unmarshal(params, &p); err != nil || p.Identity == "" || p.RequestID == "" {
			return nil, rpcInvalidParams()
		}
		if _, err := s.engine.AcceptRequest(p.Identity, p.RequestID); err != nil {
			return nil, mapEngineError(err)
		}
		return okResult{OK: true}, nil

	case "dispatch.cancelRequest":
		var p requestRefParams
		if err := json.Unmarshal(params, &p); err != nil || p.Identity == "" || p.RequestID == "" {
			return nil, rpcInvalidParams()
		}
		if _, err := s.engine.CancelRequest(p.Identity, p.RequestID); err != nil {
			return nil, mapEngineError(err)
		}
		return okResult{OK: true}, nil

	case "dispatch.resolveRequest":
		var p requestRefParams
		if err := json.Unmarshal(params, &p); err != nil || p.Identity == "" || p.RequestID == "" {
			return nil, rpcInvalidParams()
		}
		if _, err := s.engine.ResolveRequest(p.Identity, p.RequestID); err != nil {
			return nil, mapEngineError(err)
		}
		return okResult{OK: true}, nil

	default:
		return nil, rpcMethodNotFound()
	}
}

// remoteAddrKey extracts the originating network address used as the post
// cooldown key. Host part only, so a client's ephemeral ports do not dodge
// the cooldown.
func remoteAddrKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

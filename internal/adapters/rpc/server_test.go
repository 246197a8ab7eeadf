package rpc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quickaid/go-backend/internal/app"
	"quickaid/go-backend/internal/dispatch"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *dispatch.Engine, *app.NotificationHub) {
	t.Helper()
	hub := app.NewNotificationHub()
	engine := dispatch.NewEngine(dispatch.DefaultConfig(), hub, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := NewServer("127.0.0.1:0", engine, hub, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/rpc", srv.handleRPC)
	mux.HandleFunc("/rpc/stream", srv.handleStream)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return srv, ts, engine, hub
}

func callRPC(t *testing.T, ts *httptest.Server, method string, params any) rpcResponse {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(ts.URL+"/rpc", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("rpc call failed: %v", err)
	}
	defer resp.Body.Close()

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func handshake(t *testing.T, ts *httptest.Server, role string, caps []string) string {
	t.Helper()
	resp := callRPC(t, ts, "dispatch.handshake", map[string]any{
		"role":         role,
		"name":         "Test " + role,
		"capabilities": caps,
		"rating":       4.8,
	})
	if resp.Error != nil {
		t.Fatalf("handshake failed: %+v", resp.Error)
	}
	raw, _ := json.Marshal(resp.Result)
	var result handshakeResult
	if err := json.Unmarshal(raw, &result); err != nil || !result.OK || result.Identity == "" {
		t.Fatalf("unexpected handshake result: %v %v", resp.Result, err)
	}
	return result.Identity
}

func TestHealthEndpoint(t *testing.T) {
	_, ts, _, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health call failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestHandshakeMintsIdentity(t *testing.T) {
	_, ts, engine, _ := newTestServer(t)
	identity := handshake(t, ts, "helper", []string{"bike"})
	if !strings.HasPrefix(identity, "qa1") {
		t.Fatalf("unexpected identity format: %q", identity)
	}
	party, ok := engine.Party(identity)
	if !ok || !party.HasCapability("bike") {
		t.Fatalf("party not registered from handshake: %+v", party)
	}
}

func TestPostRequestHappyPath(t *testing.T) {
	_, ts, engine, _ := newTestServer(t)
	seeker := handshake(t, ts, "seeker", nil)
	helper := handshake(t, ts, "helper", []string{"bike"})
	callRPC(t, ts, "dispatch.updateLocation", map[string]any{"identity": helper, "lat": 13.0917, "lng": 80.2707})

	resp := callRPC(t, ts, "dispatch.postRequest", map[string]any{
		"identity":            seeker,
		"required_capability": "bike",
		"note":                "flat tyre",
		"location":            map[string]float64{"lat": 13.0827, "lng": 80.2707},
	})
	if resp.Error != nil {
		t.Fatalf("post failed: %+v", resp.Error)
	}
	raw, _ := json.Marshal(resp.Result)
	var result postRequestResult
	if err := json.Unmarshal(raw, &result); err != nil || !result.OK || result.RequestID == "" {
		t.Fatalf("unexpected post result: %v", resp.Result)
	}
	req, ok := engine.Request(result.RequestID)
	if !ok || len(req.RespondedTo) != 1 {
		t.Fatalf("request not dispatched: %+v", req)
	}
}

func TestErrorCodesSurfaceInData(t *testing.T) {
	_, ts, _, _ := newTestServer(t)
	helper := handshake(t, ts, "helper", []string{"bike"})

	resp := callRPC(t, ts, "dispatch.postRequest", map[string]any{
		"identity":            helper,
		"required_capability": "bike",
		"location":            map[string]float64{"lat": 13.0827, "lng": 80.2707},
	})
	if resp.Error == nil || resp.Error.Data != "not_seeker" {
		t.Fatalf("expected not_seeker error code, got %+v", resp.Error)
	}

	resp = callRPC(t, ts, "dispatch.acceptRequest", map[string]any{
		"identity":   helper,
		"request_id": "req_missing",
	})
	if resp.Error == nil || resp.Error.Data != "not_found" {
		t.Fatalf("expected not_found error code, got %+v", resp.Error)
	}
}

func TestInvalidEnvelopeRejected(t *testing.T) {
	_, ts, _, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/rpc", "application/json", strings.NewReader(`{"jsonrpc":"1.0","method":"x"}`))
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	defer resp.Body.Close()
	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error == nil || out.Error.Code != -32600 {
		t.Fatalf("expected invalid request error, got %+v", out.Error)
	}
}

func TestUnknownMethodRejected(t *testing.T) {
	_, ts, _, _ := newTestServer(t)
	resp := callRPC(t, ts, "dispatch.noSuchThing", map[string]any{})
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("expected method not found, got %+v", resp.Error)
	}
}

func TestStreamDeliversNotificationsAndDisconnects(t *testing.T) {
	_, ts, engine, hub := newTestServer(t)
	seeker := handshake(t, ts, "seeker", nil)
	helper := handshake(t, ts, "helper", []string{"bike"})
	callRPC(t, ts, "dispatch.updateLocation", map[string]any{"identity": helper, "lat": 13.0917, "lng": 80.2707})

	streamReq, err := http.NewRequest(http.MethodGet, ts.URL+"/rpc/stream?identity="+helper, nil)
	if err != nil {
		t.Fatalf("build stream request: %v", err)
	}
	streamResp, err := http.DefaultClient.Do(streamReq)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}

	lines := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(streamResp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
				lines <- strings.TrimPrefix(line, "data: ")
			}
		}
		close(lines)
	}()

	// Give the stream a moment to subscribe before dispatching.
	deadline := time.Now().Add(time.Second)
	for hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	resp := callRPC(t, ts, "dispatch.postRequest", map[string]any{
		"identity":            seeker,
		"required_capability": "bike",
		"location":            map[string]float64{"lat": 13.0827, "lng": 80.2707},
	})
	if resp.Error != nil {
		t.Fatalf("post failed: %+v", resp.Error)
	}

	select {
	case line := <-lines:
		var event app.NotificationEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			t.Fatalf("bad stream payload %q: %v", line, err)
		}
		if event.Method != dispatch.MethodIncoming {
			t.Fatalf("expected dispatch notice on helper stream, got %q", event.Method)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream notification")
	}

	streamResp.Body.Close()
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := engine.Party(helper); !ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("closing the stream should disconnect the party")
}

func TestStreamRequiresKnownIdentity(t *testing.T) {
	_, ts, _, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/rpc/stream?identity=ghost")
	if err != nil {
		t.Fatalf("stream call failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown identity, got %d", resp.StatusCode)
	}
}

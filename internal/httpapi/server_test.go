package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/fable/internal/config"
	"github.com/antoniostano/fable/internal/engine"
	"github.com/antoniostano/fable/internal/game"
	"github.com/antoniostano/fable/internal/observability"
	"github.com/antoniostano/fable/internal/policy"
	"github.com/antoniostano/fable/internal/protocol"
)

type fakeEngine struct {
	hub       *Hub
	actionErr error
	actions   []string
}

func (f *fakeEngine) HandleAction(ctx context.Context, actor, action string) (engine.ActionResult, error) {
	f.actions = append(f.actions, actor+": "+action)
	if f.actionErr != nil {
		return engine.ActionResult{}, f.actionErr
	}
	res := engine.ActionResult{EventID: "ev-1", Narration: "The door opens.", Next: actor, Round: 1}
	if f.hub != nil {
		f.hub.Narration(res.EventID, actor, action, res.Narration)
	}
	return res, nil
}

func (f *fakeEngine) AdvanceTurn(ctx context.Context) (string, int, error) { return "Bo", 2, nil }
func (f *fakeEngine) SetScene(ctx context.Context, scene string) error     { return nil }
func (f *fakeEngine) Reset(ctx context.Context) error                      { return nil }

func (f *fakeEngine) Status(ctx context.Context) (engine.Status, error) {
	return engine.Status{Scene: "A quiet road", Round: 3, Current: "Ava", Order: []string{"Ava", "Bo"}}, nil
}

func (f *fakeEngine) CharacterSheet(ctx context.Context, name string) (game.CharacterSheet, error) {
	if name != "Ava" {
		return game.CharacterSheet{}, fmt.Errorf("character %q: %w", name, engine.ErrNotFound)
	}
	return game.CharacterSheet{Skills: map[string]int{"Stealth": 2}}, nil
}

func (f *fakeEngine) Participants(ctx context.Context) ([]string, string, error) {
	return []string{"Ava", "Bo"}, "Ava", nil
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func newTestServer(t *testing.T, fe *fakeEngine, pinger *fakePinger) (*Server, *Hub) {
	t.Helper()
	metrics := observability.NewMetrics(fmt.Sprintf("fable_test_httpapi_%d", time.Now().UnixNano()))
	hub := NewHub(metrics)
	fe.hub = hub
	if pinger == nil {
		pinger = &fakePinger{}
	}
	cfg := config.Config{AllowAnyOrigin: true}
	auth := policy.NewAuthorizer("s3cret", []string{"Ava"})
	return New(cfg, fe, hub, pinger, auth, metrics), hub
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &fakeEngine{}, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/v1/game/status")
	if err != nil {
		t.Fatalf("GET status error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", res.StatusCode)
	}
	var status engine.Status
	if err := json.NewDecoder(res.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Current != "Ava" || status.Round != 3 {
		t.Fatalf("status = %+v", status)
	}
}

func TestCharacterEndpointNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &fakeEngine{}, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/v1/game/characters/Ghost")
	if err != nil {
		t.Fatalf("GET character error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status code = %d, want 404", res.StatusCode)
	}
}

func TestReadyzReportsStoreFailure(t *testing.T) {
	srv, _ := newTestServer(t, &fakeEngine{}, &fakePinger{err: errors.New("down")})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET readyz error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status code = %d, want 503", res.StatusCode)
	}
}

func TestAdminEndpointsRequirePrivilege(t *testing.T) {
	srv, _ := newTestServer(t, &fakeEngine{}, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	// No credentials.
	res, err := http.Post(ts.URL+"/v1/admin/advance", "application/json", nil)
	if err != nil {
		t.Fatalf("POST advance error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status code = %d, want 403", res.StatusCode)
	}

	// Shared token.
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/admin/advance", nil)
	req.Header.Set("X-Admin-Token", "s3cret")
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST advance error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d, want 200", res.StatusCode)
	}

	// Admin actor header.
	req, _ = http.NewRequest(http.MethodPost, ts.URL+"/v1/admin/scene", strings.NewReader(`{"scene":"A storm"}`))
	req.Header.Set("X-Actor", "Ava")
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST scene error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d, want 200", res.StatusCode)
	}
}

func TestGameWSActionBroadcastsNarration(t *testing.T) {
	fe := &fakeEngine{}
	srv, _ := newTestServer(t, fe, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/game/ws?actor=Ava"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	err = conn.WriteJSON(protocol.PlayerAction{Type: protocol.TypePlayerAction, Actor: "spoofed", Action: "opens the door"})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg protocol.Narration
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != protocol.TypeNarration || msg.Text != "The door opens." {
		t.Fatalf("message = %+v", msg)
	}
	if msg.Actor != "Ava" {
		t.Fatalf("actor = %q, want connection identity Ava", msg.Actor)
	}
	if len(fe.actions) != 1 || fe.actions[0] != "Ava: opens the door" {
		t.Fatalf("engine saw %v", fe.actions)
	}
}

func TestGameWSTurnViolationErrorEvent(t *testing.T) {
	fe := &fakeEngine{actionErr: &engine.TurnViolationError{Actor: "Bo", Current: "Ava"}}
	srv, _ := newTestServer(t, fe, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/game/ws?actor=Bo"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(protocol.PlayerAction{Type: protocol.TypePlayerAction, Actor: "Bo", Action: "acts"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg protocol.ErrorEvent
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != protocol.TypeErrorEvent || msg.Code != "turn_violation" {
		t.Fatalf("message = %+v", msg)
	}
}

func TestGameWSRequiresActor(t *testing.T) {
	srv, _ := newTestServer(t, &fakeEngine{}, nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/v1/game/ws")
	if err != nil {
		t.Fatalf("GET ws error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status code = %d, want 400", res.StatusCode)
	}
}

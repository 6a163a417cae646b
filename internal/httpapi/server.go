package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/fable/internal/config"
	"github.com/antoniostano/fable/internal/engine"
	"github.com/antoniostano/fable/internal/game"
	"github.com/antoniostano/fable/internal/narrator"
	"github.com/antoniostano/fable/internal/observability"
	"github.com/antoniostano/fable/internal/policy"
	"github.com/antoniostano/fable/internal/protocol"
)

// GameEngine is the slice of the engine the HTTP layer needs.
type GameEngine interface {
	HandleAction(ctx context.Context, actor, action string) (engine.ActionResult, error)
	AdvanceTurn(ctx context.Context) (string, int, error)
	SetScene(ctx context.Context, scene string) error
	Reset(ctx context.Context) error
	Status(ctx context.Context) (engine.Status, error)
	CharacterSheet(ctx context.Context, name string) (game.CharacterSheet, error)
	Participants(ctx context.Context) ([]string, string, error)
}

// Pinger reports store reachability for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg      config.Config
	game     GameEngine
	hub      *Hub
	store    Pinger
	auth     *policy.Authorizer
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, g GameEngine, hub *Hub, store Pinger, auth *policy.Authorizer, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		game:    g,
		hub:     hub,
		store:   store,
		auth:    auth,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser connections from the same origin
				// unless explicitly opened up; other sites must not be
				// able to drive the game channel.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/game/ws", s.handleGameWS)
	r.Get("/v1/game/status", s.handleStatus)
	r.Get("/v1/game/participants", s.handleParticipants)
	r.Get("/v1/game/characters/{name}", s.handleCharacter)

	r.Post("/v1/admin/advance", s.requireAdmin(s.handleAdvance))
	r.Post("/v1/admin/scene", s.requireAdmin(s.handleSetScene))
	r.Post("/v1/admin/reset", s.requireAdmin(s.handleReset))

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "store_unreachable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.game.Status(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "status_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleParticipants(w http.ResponseWriter, r *http.Request) {
	participants, current, err := s.game.Participants(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "participants_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"participants": participants,
		"current":      current,
	})
}

func (s *Server) handleCharacter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	sheet, err := s.game.CharacterSheet(r.Context(), name)
	if errors.Is(err, engine.ErrNotFound) {
		respondError(w, http.StatusNotFound, "character_not_found", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "character_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sheet)
}

// requireAdmin gates privileged handlers on the transport's notion of
// privilege: a shared token header or a configured admin actor name.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get("X-Admin-Token"))
		actor := strings.TrimSpace(r.Header.Get("X-Actor"))
		if !s.auth.Allow(actor, token) {
			respondError(w, http.StatusForbidden, "not_authorized", "admin privilege required")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	next, round, err := s.game.AdvanceTurn(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "advance_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"next": next, "round": round})
}

type sceneRequest struct {
	Scene string `json:"scene"`
}

func (s *Server) handleSetScene(w http.ResponseWriter, r *http.Request) {
	var req sceneRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Scene) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "scene text is required")
		return
	}
	if err := s.game.SetScene(r.Context(), req.Scene); err != nil {
		respondError(w, http.StatusInternalServerError, "scene_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.game.Reset(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "reset_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleGameWS(w http.ResponseWriter, r *http.Request) {
	actor := strings.TrimSpace(r.URL.Query().Get("actor"))
	if actor == "" {
		respondError(w, http.StatusBadRequest, "missing_actor", "query parameter actor is required")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	client := s.hub.register()
	defer s.hub.unregister(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-client.send:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.sendErrorEvent(client, "invalid_message", false, err.Error())
			continue
		}

		action, ok := parsed.(protocol.PlayerAction)
		if !ok {
			continue
		}
		// The connection's actor identity wins over whatever the
		// payload claims; the transport owns identity.
		action.Actor = actor
		s.dispatchAction(ctx, client, action)
	}

	cancel()
	<-writerDone
}

// dispatchAction runs one action through the engine and maps the error
// taxonomy to user-facing events. Broadcast side effects (narration,
// turn announcements) flow through the hub via the engine's notifier;
// only failures are answered on the acting client's queue.
func (s *Server) dispatchAction(ctx context.Context, client *hubClient, action protocol.PlayerAction) {
	_, err := s.game.HandleAction(ctx, action.Actor, action.Action)
	if err == nil {
		return
	}

	var tv *engine.TurnViolationError
	if errors.As(err, &tv) {
		s.sendErrorEvent(client, "turn_violation", false, tv.Error())
		return
	}
	var ne *engine.NarrationError
	if errors.As(err, &ne) {
		s.sendErrorEvent(client, "narration_failed", narrator.IsRetryable(ne.Err) || isDeadline(ne.Err),
			"the story could not advance; re-send your action to try again")
		return
	}
	var pe *engine.PersistenceError
	if errors.As(err, &pe) {
		s.sendErrorEvent(client, "not_persisted", false,
			"your action may not have been saved")
		return
	}
	s.sendErrorEvent(client, "internal", false, err.Error())
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// sendErrorEvent queues the event on the client's own writer; a full
// queue drops the event rather than blocking the read loop.
func (s *Server) sendErrorEvent(client *hubClient, code string, retryable bool, detail string) {
	s.hub.send(client, protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		Code:      code,
		Retryable: retryable,
		Detail:    detail,
	})
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

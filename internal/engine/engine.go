// Package engine orchestrates the game: every action event, admin
// operation and timeout tick is one unit of work that loads the session,
// mutates it and writes it back under a single-writer lock.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/fable/internal/game"
	"github.com/antoniostano/fable/internal/narrator"
	"github.com/antoniostano/fable/internal/observability"
	"github.com/antoniostano/fable/internal/prompt"
	"github.com/antoniostano/fable/internal/store"
)

const sceneDisplayMaxRunes = 200

// Notifier receives outbound game-channel side effects. The httpapi hub
// implements it; tests use a recording fake.
type Notifier interface {
	PlayerJoined(actor string)
	Narration(eventID, actor, action, text string)
	TurnAdvanced(next string, round int)
	TurnSkipped(skipped, next string, round int)
	SceneChanged(scene string)
}

// Config bounds the engine's behavior; zero values fall back to the
// defaults the original game shipped with.
type Config struct {
	HistoryWindow    int
	TurnTimeout      time.Duration
	NarrationTimeout time.Duration
	MaxTokens        int
	Temperature      float64
}

func (c Config) withDefaults() Config {
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = game.DefaultHistoryWindow
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = 24 * time.Hour
	}
	if c.NarrationTimeout <= 0 {
		c.NarrationTimeout = 60 * time.Second
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 600
	}
	if c.Temperature == 0 {
		c.Temperature = 0.6
	}
	return c
}

// Engine owns the session. mu serializes every load-mutate-persist
// cycle, narration call included: two events can never interleave their
// read-modify-write sequences, which also makes a scene edit during an
// in-flight narration impossible by construction.
type Engine struct {
	mu       sync.Mutex
	store    store.Store
	narrator narrator.Client
	notifier Notifier
	metrics  *observability.Metrics
	cfg      Config

	// now is swappable for tests.
	now func() time.Time
}

func New(st store.Store, client narrator.Client, notifier Notifier, metrics *observability.Metrics, cfg Config) *Engine {
	return &Engine{
		store:    st,
		narrator: client,
		notifier: notifier,
		metrics:  metrics,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

// load returns the persisted state or fresh defaults, normalized so the
// turn pointer and collections are always usable.
func (e *Engine) load(ctx context.Context) (*game.SessionState, error) {
	state, found, err := e.store.Load(ctx)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	if !found {
		state = game.NewSessionState(e.now())
	}
	state.Normalize(e.now())
	return state, nil
}

func (e *Engine) persist(ctx context.Context, state *game.SessionState) error {
	if err := e.store.Save(ctx, state); err != nil {
		log.Printf("persist failed: %v", err)
		return &PersistenceError{Err: err}
	}
	return nil
}

// ActionResult reports what one accepted action produced.
type ActionResult struct {
	EventID   string
	Narration string
	Joined    bool
	ExtraTurn bool
	Next      string
	Round     int
}

// HandleAction runs the full unit of work for one inbound action:
// load, auto-join, turn check, narration, directive application, turn
// resolution, persist. The lock is held for the whole cycle.
func (e *Engine) HandleAction(ctx context.Context, actor, action string) (ActionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.load(ctx)
	if err != nil {
		e.metrics.Actions.WithLabelValues("failed").Inc()
		return ActionResult{}, err
	}

	result := ActionResult{EventID: uuid.NewString()}

	// A first-seen actor joins before the turn check, so their very
	// first message both registers them and is then checked against the
	// updated roster. The join survives even if the action is rejected.
	if state.Join(actor) {
		result.Joined = true
		if err := e.persist(ctx, state); err != nil {
			e.metrics.Actions.WithLabelValues("failed").Inc()
			return ActionResult{}, err
		}
		e.notifier.PlayerJoined(actor)
	}

	current, _ := state.CurrentParticipant()
	if len(state.Participants) > 1 && actor != current {
		e.metrics.Actions.WithLabelValues("rejected").Inc()
		e.metrics.TurnViolations.Inc()
		return ActionResult{}, &TurnViolationError{Actor: actor, Current: current}
	}

	messages := prompt.Build(state, e.cfg.HistoryWindow, actor, action)
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.NarrationTimeout)
	defer cancel()

	started := e.now()
	res, err := e.narrator.Complete(callCtx, narrator.Request{
		Messages:    messages,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	})
	e.metrics.ObserveNarrationLatency(e.now().Sub(started))
	if err != nil {
		e.metrics.Actions.WithLabelValues("failed").Inc()
		return ActionResult{}, &NarrationError{Err: err}
	}
	result.Narration = res.Text

	// The narration is delivered before the write-back. If the save
	// then fails, what players saw and what is stored diverge; that
	// window is accepted and reported rather than hidden.
	e.notifier.Narration(result.EventID, actor, action, res.Text)

	extraTurn := false
	for _, d := range narrator.ExtractDirectives(res.Text) {
		switch d.Kind {
		case narrator.DirectiveSkill:
			state.ApplySkill(actor, d.Skill, d.Value)
		case narrator.DirectiveExtraTurn:
			extraTurn = true
		}
	}

	state.AppendHistory(game.HistoryEntry{Actor: actor, Action: action, Response: res.Text}, e.cfg.HistoryWindow)
	state.SetLastAction(actor, action, res.Text)

	if extraTurn && state.GrantExtraTurn(e.now()) {
		result.ExtraTurn = true
	} else {
		state.Advance(e.now())
	}
	result.Round = state.Round
	result.Next, _ = state.CurrentParticipant()

	if err := e.persist(ctx, state); err != nil {
		e.metrics.Actions.WithLabelValues("failed").Inc()
		return result, err
	}
	e.metrics.Actions.WithLabelValues("narrated").Inc()

	if !result.ExtraTurn && len(state.Participants) > 1 {
		e.notifier.TurnAdvanced(result.Next, state.Round)
	}
	return result, nil
}

// AdvanceTurn is the privileged manual advance.
func (e *Engine) AdvanceTurn(ctx context.Context) (next string, round int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.load(ctx)
	if err != nil {
		return "", 0, err
	}
	state.Advance(e.now())
	if err := e.persist(ctx, state); err != nil {
		return "", 0, err
	}
	next, _ = state.CurrentParticipant()
	e.notifier.TurnAdvanced(next, state.Round)
	return next, state.Round, nil
}

// SetScene is the privileged scene edit.
func (e *Engine) SetScene(ctx context.Context, scene string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.load(ctx)
	if err != nil {
		return err
	}
	state.Scene = scene
	if err := e.persist(ctx, state); err != nil {
		return err
	}
	e.notifier.SceneChanged(scene)
	return nil
}

// Reset replaces the session with fresh defaults: roster, characters,
// history, scene and turn pointer are all cleared.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := game.NewSessionState(e.now())
	return e.persist(ctx, state)
}

// Status is the read-only snapshot shown on status surfaces. The scene
// is truncated for display; the narration call always gets it in full.
type Status struct {
	Scene      string   `json:"scene"`
	Round      int      `json:"round"`
	Current    string   `json:"current,omitempty"`
	TurnIndex  int      `json:"turn_index"`
	Order      []string `json:"order"`
	LastAction string   `json:"last_action,omitempty"`
}

func (e *Engine) Status(ctx context.Context) (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.load(ctx)
	if err != nil {
		return Status{}, err
	}
	current, _ := state.CurrentParticipant()
	return Status{
		Scene:      game.TruncateRunes(state.Scene, sceneDisplayMaxRunes),
		Round:      state.Round,
		Current:    current,
		TurnIndex:  state.TurnIndex,
		Order:      append([]string{}, state.Participants...),
		LastAction: state.LastActionSummary,
	}, nil
}

// CharacterSheet returns a copy of one participant's sheet.
func (e *Engine) CharacterSheet(ctx context.Context, name string) (game.CharacterSheet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.load(ctx)
	if err != nil {
		return game.CharacterSheet{}, err
	}
	sheet, ok := state.Characters[name]
	if !ok {
		return game.CharacterSheet{}, fmt.Errorf("character %q: %w", name, ErrNotFound)
	}
	return *sheet, nil
}

// Participants returns the roster in join order plus the current holder.
func (e *Engine) Participants(ctx context.Context) ([]string, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.load(ctx)
	if err != nil {
		return nil, "", err
	}
	current, _ := state.CurrentParticipant()
	return append([]string{}, state.Participants...), current, nil
}

// Package session implements the session orchestrator: dice rolls, combat
// turns, scene and quest changes, each recorded in the action ledger
package session

//go:generate mockgen -destination=mock/mock_service.go -package=sessionmock github.com/KirkDiggler/rpg-tabletop/internal/orchestrators/session Service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KirkDiggler/rpg-tabletop/internal/broadcast"
	"github.com/KirkDiggler/rpg-tabletop/internal/engine/combat"
	"github.com/KirkDiggler/rpg-tabletop/internal/engine/dice"
	"github.com/KirkDiggler/rpg-tabletop/internal/engine/rollpolicy"
	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
	"github.com/KirkDiggler/rpg-tabletop/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-tabletop/internal/pkg/idgen"
	sessionrepo "github.com/KirkDiggler/rpg-tabletop/internal/repositories/session"
)

// Defaults applied when the config leaves a tunable unset
const (
	DefaultCommitAttempts   = 3
	DefaultRetryInterval    = 50 * time.Millisecond
	DefaultBroadcastTimeout = 2 * time.Second
)

const tracerName = "github.com/KirkDiggler/rpg-tabletop/internal/orchestrators/session"

// Service defines the interface for session operations. Authorization is
// the caller's job; the service trusts ActorID.
type Service interface {
	// RollDice rolls a formula and appends the result to the ledger
	RollDice(ctx context.Context, input *RollDiceInput) (*RollDiceOutput, error)

	// RollCriticalDamage rolls a damage formula with every dice group doubled
	RollCriticalDamage(ctx context.Context, input *RollCriticalDamageInput) (*RollCriticalDamageOutput, error)

	// StartCombat sorts the participants into initiative order
	StartCombat(ctx context.Context, input *StartCombatInput) (*StartCombatOutput, error)

	// AdvanceTurn moves to the next participant, wrapping into a new round
	AdvanceTurn(ctx context.Context, input *AdvanceTurnInput) (*AdvanceTurnOutput, error)

	// EndCombat returns the session to idle
	EndCombat(ctx context.Context, input *EndCombatInput) (*EndCombatOutput, error)

	// ChangeScene replaces the scene and optionally location, time, weather and NPCs
	ChangeScene(ctx context.Context, input *ChangeSceneInput) (*ChangeSceneOutput, error)

	// UpdateQuest moves a quest between active, completed and removed
	UpdateQuest(ctx context.Context, input *UpdateQuestInput) (*UpdateQuestOutput, error)

	// GetWorldState returns the last committed state
	GetWorldState(ctx context.Context, input *GetWorldStateInput) (*GetWorldStateOutput, error)

	// ListHistory pages the ledger newest-first
	ListHistory(ctx context.Context, input *ListHistoryInput) (*ListHistoryOutput, error)
}

// Config holds the dependencies for the session orchestrator
type Config struct {
	Repository  sessionrepo.Repository
	Broadcaster broadcast.Broadcaster
	DiceSource  dice.Source
	IDGenerator idgen.Generator
	Clock       clock.Clock

	// Registry is created when nil. Share one per process.
	Registry *Registry

	CommitAttempts   int
	RetryInterval    time.Duration
	BroadcastTimeout time.Duration
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config is required")
	}

	vb := errors.NewValidationBuilder()

	if c.Repository == nil {
		vb.RequiredField("Repository")
	}
	if c.Broadcaster == nil {
		vb.RequiredField("Broadcaster")
	}
	if c.DiceSource == nil {
		vb.RequiredField("DiceSource")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}
	if c.CommitAttempts < 0 {
		vb.Field("CommitAttempts", "cannot be negative")
	}
	if c.RetryInterval < 0 {
		vb.Field("RetryInterval", "cannot be negative")
	}
	if c.BroadcastTimeout < 0 {
		vb.Field("BroadcastTimeout", "cannot be negative")
	}

	return vb.Build()
}

type orchestrator struct {
	repo        sessionrepo.Repository
	broadcaster broadcast.Broadcaster
	source      dice.Source
	idGen       idgen.Generator
	clock       clock.Clock
	registry    *Registry
	tracer      trace.Tracer

	commitAttempts   int
	retryInterval    time.Duration
	broadcastTimeout time.Duration
}

// NewOrchestrator creates a new session orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	o := &orchestrator{
		repo:             cfg.Repository,
		broadcaster:      cfg.Broadcaster,
		source:           cfg.DiceSource,
		idGen:            cfg.IDGenerator,
		clock:            cfg.Clock,
		registry:         cfg.Registry,
		tracer:           otel.Tracer(tracerName),
		commitAttempts:   cfg.CommitAttempts,
		retryInterval:    cfg.RetryInterval,
		broadcastTimeout: cfg.BroadcastTimeout,
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}
	if o.commitAttempts == 0 {
		o.commitAttempts = DefaultCommitAttempts
	}
	if o.retryInterval == 0 {
		o.retryInterval = DefaultRetryInterval
	}
	if o.broadcastTimeout == 0 {
		o.broadcastTimeout = DefaultBroadcastTimeout
	}

	return o, nil
}

// RollDice rolls a formula and records the result
func (o *orchestrator) RollDice(ctx context.Context, input *RollDiceInput) (_ *RollDiceOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.startSpan(ctx, "session.RollDice", input.SessionID,
		attribute.String("roll.notation", input.Formula.Notation),
		attribute.Bool("roll.end_turn", input.EndTurn),
	)
	defer func() { endSpan(span, err) }()

	if err := validateRoll(input.SessionID, input.ActorID, input.Formula); err != nil {
		return nil, err
	}

	result, err := rollpolicy.ParseAndRoll(input.Formula, o.source, o.clock.Now())
	if err != nil {
		return nil, err
	}

	entry, err := o.recordRoll(ctx, input.SessionID, input.ActorID, entities.RollPayload{
		CharacterID: input.CharacterID,
		Reason:      input.Reason,
		Result:      result,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Dice rolled",
		"session_id", input.SessionID,
		"actor_id", input.ActorID,
		"notation", result.Notation,
		"total", result.Total,
		"mode", result.Mode,
		"critical", result.IsCritical,
		"fumble", result.IsFumble,
	)

	output := &RollDiceOutput{
		Result: result,
		Entry:  entry,
	}

	if !input.EndTurn {
		return output, nil
	}

	turn, err := o.endTurn(ctx, input)
	if err != nil {
		slog.Warn("Roll recorded but turn did not advance",
			"session_id", input.SessionID,
			"actor_id", input.ActorID,
			"sequence", entry.Sequence,
			"error", err,
		)
		span.RecordError(err)
		output.TurnError = err
		return output, nil
	}
	output.Turn = turn

	return output, nil
}

// endTurn advances combat after a roll. Outside combat there is nothing to
// end unless the caller pinned a turn.
func (o *orchestrator) endTurn(ctx context.Context, input *RollDiceInput) (*AdvanceTurnOutput, error) {
	if input.ExpectedTurn == nil {
		state, err := o.loadState(ctx, input.SessionID)
		if err != nil {
			return nil, err
		}
		if !state.Combat.IsActive() {
			return nil, nil
		}
	}

	return o.AdvanceTurn(ctx, &AdvanceTurnInput{
		SessionID: input.SessionID,
		ActorID:   input.ActorID,
		Expected:  input.ExpectedTurn,
	})
}

// RollCriticalDamage rolls a damage formula with its dice doubled
func (o *orchestrator) RollCriticalDamage(ctx context.Context, input *RollCriticalDamageInput) (_ *RollCriticalDamageOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.startSpan(ctx, "session.RollCriticalDamage", input.SessionID,
		attribute.String("roll.notation", input.Formula.Notation),
	)
	defer func() { endSpan(span, err) }()

	if err := validateRoll(input.SessionID, input.ActorID, input.Formula); err != nil {
		return nil, err
	}

	result, err := rollpolicy.RollCriticalDamage(input.Formula, o.source, o.clock.Now())
	if err != nil {
		return nil, err
	}

	entry, err := o.recordRoll(ctx, input.SessionID, input.ActorID, entities.RollPayload{
		CharacterID: input.CharacterID,
		Reason:      input.Reason,
		Result:      result,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Critical damage rolled",
		"session_id", input.SessionID,
		"notation", result.Notation,
		"total", result.Total,
	)

	return &RollCriticalDamageOutput{
		Result: result,
		Entry:  entry,
	}, nil
}

// StartCombat begins combat with the given participants
func (o *orchestrator) StartCombat(ctx context.Context, input *StartCombatInput) (_ *StartCombatOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.startSpan(ctx, "session.StartCombat", input.SessionID,
		attribute.Int("combat.participants", len(input.Entries)),
	)
	defer func() { endSpan(span, err) }()

	if err := validateSession(input.SessionID, input.ActorID); err != nil {
		return nil, err
	}

	state, entry, err := o.mutate(ctx, input.SessionID, input.ActorID, func(next *entities.WorldState) (entities.LedgerPayload, error) {
		machine := combat.NewMachine(next.Combat)
		if err := machine.Start(input.Entries); err != nil {
			return nil, err
		}
		next.Combat = machine.State()
		return entities.CombatStartedPayload{Entries: next.Combat.Clone().Entries}, nil
	})
	if err != nil {
		return nil, err
	}

	current := state.Combat.Current()
	slog.Info("Combat started",
		"session_id", input.SessionID,
		"participants", len(state.Combat.Entries),
		"first", current.CharacterID,
	)

	return &StartCombatOutput{
		State:   state,
		Current: current,
		Entry:   entry,
	}, nil
}

// AdvanceTurn moves combat to the next participant
func (o *orchestrator) AdvanceTurn(ctx context.Context, input *AdvanceTurnInput) (_ *AdvanceTurnOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.startSpan(ctx, "session.AdvanceTurn", input.SessionID)
	defer func() { endSpan(span, err) }()

	if err := validateSession(input.SessionID, input.ActorID); err != nil {
		return nil, err
	}

	state, entry, err := o.mutate(ctx, input.SessionID, input.ActorID, func(next *entities.WorldState) (entities.LedgerPayload, error) {
		if input.Expected != nil && !input.Expected.matches(next.Combat) {
			return nil, errors.InvalidStatef("turn of %s in round %d has already ended",
				input.Expected.CharacterID, input.Expected.Round)
		}
		machine := combat.NewMachine(next.Combat)
		current, err := machine.Advance()
		if err != nil {
			return nil, err
		}
		next.Combat = machine.State()
		return entities.TurnAdvancedPayload{
			Round:       next.Combat.Round,
			TurnIndex:   next.Combat.TurnIndex,
			CharacterID: current.CharacterID,
			DisplayName: current.DisplayName,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	current := state.Combat.Current()
	slog.Info("Turn advanced",
		"session_id", input.SessionID,
		"round", state.Combat.Round,
		"turn_index", state.Combat.TurnIndex,
		"character_id", current.CharacterID,
	)

	return &AdvanceTurnOutput{
		State:   state,
		Current: current,
		Entry:   entry,
	}, nil
}

// EndCombat finishes combat and records a summary
func (o *orchestrator) EndCombat(ctx context.Context, input *EndCombatInput) (_ *EndCombatOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.startSpan(ctx, "session.EndCombat", input.SessionID)
	defer func() { endSpan(span, err) }()

	if err := validateSession(input.SessionID, input.ActorID); err != nil {
		return nil, err
	}

	var summary combat.Summary
	state, entry, err := o.mutate(ctx, input.SessionID, input.ActorID, func(next *entities.WorldState) (entities.LedgerPayload, error) {
		machine := combat.NewMachine(next.Combat)
		s, err := machine.End()
		if err != nil {
			return nil, err
		}
		next.Combat = machine.State()
		summary = s
		return entities.CombatEndedPayload{
			RoundsFought: s.RoundsFought,
			Participants: s.Participants,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Combat ended",
		"session_id", input.SessionID,
		"rounds_fought", summary.RoundsFought,
	)

	return &EndCombatOutput{
		State:   state,
		Summary: summary,
		Entry:   entry,
	}, nil
}

// ChangeScene updates the scene fields of the world state
func (o *orchestrator) ChangeScene(ctx context.Context, input *ChangeSceneInput) (_ *ChangeSceneOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.startSpan(ctx, "session.ChangeScene", input.SessionID)
	defer func() { endSpan(span, err) }()

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("session_id", input.SessionID, vb)
	errors.ValidateRequired("actor_id", input.ActorID, vb)
	errors.ValidateRequired("scene", input.Scene, vb)
	for i, npc := range input.NPCs {
		errors.ValidateRequired(fieldName("npcs", i, "id"), npc.ID, vb)
		errors.ValidateRequired(fieldName("npcs", i, "name"), npc.Name, vb)
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	state, entry, err := o.mutate(ctx, input.SessionID, input.ActorID, func(next *entities.WorldState) (entities.LedgerPayload, error) {
		next.Scene = input.Scene
		if input.Location != nil {
			next.Location = *input.Location
		}
		if input.TimeOfDay != nil {
			next.TimeOfDay = *input.TimeOfDay
		}
		if input.Weather != nil {
			next.Weather = *input.Weather
		}
		if input.NPCs != nil {
			next.NPCs = append([]entities.NPC(nil), input.NPCs...)
		}
		return entities.SceneChangedPayload{
			Scene:     next.Scene,
			Location:  next.Location,
			TimeOfDay: next.TimeOfDay,
			Weather:   next.Weather,
			NPCs:      append([]entities.NPC(nil), next.NPCs...),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Scene changed",
		"session_id", input.SessionID,
		"scene", state.Scene,
		"location", state.Location,
	)

	return &ChangeSceneOutput{
		State: state,
		Entry: entry,
	}, nil
}

// UpdateQuest changes a quest's status. Setting the status a quest already
// has records nothing.
func (o *orchestrator) UpdateQuest(ctx context.Context, input *UpdateQuestInput) (_ *UpdateQuestOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.startSpan(ctx, "session.UpdateQuest", input.SessionID,
		attribute.String("quest.id", input.QuestID),
		attribute.String("quest.status", string(input.Status)),
	)
	defer func() { endSpan(span, err) }()

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("session_id", input.SessionID, vb)
	errors.ValidateRequired("actor_id", input.ActorID, vb)
	errors.ValidateRequired("quest_id", input.QuestID, vb)
	errors.ValidateEnum("status", string(input.Status), entities.QuestStatuses, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	state, entry, err := o.mutate(ctx, input.SessionID, input.ActorID, func(next *entities.WorldState) (entities.LedgerPayload, error) {
		if !next.SetQuestStatus(input.QuestID, input.Status) {
			return nil, nil
		}
		return entities.QuestUpdatedPayload{
			QuestID: input.QuestID,
			Status:  input.Status,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if entry != nil {
		slog.Info("Quest updated",
			"session_id", input.SessionID,
			"quest_id", input.QuestID,
			"status", input.Status,
		)
	}

	return &UpdateQuestOutput{
		State: state,
		Entry: entry,
	}, nil
}

// GetWorldState returns the last committed state. Sessions nothing has
// happened in yet read as a fresh state at version 0.
func (o *orchestrator) GetWorldState(ctx context.Context, input *GetWorldStateInput) (_ *GetWorldStateOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.startSpan(ctx, "session.GetWorldState", input.SessionID)
	defer func() { endSpan(span, err) }()

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("session_id", input.SessionID, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	state, err := o.loadState(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	return &GetWorldStateOutput{State: state.Clone()}, nil
}

// ListHistory pages the ledger newest-first
func (o *orchestrator) ListHistory(ctx context.Context, input *ListHistoryInput) (_ *ListHistoryOutput, err error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	ctx, span := o.startSpan(ctx, "session.ListHistory", input.SessionID,
		attribute.Int("page.offset", input.Offset),
		attribute.Int("page.limit", input.Limit),
	)
	defer func() { endSpan(span, err) }()

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("session_id", input.SessionID, vb)
	if input.Offset < 0 {
		vb.Field("offset", "cannot be negative")
	}
	if input.Limit < 0 {
		vb.Field("limit", "cannot be negative")
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	limit := ClampLimit(input.Limit)
	page, err := o.repo.PageEntries(ctx, sessionrepo.PageEntriesInput{
		SessionID: input.SessionID,
		Offset:    input.Offset,
		Limit:     limit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list history for session %s", input.SessionID)
	}

	next := input.Offset + len(page.Entries)
	return &ListHistoryOutput{
		Entries:    page.Entries,
		Total:      page.Total,
		NextOffset: next,
		HasMore:    int64(next) < page.Total,
	}, nil
}

// ClampLimit applies the default and maximum ledger page size
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}

// mutateFunc changes next in place and returns the ledger payload that
// records the change. A nil payload with a nil error means nothing changed.
type mutateFunc func(next *entities.WorldState) (entities.LedgerPayload, error)

// mutate applies fn to a copy of the session's state under the session's
// writer lock and commits the copy together with its ledger entry. The
// snapshot only moves once the store accepted the commit.
func (o *orchestrator) mutate(ctx context.Context, sessionID, actorID string, fn mutateFunc) (*entities.WorldState, *entities.LedgerEntry, error) {
	live := o.registry.get(sessionID)
	live.mu.Lock()
	defer live.mu.Unlock()

	current, err := o.loadLocked(ctx, live, sessionID)
	if err != nil {
		return nil, nil, err
	}

	next := current.Clone()
	payload, err := fn(next)
	if err != nil {
		return nil, nil, err
	}
	if payload == nil {
		return current.Clone(), nil, nil
	}

	now := o.clock.Now()
	next.Version = current.Version + 1
	next.UpdatedAt = now

	entry, err := entities.NewLedgerEntry(o.idGen.Generate(), sessionID, actorID, now, payload)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build ledger entry")
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, contextError(err)
	}

	committed, err := withRetry(ctx, o.commitAttempts, o.retryInterval, func() (*entities.LedgerEntry, error) {
		out, err := o.repo.Commit(ctx, sessionrepo.CommitInput{State: next, Entry: entry})
		if err != nil {
			return nil, err
		}
		return out.Entry, nil
	})
	if err != nil {
		if sessionrepo.IsVersionConflict(err) {
			live.snapshot.Store(nil)
			slog.Warn("World state changed by another writer",
				"session_id", sessionID,
				"version", current.Version,
			)
		}
		return nil, nil, errors.Wrapf(err, "failed to commit %s", payload.Kind())
	}

	live.snapshot.Store(next)
	o.publish(ctx, live, sessionID, committed, next)

	return next.Clone(), committed, nil
}

// recordRoll appends a roll entry. Rolls change no world state but still
// take the writer lock so ledger order matches commit order, and the entry
// is stamped under the lock so timestamps follow sequence numbers.
func (o *orchestrator) recordRoll(ctx context.Context, sessionID, actorID string, payload entities.RollPayload) (*entities.LedgerEntry, error) {
	live := o.registry.get(sessionID)
	live.mu.Lock()
	defer live.mu.Unlock()

	entry, err := entities.NewLedgerEntry(o.idGen.Generate(), sessionID, actorID, o.clock.Now(), payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build ledger entry")
	}

	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}

	appended, err := withRetry(ctx, o.commitAttempts, o.retryInterval, func() (*entities.LedgerEntry, error) {
		out, err := o.repo.AppendEntry(ctx, sessionrepo.AppendEntryInput{Entry: entry})
		if err != nil {
			return nil, err
		}
		return out.Entry, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to record roll")
	}

	o.publish(ctx, live, sessionID, appended, nil)

	return appended, nil
}

// loadState returns the committed state without taking the writer lock
func (o *orchestrator) loadState(ctx context.Context, sessionID string) (*entities.WorldState, error) {
	if state, ok := o.registry.Snapshot(sessionID); ok {
		return state, nil
	}

	state, err := o.fetch(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// A writer that committed meanwhile wins
	o.registry.get(sessionID).snapshot.CompareAndSwap(nil, state)
	return state, nil
}

func (o *orchestrator) loadLocked(ctx context.Context, live *liveSession, sessionID string) (*entities.WorldState, error) {
	if state := live.snapshot.Load(); state != nil {
		return state, nil
	}

	state, err := o.fetch(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	live.snapshot.Store(state)
	return state, nil
}

func (o *orchestrator) fetch(ctx context.Context, sessionID string) (*entities.WorldState, error) {
	out, err := withRetry(ctx, o.commitAttempts, o.retryInterval, func() (*sessionrepo.GetWorldStateOutput, error) {
		return o.repo.GetWorldState(ctx, sessionrepo.GetWorldStateInput{SessionID: sessionID})
	})
	if errors.IsNotFound(err) {
		return entities.NewWorldState(sessionID), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load world state for session %s", sessionID)
	}
	return out.State, nil
}

// publish queues a committed entry for broadcast. Callers hold the writer
// lock, so each session's events go out in commit order. Failures are logged
// and never reach the caller.
func (o *orchestrator) publish(ctx context.Context, live *liveSession, sessionID string, entry *entities.LedgerEntry, state *entities.WorldState) {
	eventType := string(entry.Kind())
	detached := context.WithoutCancel(ctx)

	live.outbox.push(func() {
		ctx, cancel := context.WithTimeout(detached, o.broadcastTimeout)
		defer cancel()

		if err := o.broadcaster.Broadcast(ctx, sessionID, eventType, &event{Entry: entry, State: state}); err != nil {
			slog.Warn("Failed to broadcast session event",
				"session_id", sessionID,
				"event", eventType,
				"sequence", entry.Sequence,
				"error", err,
			)
		}
	})
}

func (o *orchestrator) startSpan(ctx context.Context, name, sessionID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("session.id", sessionID))
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// withRetry runs op until it succeeds, fails with anything but a storage
// error, or runs out of attempts
func withRetry[T any](ctx context.Context, attempts int, interval time.Duration, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval

	out, err := backoff.Retry(ctx, func() (T, error) {
		out, err := op()
		if err != nil && !errors.IsStorage(err) {
			return out, backoff.Permanent(err)
		}
		return out, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(attempts)))

	var permanent *backoff.PermanentError
	if stderrors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	if err != nil && ctx.Err() != nil && stderrors.Is(err, ctx.Err()) {
		err = contextError(err)
	}
	return out, err
}

func contextError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.WrapWithCode(err, errors.CodeDeadlineExceeded, "deadline exceeded before commit")
	}
	return errors.WrapWithCode(err, errors.CodeCanceled, "request cancelled before commit")
}

func validateSession(sessionID, actorID string) error {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("session_id", sessionID, vb)
	errors.ValidateRequired("actor_id", actorID, vb)
	return vb.Build()
}

func validateRoll(sessionID, actorID string, f rollpolicy.Formula) error {
	if err := validateSession(sessionID, actorID); err != nil {
		return err
	}
	return f.Validate()
}

func fieldName(list string, i int, field string) string {
	return list + "[" + strconv.Itoa(i) + "]." + field
}

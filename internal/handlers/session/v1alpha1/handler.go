// Package v1alpha1 handles the session gRPC service: caller identity,
// game master checks and translation to the session orchestrator
package v1alpha1

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/grpc/metadata"

	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
	"github.com/KirkDiggler/rpg-tabletop/internal/orchestrators/session"
	"github.com/KirkDiggler/rpg-tabletop/internal/services/membership"
)

// UserIDHeader is the metadata key carrying the caller's user ID
const UserIDHeader = "x-user-id"

// HandlerConfig holds dependencies for the session handler
type HandlerConfig struct {
	SessionService session.Service
	Membership     membership.Checker
}

// Validate ensures all required dependencies are present
func (c *HandlerConfig) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.SessionService == nil {
		vb.RequiredField("SessionService")
	}
	if c.Membership == nil {
		vb.RequiredField("Membership")
	}

	return vb.Build()
}

// Handler implements SessionServiceServer
type Handler struct {
	sessionService session.Service
	membership     membership.Checker
}

var _ SessionServiceServer = (*Handler)(nil)

// NewHandler creates a new session handler with the given configuration
func NewHandler(cfg *HandlerConfig) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Handler{
		sessionService: cfg.SessionService,
		membership:     cfg.Membership,
	}, nil
}

// RollDice rolls dice for any member. Ending the turn with the roll needs the
// same rights as AdvanceTurn.
func (h *Handler) RollDice(ctx context.Context, req *RollDiceRequest) (*RollDiceResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	var expected *session.ExpectedTurn
	if req.EndTurn {
		expected, err = h.requireTurnControl(ctx, req.SessionID, userID)
		if err != nil {
			return nil, errors.ToGRPCError(err)
		}
	}

	out, err := h.sessionService.RollDice(ctx, &session.RollDiceInput{
		SessionID:    req.SessionID,
		ActorID:      userID,
		CharacterID:  req.CharacterID,
		Reason:       req.Reason,
		Formula:      req.Formula,
		EndTurn:      req.EndTurn,
		ExpectedTurn: expected,
	})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	resp := &RollDiceResponse{
		Result: out.Result,
		Entry:  out.Entry,
	}
	if out.Turn != nil {
		resp.Turn = &TurnResponse{
			State:   out.Turn.State,
			Current: out.Turn.Current,
			Entry:   out.Turn.Entry,
		}
	}
	if out.TurnError != nil {
		resp.TurnError = errors.ToGRPCError(out.TurnError).Error()
	}
	return resp, nil
}

// RollCriticalDamage rolls doubled damage for any member
func (h *Handler) RollCriticalDamage(ctx context.Context, req *RollCriticalDamageRequest) (*RollCriticalDamageResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	out, err := h.sessionService.RollCriticalDamage(ctx, &session.RollCriticalDamageInput{
		SessionID:   req.SessionID,
		ActorID:     userID,
		CharacterID: req.CharacterID,
		Reason:      req.Reason,
		Formula:     req.Formula,
	})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return &RollCriticalDamageResponse{
		Result: out.Result,
		Entry:  out.Entry,
	}, nil
}

// StartCombat is game master only
func (h *Handler) StartCombat(ctx context.Context, req *StartCombatRequest) (*TurnResponse, error) {
	userID, err := h.requireGameMaster(ctx, req.SessionID)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	out, err := h.sessionService.StartCombat(ctx, &session.StartCombatInput{
		SessionID: req.SessionID,
		ActorID:   userID,
		Entries:   req.Entries,
	})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return &TurnResponse{
		State:   out.State,
		Current: out.Current,
		Entry:   out.Entry,
	}, nil
}

// AdvanceTurn is allowed for the game master and the player controlling the
// participant whose turn it is
func (h *Handler) AdvanceTurn(ctx context.Context, req *AdvanceTurnRequest) (*TurnResponse, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	expected, err := h.requireTurnControl(ctx, req.SessionID, userID)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	out, err := h.sessionService.AdvanceTurn(ctx, &session.AdvanceTurnInput{
		SessionID: req.SessionID,
		ActorID:   userID,
		Expected:  expected,
	})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return &TurnResponse{
		State:   out.State,
		Current: out.Current,
		Entry:   out.Entry,
	}, nil
}

// EndCombat is game master only
func (h *Handler) EndCombat(ctx context.Context, req *EndCombatRequest) (*EndCombatResponse, error) {
	userID, err := h.requireGameMaster(ctx, req.SessionID)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	out, err := h.sessionService.EndCombat(ctx, &session.EndCombatInput{
		SessionID: req.SessionID,
		ActorID:   userID,
	})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return &EndCombatResponse{
		State:   out.State,
		Summary: out.Summary,
		Entry:   out.Entry,
	}, nil
}

// ChangeScene is game master only
func (h *Handler) ChangeScene(ctx context.Context, req *ChangeSceneRequest) (*StateChangeResponse, error) {
	userID, err := h.requireGameMaster(ctx, req.SessionID)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	out, err := h.sessionService.ChangeScene(ctx, &session.ChangeSceneInput{
		SessionID: req.SessionID,
		ActorID:   userID,
		Scene:     req.Scene,
		Location:  req.Location,
		TimeOfDay: req.TimeOfDay,
		Weather:   req.Weather,
		NPCs:      req.NPCs,
	})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return &StateChangeResponse{
		State: out.State,
		Entry: out.Entry,
	}, nil
}

// UpdateQuest is game master only
func (h *Handler) UpdateQuest(ctx context.Context, req *UpdateQuestRequest) (*StateChangeResponse, error) {
	userID, err := h.requireGameMaster(ctx, req.SessionID)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	out, err := h.sessionService.UpdateQuest(ctx, &session.UpdateQuestInput{
		SessionID: req.SessionID,
		ActorID:   userID,
		QuestID:   req.QuestID,
		Status:    req.Status,
	})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return &StateChangeResponse{
		State: out.State,
		Entry: out.Entry,
	}, nil
}

// GetWorldState reads the session state
func (h *Handler) GetWorldState(ctx context.Context, req *GetWorldStateRequest) (*GetWorldStateResponse, error) {
	if _, err := callerID(ctx); err != nil {
		return nil, errors.ToGRPCError(err)
	}

	out, err := h.sessionService.GetWorldState(ctx, &session.GetWorldStateInput{
		SessionID: req.SessionID,
	})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return &GetWorldStateResponse{State: out.State}, nil
}

// ListHistory pages the ledger
func (h *Handler) ListHistory(ctx context.Context, req *ListHistoryRequest) (*ListHistoryResponse, error) {
	if _, err := callerID(ctx); err != nil {
		return nil, errors.ToGRPCError(err)
	}

	out, err := h.sessionService.ListHistory(ctx, &session.ListHistoryInput{
		SessionID: req.SessionID,
		Offset:    req.Offset,
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return &ListHistoryResponse{
		Entries:    out.Entries,
		Total:      out.Total,
		NextOffset: out.NextOffset,
		HasMore:    out.HasMore,
	}, nil
}

func (h *Handler) requireGameMaster(ctx context.Context, sessionID string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	if sessionID == "" {
		return "", errors.InvalidArgument("session_id is required")
	}

	isGM, err := h.membership.IsGameMaster(ctx, sessionID, userID)
	if err != nil {
		return "", errors.Wrap(err, "failed to check game master")
	}
	if !isGM {
		slog.Warn("Game master operation denied",
			"session_id", sessionID,
			"user_id", userID,
		)
		return "", errors.Authorization("only the game master can do that")
	}
	return userID, nil
}

// requireTurnControl passes the game master and the controlling player of
// the participant whose turn it is. For players it returns the turn they
// were checked against so the advance can fail if that turn has already
// ended.
func (h *Handler) requireTurnControl(ctx context.Context, sessionID, userID string) (*session.ExpectedTurn, error) {
	if sessionID == "" {
		return nil, errors.InvalidArgument("session_id is required")
	}

	isGM, err := h.membership.IsGameMaster(ctx, sessionID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check game master")
	}
	if isGM {
		return nil, nil
	}

	out, err := h.sessionService.GetWorldState(ctx, &session.GetWorldStateInput{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	current := out.State.Combat.Current()
	if current == nil {
		// Let the orchestrator report the invalid state
		return nil, nil
	}
	if current.ControllingPlayerID == "" || current.ControllingPlayerID != userID {
		return nil, errors.Authorization("only the game master or the current participant's player can end the turn")
	}
	return session.ExpectTurn(out.State.Combat), nil
}

func callerID(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.Unauthenticated(UserIDHeader + " metadata is required")
	}
	values := md.Get(UserIDHeader)
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return "", errors.Unauthenticated(UserIDHeader + " metadata is required")
	}
	return strings.TrimSpace(values[0]), nil
}

package v1alpha1_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/KirkDiggler/rpg-tabletop/internal/engine/combat"
	"github.com/KirkDiggler/rpg-tabletop/internal/engine/rollpolicy"
	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
	"github.com/KirkDiggler/rpg-tabletop/internal/handlers/session/v1alpha1"
	"github.com/KirkDiggler/rpg-tabletop/internal/orchestrators/session"
	sessionmock "github.com/KirkDiggler/rpg-tabletop/internal/orchestrators/session/mock"
	membershipmock "github.com/KirkDiggler/rpg-tabletop/internal/services/membership/mock"
)

const sessionID = "session-1"

type HandlerTestSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockService *sessionmock.MockService
	mockMembers *membershipmock.MockChecker
	handler     *v1alpha1.Handler
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = sessionmock.NewMockService(s.ctrl)
	s.mockMembers = membershipmock.NewMockChecker(s.ctrl)

	handler, err := v1alpha1.NewHandler(&v1alpha1.HandlerConfig{
		SessionService: s.mockService,
		Membership:     s.mockMembers,
	})
	s.Require().NoError(err)
	s.handler = handler
}

func (s *HandlerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerTestSuite) as(userID string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(v1alpha1.UserIDHeader, userID))
}

func (s *HandlerTestSuite) activeState() *entities.WorldState {
	state := entities.NewWorldState(sessionID)
	state.Version = 1
	state.Combat = entities.CombatState{
		Status: entities.CombatStatusActive,
		Round:  1,
		Entries: []entities.InitiativeEntry{
			{CharacterID: "A", ControllingPlayerID: "player-a", InitiativeScore: 18},
			{CharacterID: "B", ControllingPlayerID: "player-b", InitiativeScore: 12},
		},
	}
	return state
}

func (s *HandlerTestSuite) TestNewHandlerRequiresDependencies() {
	_, err := v1alpha1.NewHandler(&v1alpha1.HandlerConfig{})
	s.Require().Error(err)
	s.Contains(err.Error(), "SessionService")
	s.Contains(err.Error(), "Membership")
}

func (s *HandlerTestSuite) TestMissingCallerIsUnauthenticated() {
	_, err := s.handler.GetWorldState(context.Background(), &v1alpha1.GetWorldStateRequest{SessionID: sessionID})
	s.Require().Error(err)
	s.Equal(codes.Unauthenticated, status.Code(err))
}

func (s *HandlerTestSuite) TestRollDicePassesCallerAsActor() {
	ctx := s.as("player-a")
	formula := rollpolicy.Formula{Notation: "1d20+5", Category: rollpolicy.CategoryAttack}

	s.mockService.EXPECT().
		RollDice(ctx, &session.RollDiceInput{
			SessionID:   sessionID,
			ActorID:     "player-a",
			CharacterID: "A",
			Reason:      "longsword",
			Formula:     formula,
		}).
		Return(&session.RollDiceOutput{
			Result: rollpolicy.RollResult{Notation: "1d20+5", Total: 20},
		}, nil)

	resp, err := s.handler.RollDice(ctx, &v1alpha1.RollDiceRequest{
		SessionID:   sessionID,
		CharacterID: "A",
		Reason:      "longsword",
		Formula:     formula,
	})
	s.Require().NoError(err)
	s.Equal(20, resp.Result.Total)
	s.Nil(resp.Turn)
}

func (s *HandlerTestSuite) TestRollDiceMapsFormulaErrors() {
	ctx := s.as("player-a")
	s.mockService.EXPECT().
		RollDice(ctx, gomock.Any()).
		Return(nil, errors.Formula("syntax", "unexpected '+' at position 5"))

	_, err := s.handler.RollDice(ctx, &v1alpha1.RollDiceRequest{
		SessionID: sessionID,
		Formula:   rollpolicy.Formula{Notation: "1d20++5"},
	})
	s.Require().Error(err)
	s.Equal(codes.InvalidArgument, status.Code(err))
}

func (s *HandlerTestSuite) TestRollDiceEndTurnNeedsTurnControl() {
	ctx := s.as("player-b")
	s.mockMembers.EXPECT().IsGameMaster(ctx, sessionID, "player-b").Return(false, nil)
	s.mockService.EXPECT().
		GetWorldState(ctx, &session.GetWorldStateInput{SessionID: sessionID}).
		Return(&session.GetWorldStateOutput{State: s.activeState()}, nil)

	_, err := s.handler.RollDice(ctx, &v1alpha1.RollDiceRequest{
		SessionID: sessionID,
		Formula:   rollpolicy.Formula{Notation: "1d20"},
		EndTurn:   true,
	})
	s.Require().Error(err)
	s.Equal(codes.PermissionDenied, status.Code(err))
}

func (s *HandlerTestSuite) TestRollDiceEndTurnPinsCurrentTurn() {
	ctx := s.as("player-a")
	formula := rollpolicy.Formula{Notation: "1d20"}
	s.mockMembers.EXPECT().IsGameMaster(ctx, sessionID, "player-a").Return(false, nil)
	s.mockService.EXPECT().
		GetWorldState(ctx, &session.GetWorldStateInput{SessionID: sessionID}).
		Return(&session.GetWorldStateOutput{State: s.activeState()}, nil)
	s.mockService.EXPECT().
		RollDice(ctx, &session.RollDiceInput{
			SessionID:    sessionID,
			ActorID:      "player-a",
			Formula:      formula,
			EndTurn:      true,
			ExpectedTurn: &session.ExpectedTurn{Round: 1, TurnIndex: 0, CharacterID: "A"},
		}).
		Return(&session.RollDiceOutput{Result: rollpolicy.RollResult{Notation: "1d20", Total: 11}}, nil)

	_, err := s.handler.RollDice(ctx, &v1alpha1.RollDiceRequest{
		SessionID: sessionID,
		Formula:   formula,
		EndTurn:   true,
	})
	s.Require().NoError(err)
}

func (s *HandlerTestSuite) TestRollDiceReportsTurnErrorWithRecordedRoll() {
	ctx := s.as("gm")
	entry := &entities.LedgerEntry{ID: "entry-2", Sequence: 2}
	s.mockMembers.EXPECT().IsGameMaster(ctx, sessionID, "gm").Return(true, nil)
	s.mockService.EXPECT().
		RollDice(ctx, gomock.Any()).
		Return(&session.RollDiceOutput{
			Result:    rollpolicy.RollResult{Notation: "1d20", Total: 11},
			Entry:     entry,
			TurnError: errors.Storage(context.DeadlineExceeded, "commit failed"),
		}, nil)

	resp, err := s.handler.RollDice(ctx, &v1alpha1.RollDiceRequest{
		SessionID: sessionID,
		Formula:   rollpolicy.Formula{Notation: "1d20"},
		EndTurn:   true,
	})
	s.Require().NoError(err)
	s.Equal(entry, resp.Entry)
	s.Nil(resp.Turn)
	s.Contains(resp.TurnError, codes.Unavailable.String())
}

func (s *HandlerTestSuite) TestStartCombatRequiresGameMaster() {
	ctx := s.as("player-a")
	s.mockMembers.EXPECT().IsGameMaster(ctx, sessionID, "player-a").Return(false, nil)

	_, err := s.handler.StartCombat(ctx, &v1alpha1.StartCombatRequest{
		SessionID: sessionID,
		Entries:   s.activeState().Combat.Entries,
	})
	s.Require().Error(err)
	s.Equal(codes.PermissionDenied, status.Code(err))
}

func (s *HandlerTestSuite) TestStartCombatAsGameMaster() {
	ctx := s.as("gm")
	state := s.activeState()
	s.mockMembers.EXPECT().IsGameMaster(ctx, sessionID, "gm").Return(true, nil)
	s.mockService.EXPECT().
		StartCombat(ctx, &session.StartCombatInput{
			SessionID: sessionID,
			ActorID:   "gm",
			Entries:   state.Combat.Entries,
		}).
		Return(&session.StartCombatOutput{State: state, Current: state.Combat.Current()}, nil)

	resp, err := s.handler.StartCombat(ctx, &v1alpha1.StartCombatRequest{
		SessionID: sessionID,
		Entries:   state.Combat.Entries,
	})
	s.Require().NoError(err)
	s.Equal("A", resp.Current.CharacterID)
}

func (s *HandlerTestSuite) TestMembershipFailureIsUnavailable() {
	ctx := s.as("gm")
	s.mockMembers.EXPECT().
		IsGameMaster(ctx, sessionID, "gm").
		Return(false, errors.Storage(context.DeadlineExceeded, "membership lookup failed"))

	_, err := s.handler.EndCombat(ctx, &v1alpha1.EndCombatRequest{SessionID: sessionID})
	s.Require().Error(err)
	s.Equal(codes.Unavailable, status.Code(err))
}

func (s *HandlerTestSuite) TestAdvanceTurnByCurrentPlayer() {
	ctx := s.as("player-a")
	state := s.activeState()
	s.mockMembers.EXPECT().IsGameMaster(ctx, sessionID, "player-a").Return(false, nil)
	s.mockService.EXPECT().
		GetWorldState(ctx, &session.GetWorldStateInput{SessionID: sessionID}).
		Return(&session.GetWorldStateOutput{State: state}, nil)
	s.mockService.EXPECT().
		AdvanceTurn(ctx, &session.AdvanceTurnInput{
			SessionID: sessionID,
			ActorID:   "player-a",
			Expected:  &session.ExpectedTurn{Round: 1, TurnIndex: 0, CharacterID: "A"},
		}).
		Return(&session.AdvanceTurnOutput{State: state, Current: &state.Combat.Entries[1]}, nil)

	resp, err := s.handler.AdvanceTurn(ctx, &v1alpha1.AdvanceTurnRequest{SessionID: sessionID})
	s.Require().NoError(err)
	s.Equal("B", resp.Current.CharacterID)
}

func (s *HandlerTestSuite) TestAdvanceTurnByOtherPlayerDenied() {
	ctx := s.as("player-b")
	s.mockMembers.EXPECT().IsGameMaster(ctx, sessionID, "player-b").Return(false, nil)
	s.mockService.EXPECT().
		GetWorldState(ctx, &session.GetWorldStateInput{SessionID: sessionID}).
		Return(&session.GetWorldStateOutput{State: s.activeState()}, nil)

	_, err := s.handler.AdvanceTurn(ctx, &v1alpha1.AdvanceTurnRequest{SessionID: sessionID})
	s.Require().Error(err)
	s.Equal(codes.PermissionDenied, status.Code(err))
}

func (s *HandlerTestSuite) TestAdvanceTurnWhileIdleIsFailedPrecondition() {
	ctx := s.as("gm")
	s.mockMembers.EXPECT().IsGameMaster(ctx, sessionID, "gm").Return(true, nil)
	s.mockService.EXPECT().
		AdvanceTurn(ctx, gomock.Any()).
		Return(nil, errors.InvalidState("no active combat"))

	_, err := s.handler.AdvanceTurn(ctx, &v1alpha1.AdvanceTurnRequest{SessionID: sessionID})
	s.Require().Error(err)
	s.Equal(codes.FailedPrecondition, status.Code(err))
}

func (s *HandlerTestSuite) TestEndCombatReturnsSummary() {
	ctx := s.as("gm")
	s.mockMembers.EXPECT().IsGameMaster(ctx, sessionID, "gm").Return(true, nil)
	s.mockService.EXPECT().
		EndCombat(ctx, &session.EndCombatInput{SessionID: sessionID, ActorID: "gm"}).
		Return(&session.EndCombatOutput{
			State:   entities.NewWorldState(sessionID),
			Summary: combat.Summary{RoundsFought: 3, Participants: []string{"A", "B"}},
		}, nil)

	resp, err := s.handler.EndCombat(ctx, &v1alpha1.EndCombatRequest{SessionID: sessionID})
	s.Require().NoError(err)
	s.Equal(3, resp.Summary.RoundsFought)
}

func (s *HandlerTestSuite) TestChangeSceneAsGameMaster() {
	ctx := s.as("gm")
	location := "Harbor"
	s.mockMembers.EXPECT().IsGameMaster(ctx, sessionID, "gm").Return(true, nil)
	s.mockService.EXPECT().
		ChangeScene(ctx, &session.ChangeSceneInput{
			SessionID: sessionID,
			ActorID:   "gm",
			Scene:     "Docks",
			Location:  &location,
		}).
		Return(&session.ChangeSceneOutput{State: entities.NewWorldState(sessionID)}, nil)

	_, err := s.handler.ChangeScene(ctx, &v1alpha1.ChangeSceneRequest{
		SessionID: sessionID,
		Scene:     "Docks",
		Location:  &location,
	})
	s.Require().NoError(err)
}

func (s *HandlerTestSuite) TestUpdateQuestRequiresSessionID() {
	_, err := s.handler.UpdateQuest(s.as("gm"), &v1alpha1.UpdateQuestRequest{QuestID: "q1"})
	s.Require().Error(err)
	s.Equal(codes.InvalidArgument, status.Code(err))
}

func (s *HandlerTestSuite) TestListHistoryPassesPaging() {
	ctx := s.as("player-a")
	s.mockService.EXPECT().
		ListHistory(ctx, &session.ListHistoryInput{SessionID: sessionID, Offset: 10, Limit: 5}).
		Return(&session.ListHistoryOutput{Total: 12, NextOffset: 12}, nil)

	resp, err := s.handler.ListHistory(ctx, &v1alpha1.ListHistoryRequest{SessionID: sessionID, Offset: 10, Limit: 5})
	s.Require().NoError(err)
	s.Equal(int64(12), resp.Total)
	s.False(resp.HasMore)
}

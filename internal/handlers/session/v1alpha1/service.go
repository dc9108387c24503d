package v1alpha1

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "tabletop.session.v1alpha1.SessionService"

// Full method names
const (
	MethodRollDice           = "/" + ServiceName + "/RollDice"
	MethodRollCriticalDamage = "/" + ServiceName + "/RollCriticalDamage"
	MethodStartCombat        = "/" + ServiceName + "/StartCombat"
	MethodAdvanceTurn        = "/" + ServiceName + "/AdvanceTurn"
	MethodEndCombat          = "/" + ServiceName + "/EndCombat"
	MethodChangeScene        = "/" + ServiceName + "/ChangeScene"
	MethodUpdateQuest        = "/" + ServiceName + "/UpdateQuest"
	MethodGetWorldState      = "/" + ServiceName + "/GetWorldState"
	MethodListHistory        = "/" + ServiceName + "/ListHistory"
)

// SessionServiceServer is the server API for the session service
type SessionServiceServer interface {
	RollDice(context.Context, *RollDiceRequest) (*RollDiceResponse, error)
	RollCriticalDamage(context.Context, *RollCriticalDamageRequest) (*RollCriticalDamageResponse, error)
	StartCombat(context.Context, *StartCombatRequest) (*TurnResponse, error)
	AdvanceTurn(context.Context, *AdvanceTurnRequest) (*TurnResponse, error)
	EndCombat(context.Context, *EndCombatRequest) (*EndCombatResponse, error)
	ChangeScene(context.Context, *ChangeSceneRequest) (*StateChangeResponse, error)
	UpdateQuest(context.Context, *UpdateQuestRequest) (*StateChangeResponse, error)
	GetWorldState(context.Context, *GetWorldStateRequest) (*GetWorldStateResponse, error)
	ListHistory(context.Context, *ListHistoryRequest) (*ListHistoryResponse, error)
}

// RegisterSessionServiceServer registers srv with s
func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}

// unary adapts a typed server method to a grpc.MethodDesc handler
func unary[Req, Resp any](method string, call func(SessionServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(SessionServiceServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SessionServiceDesc describes the session service for grpc.Server
var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RollDice", Handler: unary(MethodRollDice, SessionServiceServer.RollDice)},
		{MethodName: "RollCriticalDamage", Handler: unary(MethodRollCriticalDamage, SessionServiceServer.RollCriticalDamage)},
		{MethodName: "StartCombat", Handler: unary(MethodStartCombat, SessionServiceServer.StartCombat)},
		{MethodName: "AdvanceTurn", Handler: unary(MethodAdvanceTurn, SessionServiceServer.AdvanceTurn)},
		{MethodName: "EndCombat", Handler: unary(MethodEndCombat, SessionServiceServer.EndCombat)},
		{MethodName: "ChangeScene", Handler: unary(MethodChangeScene, SessionServiceServer.ChangeScene)},
		{MethodName: "UpdateQuest", Handler: unary(MethodUpdateQuest, SessionServiceServer.UpdateQuest)},
		{MethodName: "GetWorldState", Handler: unary(MethodGetWorldState, SessionServiceServer.GetWorldState)},
		{MethodName: "ListHistory", Handler: unary(MethodListHistory, SessionServiceServer.ListHistory)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tabletop/session/v1alpha1/session.json",
}

// SessionServiceClient is the client API for the session service
type SessionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSessionServiceClient wraps a connection. Calls use the JSON codec.
func NewSessionServiceClient(cc grpc.ClientConnInterface) *SessionServiceClient {
	return &SessionServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RollDice calls SessionService.RollDice
func (c *SessionServiceClient) RollDice(ctx context.Context, in *RollDiceRequest, opts ...grpc.CallOption) (*RollDiceResponse, error) {
	return invoke[RollDiceResponse](ctx, c.cc, MethodRollDice, in, opts)
}

// RollCriticalDamage calls SessionService.RollCriticalDamage
func (c *SessionServiceClient) RollCriticalDamage(ctx context.Context, in *RollCriticalDamageRequest, opts ...grpc.CallOption) (*RollCriticalDamageResponse, error) {
	return invoke[RollCriticalDamageResponse](ctx, c.cc, MethodRollCriticalDamage, in, opts)
}

// StartCombat calls SessionService.StartCombat
func (c *SessionServiceClient) StartCombat(ctx context.Context, in *StartCombatRequest, opts ...grpc.CallOption) (*TurnResponse, error) {
	return invoke[TurnResponse](ctx, c.cc, MethodStartCombat, in, opts)
}

// AdvanceTurn calls SessionService.AdvanceTurn
func (c *SessionServiceClient) AdvanceTurn(ctx context.Context, in *AdvanceTurnRequest, opts ...grpc.CallOption) (*TurnResponse, error) {
	return invoke[TurnResponse](ctx, c.cc, MethodAdvanceTurn, in, opts)
}

// EndCombat calls SessionService.EndCombat
func (c *SessionServiceClient) EndCombat(ctx context.Context, in *EndCombatRequest, opts ...grpc.CallOption) (*EndCombatResponse, error) {
	return invoke[EndCombatResponse](ctx, c.cc, MethodEndCombat, in, opts)
}

// ChangeScene calls SessionService.ChangeScene
func (c *SessionServiceClient) ChangeScene(ctx context.Context, in *ChangeSceneRequest, opts ...grpc.CallOption) (*StateChangeResponse, error) {
	return invoke[StateChangeResponse](ctx, c.cc, MethodChangeScene, in, opts)
}

// UpdateQuest calls SessionService.UpdateQuest
func (c *SessionServiceClient) UpdateQuest(ctx context.Context, in *UpdateQuestRequest, opts ...grpc.CallOption) (*StateChangeResponse, error) {
	return invoke[StateChangeResponse](ctx, c.cc, MethodUpdateQuest, in, opts)
}

// GetWorldState calls SessionService.GetWorldState
func (c *SessionServiceClient) GetWorldState(ctx context.Context, in *GetWorldStateRequest, opts ...grpc.CallOption) (*GetWorldStateResponse, error) {
	return invoke[GetWorldStateResponse](ctx, c.cc, MethodGetWorldState, in, opts)
}

// ListHistory calls SessionService.ListHistory
func (c *SessionServiceClient) ListHistory(ctx context.Context, in *ListHistoryRequest, opts ...grpc.CallOption) (*ListHistoryResponse, error) {
	return invoke[ListHistoryResponse](ctx, c.cc, MethodListHistory, in, opts)
}

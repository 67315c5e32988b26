package api

import (
	"context"
	"time"

	"github.com/matheus3301/pollchat/internal/server"
	"github.com/matheus3301/pollchat/internal/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ChatSyncService implements the ChatSync gRPC service on top of server.Service.
type ChatSyncService struct {
	svc    *server.Service
	logger *zap.Logger
}

var _ wire.ChatSyncServer = (*ChatSyncService)(nil)

// NewChatSyncService creates the gRPC facade for svc.
func NewChatSyncService(svc *server.Service, logger *zap.Logger) *ChatSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatSyncService{svc: svc, logger: logger}
}

// call runs fn and translates its error kind into a gRPC status.
func call[Req, Resp any](ctx context.Context, s *ChatSyncService, method string, fn func(context.Context, *Req) (*Resp, error), req *Req) (*Resp, error) {
	resp, err := fn(ctx, req)
	if err != nil {
		st := wire.ToStatus(err)
		if wire.Code(err) == codes.Internal {
			s.logger.Error("rpc failed", zap.String("method", method), zap.Error(err))
		} else {
			s.logger.Debug("rpc rejected", zap.String("method", method), zap.Error(err))
		}
		return nil, st
	}
	return resp, nil
}

func (s *ChatSyncService) Ping(_ context.Context, _ *wire.PingRequest) (*wire.PingResponse, error) {
	return &wire.PingResponse{Time: timestamppb.New(time.Now())}, nil
}

func (s *ChatSyncService) Me(ctx context.Context, req *wire.MeRequest) (*wire.UserSummary, error) {
	return call(ctx, s, "Me", s.svc.Me, req)
}

func (s *ChatSyncService) Sync(ctx context.Context, req *wire.SyncRequest) (*wire.SyncResponse, error) {
	return call(ctx, s, "Sync", s.svc.Sync, req)
}

func (s *ChatSyncService) SendMessage(ctx context.Context, req *wire.SendMessageRequest) (*wire.Message, error) {
	return call(ctx, s, "SendMessage", s.svc.SendMessage, req)
}

func (s *ChatSyncService) UpdateStatus(ctx context.Context, req *wire.UpdateStatusRequest) (*wire.Message, error) {
	return call(ctx, s, "UpdateStatus", s.svc.UpdateStatus, req)
}

func (s *ChatSyncService) ListMessages(ctx context.Context, req *wire.ListMessagesRequest) (*wire.ListMessagesResponse, error) {
	return call(ctx, s, "ListMessages", s.svc.ListMessages, req)
}

func (s *ChatSyncService) ListChats(ctx context.Context, req *wire.ListChatsRequest) (*wire.ListChatsResponse, error) {
	return call(ctx, s, "ListChats", s.svc.ListChats, req)
}

func (s *ChatSyncService) CreateChat(ctx context.Context, req *wire.CreateChatRequest) (*wire.CreateChatResponse, error) {
	return call(ctx, s, "CreateChat", s.svc.CreateChat, req)
}

func (s *ChatSyncService) UpsertProfile(ctx context.Context, req *wire.UpsertProfileRequest) (*wire.UserSummary, error) {
	return call(ctx, s, "UpsertProfile", s.svc.UpsertProfile, req)
}

func (s *ChatSyncService) SearchUsers(ctx context.Context, req *wire.SearchUsersRequest) (*wire.SearchUsersResponse, error) {
	return call(ctx, s, "SearchUsers", s.svc.SearchUsers, req)
}

func (s *ChatSyncService) SetPresence(ctx context.Context, req *wire.SetPresenceRequest) (*wire.SetPresenceResponse, error) {
	return call(ctx, s, "SetPresence", s.svc.SetPresence, req)
}

func (s *ChatSyncService) OnlineUsers(ctx context.Context, req *wire.OnlineUsersRequest) (*wire.SearchUsersResponse, error) {
	return call(ctx, s, "OnlineUsers", s.svc.OnlineUsers, req)
}

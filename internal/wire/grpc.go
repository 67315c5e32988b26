package wire

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content subtype used by pollchat. Messages are plain
// Go structs serialized as JSON instead of protobuf.
const CodecName = "json"

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pollchat.v1.ChatSync"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// FullMethod returns the gRPC path of a ChatSync method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// ChatSyncServer is the server API for the ChatSync service.
type ChatSyncServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Me(context.Context, *MeRequest) (*UserSummary, error)
	Sync(context.Context, *SyncRequest) (*SyncResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*Message, error)
	UpdateStatus(context.Context, *UpdateStatusRequest) (*Message, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	ListChats(context.Context, *ListChatsRequest) (*ListChatsResponse, error)
	CreateChat(context.Context, *CreateChatRequest) (*CreateChatResponse, error)
	UpsertProfile(context.Context, *UpsertProfileRequest) (*UserSummary, error)
	SearchUsers(context.Context, *SearchUsersRequest) (*SearchUsersResponse, error)
	SetPresence(context.Context, *SetPresenceRequest) (*SetPresenceResponse, error)
	OnlineUsers(context.Context, *OnlineUsersRequest) (*SearchUsersResponse, error)
}

func unary[Req, Resp any](method string, call func(ChatSyncServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ChatSyncServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ChatSyncServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ChatSyncServiceDesc describes the ChatSync service for grpc.Server.
var ChatSyncServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatSyncServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", ChatSyncServer.Ping),
		unary("Me", ChatSyncServer.Me),
		unary("Sync", ChatSyncServer.Sync),
		unary("SendMessage", ChatSyncServer.SendMessage),
		unary("UpdateStatus", ChatSyncServer.UpdateStatus),
		unary("ListMessages", ChatSyncServer.ListMessages),
		unary("ListChats", ChatSyncServer.ListChats),
		unary("CreateChat", ChatSyncServer.CreateChat),
		unary("UpsertProfile", ChatSyncServer.UpsertProfile),
		unary("SearchUsers", ChatSyncServer.SearchUsers),
		unary("SetPresence", ChatSyncServer.SetPresence),
		unary("OnlineUsers", ChatSyncServer.OnlineUsers),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pollchat/v1/chatsync",
}

// RegisterChatSyncServer registers srv on s.
func RegisterChatSyncServer(s grpc.ServiceRegistrar, srv ChatSyncServer) {
	s.RegisterService(&ChatSyncServiceDesc, srv)
}

// ChatSyncClient is the client API for the ChatSync service.
type ChatSyncClient struct {
	cc grpc.ClientConnInterface
}

// NewChatSyncClient wraps a connection. Calls are forced onto the JSON codec.
func NewChatSyncClient(cc grpc.ClientConnInterface) *ChatSyncClient {
	return &ChatSyncClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ChatSyncClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, "Ping", in, opts...)
}

func (c *ChatSyncClient) Me(ctx context.Context, in *MeRequest, opts ...grpc.CallOption) (*UserSummary, error) {
	return invoke[UserSummary](ctx, c.cc, "Me", in, opts...)
}

func (c *ChatSyncClient) Sync(ctx context.Context, in *SyncRequest, opts ...grpc.CallOption) (*SyncResponse, error) {
	return invoke[SyncResponse](ctx, c.cc, "Sync", in, opts...)
}

func (c *ChatSyncClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*Message, error) {
	return invoke[Message](ctx, c.cc, "SendMessage", in, opts...)
}

func (c *ChatSyncClient) UpdateStatus(ctx context.Context, in *UpdateStatusRequest, opts ...grpc.CallOption) (*Message, error) {
	return invoke[Message](ctx, c.cc, "UpdateStatus", in, opts...)
}

func (c *ChatSyncClient) ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error) {
	return invoke[ListMessagesResponse](ctx, c.cc, "ListMessages", in, opts...)
}

func (c *ChatSyncClient) ListChats(ctx context.Context, in *ListChatsRequest, opts ...grpc.CallOption) (*ListChatsResponse, error) {
	return invoke[ListChatsResponse](ctx, c.cc, "ListChats", in, opts...)
}

func (c *ChatSyncClient) CreateChat(ctx context.Context, in *CreateChatRequest, opts ...grpc.CallOption) (*CreateChatResponse, error) {
	return invoke[CreateChatResponse](ctx, c.cc, "CreateChat", in, opts...)
}

func (c *ChatSyncClient) UpsertProfile(ctx context.Context, in *UpsertProfileRequest, opts ...grpc.CallOption) (*UserSummary, error) {
	return invoke[UserSummary](ctx, c.cc, "UpsertProfile", in, opts...)
}

func (c *ChatSyncClient) SearchUsers(ctx context.Context, in *SearchUsersRequest, opts ...grpc.CallOption) (*SearchUsersResponse, error) {
	return invoke[SearchUsersResponse](ctx, c.cc, "SearchUsers", in, opts...)
}

func (c *ChatSyncClient) SetPresence(ctx context.Context, in *SetPresenceRequest, opts ...grpc.CallOption) (*SetPresenceResponse, error) {
	return invoke[SetPresenceResponse](ctx, c.cc, "SetPresence", in, opts...)
}

func (c *ChatSyncClient) OnlineUsers(ctx context.Context, in *OnlineUsersRequest, opts ...grpc.CallOption) (*SearchUsersResponse, error) {
	return invoke[SearchUsersResponse](ctx, c.cc, "OnlineUsers", in, opts...)
}

package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/pollchat/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Client wraps the gRPC connection to a pollchat server. Errors returned by its
// methods wrap the wire error kinds.
type Client struct {
	conn *grpc.ClientConn
	rpc  *wire.ChatSyncClient
}

// New dials target ("host:port" or "unix:///path") and attaches token to
// every call.
func New(target, token string) (*Client, error) {
	if strings.HasPrefix(target, "/") {
		target = "unix://" + target
	}
	conn, err := grpc.NewClient(
		target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(tokenInterceptor(token)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial server: %w", err)
	}
	return &Client{conn: conn, rpc: wire.NewChatSyncClient(conn)}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func tokenInterceptor(token string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if token != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func kind[T any](resp *T, err error) (*T, error) {
	if err != nil {
		return nil, wire.FromStatus(err)
	}
	return resp, nil
}

func (c *Client) Ping(ctx context.Context) (*wire.PingResponse, error) {
	return kind(c.rpc.Ping(ctx, &wire.PingRequest{}))
}

func (c *Client) Me(ctx context.Context) (*wire.UserSummary, error) {
	return kind(c.rpc.Me(ctx, &wire.MeRequest{}))
}

func (c *Client) Sync(ctx context.Context, req *wire.SyncRequest) (*wire.SyncResponse, error) {
	return kind(c.rpc.Sync(ctx, req))
}

func (c *Client) SendMessage(ctx context.Context, req *wire.SendMessageRequest) (*wire.Message, error) {
	return kind(c.rpc.SendMessage(ctx, req))
}

func (c *Client) UpdateStatus(ctx context.Context, req *wire.UpdateStatusRequest) (*wire.Message, error) {
	return kind(c.rpc.UpdateStatus(ctx, req))
}

func (c *Client) ListMessages(ctx context.Context, req *wire.ListMessagesRequest) (*wire.ListMessagesResponse, error) {
	return kind(c.rpc.ListMessages(ctx, req))
}

func (c *Client) ListChats(ctx context.Context) (*wire.ListChatsResponse, error) {
	return kind(c.rpc.ListChats(ctx, &wire.ListChatsRequest{}))
}

func (c *Client) CreateChat(ctx context.Context, recipientID string) (*wire.CreateChatResponse, error) {
	return kind(c.rpc.CreateChat(ctx, &wire.CreateChatRequest{RecipientID: recipientID}))
}

func (c *Client) UpsertProfile(ctx context.Context, req *wire.UpsertProfileRequest) (*wire.UserSummary, error) {
	return kind(c.rpc.UpsertProfile(ctx, req))
}

func (c *Client) SearchUsers(ctx context.Context, query string) (*wire.SearchUsersResponse, error) {
	return kind(c.rpc.SearchUsers(ctx, &wire.SearchUsersRequest{Query: query}))
}

func (c *Client) SetPresence(ctx context.Context, online bool) (*wire.SetPresenceResponse, error) {
	return kind(c.rpc.SetPresence(ctx, &wire.SetPresenceRequest{Online: online}))
}

func (c *Client) OnlineUsers(ctx context.Context) (*wire.SearchUsersResponse, error) {
	return kind(c.rpc.OnlineUsers(ctx, &wire.OnlineUsersRequest{}))
}

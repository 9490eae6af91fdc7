package control

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.klb.dev/reclip/internal/ipc"
)

// Client calls a running daemon.
type Client struct {
	cc *grpc.ClientConn
}

// Dial connects lazily to the daemon at socket.
// No auth is needed; the socket is local and owner-restricted.
func Dial(socket string) (*Client, error) {
	return DialWith(func(ctx context.Context, _ string) (net.Conn, error) {
		return ipc.Dial(ctx, socket)
	})
}

// DialWith connects through a custom dialer.
func DialWith(dialer func(context.Context, string) (net.Conn, error)) (*Client, error) {
	cc, err := grpc.NewClient("passthrough:///reclip",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(dialer),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(codec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{cc: cc}, nil
}

// Close releases the connection.
func (c *Client) Close() error { return c.cc.Close() }

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	out := new(StatusResponse)
	return out, c.cc.Invoke(ctx, method("Status"), &Empty{}, out)
}

func (c *Client) Toggle(ctx context.Context) error {
	return c.cc.Invoke(ctx, method("Toggle"), &Empty{}, &Empty{})
}

func (c *Client) Select(ctx context.Context, name string) error {
	return c.cc.Invoke(ctx, method("Select"), &SelectRequest{Template: name}, &Empty{})
}

func (c *Client) Process(ctx context.Context, req *ProcessRequest) error {
	return c.cc.Invoke(ctx, method("Process"), req, &Empty{})
}

func (c *Client) History(ctx context.Context, limit int) ([]HistoryItem, error) {
	out := new(HistoryResponse)
	if err := c.cc.Invoke(ctx, method("History"), &HistoryRequest{Limit: limit}, out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

func (c *Client) Restore(ctx context.Context, id string) error {
	return c.cc.Invoke(ctx, method("Restore"), &RestoreRequest{ID: id}, &Empty{})
}

// Package control is the gRPC service a running daemon exposes on its local
// socket so reclip sub-commands can inspect and drive it.
package control

import (
	"context"
	"log/slog"
	"net"
	"slices"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/reclip/internal/app"
	"go.klb.dev/reclip/internal/content"
	"go.klb.dev/reclip/internal/history"
	"go.klb.dev/reclip/internal/task"
)

const serviceName = "reclip.v1.Control"

// Daemon is what the service drives.
type Daemon interface {
	Status() app.Status
	Post(task.Event)
	HistoryEntries() []history.Entry
}

// Service implements the control RPCs.
type Service struct {
	d      Daemon
	socket string
}

// NewService returns a Service over d. socket is reported by Status.
func NewService(d Daemon, socket string) *Service {
	return &Service{d: d, socket: socket}
}

// NewServer returns a gRPC server with the service registered.
func NewServer(svc *Service) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ForceServerCodec(codec{}),
		grpc.ChainUnaryInterceptor(logRequests),
	)
	srv.RegisterService(&serviceDesc, svc)
	return srv
}

// Serve runs srv on l until ctx is done.
func Serve(ctx context.Context, srv *grpc.Server, l net.Listener) error {
	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
	slog.Info("control server listening", "addr", l.Addr().String())
	return srv.Serve(l)
}

func (s *Service) Status(_ context.Context, _ *Empty) (*StatusResponse, error) {
	return &StatusResponse{Status: s.d.Status(), Socket: s.socket}, nil
}

func (s *Service) Toggle(_ context.Context, _ *Empty) (*Empty, error) {
	s.d.Post(task.Toggle())
	return &Empty{}, nil
}

func (s *Service) Select(_ context.Context, req *SelectRequest) (*Empty, error) {
	if !slices.Contains(s.d.Status().Templates, req.Template) {
		return nil, status.Errorf(codes.NotFound, "template %q not found", req.Template)
	}
	s.d.Post(task.Select(req.Template))
	return &Empty{}, nil
}

func (s *Service) Process(_ context.Context, req *ProcessRequest) (*Empty, error) {
	var c content.Content
	if len(req.PNG) > 0 {
		img, err := content.NewImage(req.PNG)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "image: %v", err)
		}
		c = content.FromImage(img)
	} else {
		c = content.Text(req.Text)
	}
	if c.IsEmpty() {
		return nil, status.Error(codes.InvalidArgument, "no input to process")
	}
	if req.Template != "" {
		if _, err := s.Select(context.Background(), &SelectRequest{Template: req.Template}); err != nil {
			return nil, err
		}
	}
	s.d.Post(task.NewTrigger(c))
	return &Empty{}, nil
}

func (s *Service) History(_ context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	entries := s.d.HistoryEntries()
	if req.Limit > 0 && req.Limit < len(entries) {
		entries = entries[:req.Limit]
	}
	resp := &HistoryResponse{Entries: make([]HistoryItem, len(entries))}
	for i, e := range entries {
		resp.Entries[i] = NewHistoryItem(e)
	}
	return resp, nil
}

func (s *Service) Restore(_ context.Context, req *RestoreRequest) (*Empty, error) {
	for _, e := range s.d.HistoryEntries() {
		if e.ID == req.ID || e.String() == req.ID {
			s.d.Post(task.Restore(req.ID))
			return &Empty{}, nil
		}
	}
	return nil, status.Errorf(codes.NotFound, "history entry %q not found", req.ID)
}

func logRequests(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	slog.Debug("control request",
		"method", info.FullMethod,
		"elapsed", time.Since(start),
		"code", status.Code(err).String(),
	)
	return resp, err
}

package control

import (
	"context"

	"google.golang.org/grpc"
)

// server is the handler surface the descriptor dispatches to.
type server interface {
	Status(context.Context, *Empty) (*StatusResponse, error)
	Toggle(context.Context, *Empty) (*Empty, error)
	Select(context.Context, *SelectRequest) (*Empty, error)
	Process(context.Context, *ProcessRequest) (*Empty, error)
	History(context.Context, *HistoryRequest) (*HistoryResponse, error)
	Restore(context.Context, *RestoreRequest) (*Empty, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Status", Handler: unary(server.Status)},
		{MethodName: "Toggle", Handler: unary(server.Toggle)},
		{MethodName: "Select", Handler: unary(server.Select)},
		{MethodName: "Process", Handler: unary(server.Process)},
		{MethodName: "History", Handler: unary(server.History)},
		{MethodName: "Restore", Handler: unary(server.Restore)},
	},
	Metadata: "reclip/control",
}

// unary adapts a typed method expression to a grpc method handler.
func unary[Req, Resp any](fn func(server, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(server)
		if interceptor == nil {
			return fn(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(ctx)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return fn(s, ctx, req.(*Req))
		})
	}
}

func fullMethod(ctx context.Context) string {
	if m, ok := grpc.Method(ctx); ok {
		return m
	}
	return ""
}

func method(name string) string { return "/" + serviceName + "/" + name }

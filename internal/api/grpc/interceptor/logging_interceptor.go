package interceptor

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"camrent-backend/internal/logger"
	"camrent-backend/internal/metrics"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "x-request-id"

// requestContext reuses the caller's request id or mints one, and echoes it
// back in the response header.
func requestContext(ctx context.Context) context.Context {
	id := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(RequestIDHeader); len(ids) > 0 && ids[0] != "" {
			id = ids[0]
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, id))
	return logger.WithRequestID(ctx, id)
}

func finish(ctx context.Context, method string, started time.Time, err error) {
	code := status.Code(err)
	metrics.ObserveRequest("grpc", method, code.String(), started)
	args := []any{"method", method, "code", code.String(), "duration", time.Since(started)}
	switch code {
	case codes.OK:
		logger.InfoContext(ctx, "gRPC call", args...)
	case codes.Internal, codes.Unavailable, codes.Unknown:
		logger.ErrorContext(ctx, "gRPC call failed", append(args, "error", err)...)
	default:
		logger.WarnContext(ctx, "gRPC call rejected", append(args, "error", err)...)
	}
}

func recovered(ctx context.Context, method string, p any) error {
	logger.ErrorContext(ctx, "gRPC handler panicked", "method", method, "panic", p, "stack", string(debug.Stack()))
	return status.Errorf(codes.Internal, "internal error")
}

// Unary returns a server interceptor that tags every call with a request id,
// logs it and records its latency.
func Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		started := time.Now()
		ctx = requestContext(ctx)
		defer func() {
			if p := recover(); p != nil {
				err = recovered(ctx, info.FullMethod, p)
			}
			finish(ctx, info.FullMethod, started, err)
		}()
		return handler(ctx, req)
	}
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }

// Stream is Unary for streaming calls.
func Stream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		started := time.Now()
		ctx := requestContext(ss.Context())
		defer func() {
			if p := recover(); p != nil {
				err = recovered(ctx, info.FullMethod, p)
			}
			finish(ctx, info.FullMethod, started, err)
		}()
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
	}
}

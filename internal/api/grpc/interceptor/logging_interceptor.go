package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"boardgame-rental-backend/internal/logger"
)

// LoggingInterceptor logs every RPC and turns handler panics into Internal errors.
type LoggingInterceptor struct{}

func NewLoggingInterceptor() *LoggingInterceptor {
	return &LoggingInterceptor{}
}

// Unary returns a server interceptor function that logs unary RPCs
func (i *LoggingInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("gRPC handler panicked", "method", info.FullMethod, "panic", r)
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
			i.log(info.FullMethod, start, err)
		}()
		return handler(ctx, req)
	}
}

// Stream returns a server interceptor function that logs streaming RPCs,
// such as health Watch.
func (i *LoggingInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("gRPC stream panicked", "method", info.FullMethod, "panic", r)
				err = status.Error(codes.Internal, "internal error")
			}
			i.log(info.FullMethod, start, err)
		}()
		return handler(srv, ss)
	}
}

func (i *LoggingInterceptor) log(method string, start time.Time, err error) {
	code := status.Code(err)
	args := []any{"method", method, "code", code.String(), "duration", time.Since(start)}
	switch code {
	case codes.OK, codes.Canceled:
		logger.Debug("gRPC call", args...)
	case codes.Internal, codes.Unknown, codes.DataLoss:
		logger.Error("gRPC call failed", append(args, "error", err)...)
	default:
		logger.Warn("gRPC call rejected", append(args, "error", err)...)
	}
}

package server

import (
	"context"
	"time"

	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpcrecovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpcvalidator "github.com/grpc-ecosystem/go-grpc-middleware/validator"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/emrgen/grantcore/internal/metrics"
)

// UnaryServerInterceptor is the interceptor chain of the grpc server.
// Panics become Internal errors, every call is timed, service errors are
// mapped to status codes and malformed requests are rejected first.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return grpcmiddleware.ChainUnaryServer(
		grpcrecovery.UnaryServerInterceptor(grpcrecovery.WithRecoveryHandler(func(p any) error {
			logrus.Errorf("panic in grpc handler: %v", p)
			return status.Errorf(codes.Internal, "internal error")
		})),
		UnaryGrpcRequestTimeInterceptor(),
		UnaryErrorInterceptor(),
		grpcvalidator.UnaryServerInterceptor(),
	)
}

// UnaryErrorInterceptor maps service errors to grpc status errors.
func UnaryErrorInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			return nil, toStatus(err)
		}
		return resp, nil
	}
}

func UnaryGrpcRequestTimeInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		reqTime := time.Since(start)

		code := status.Code(err)
		metrics.RPCDuration.WithLabelValues(info.FullMethod, code.String()).Observe(reqTime.Seconds())
		logrus.Debugf("request time: %v: %v (%v)", info.FullMethod, reqTime, code)
		return resp, err
	}
}

func UnaryRequestTimeInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req any,
		reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		reqTime := time.Since(start)
		logrus.Debugf("request time: %v: %v", method, reqTime)
		return err
	}
}

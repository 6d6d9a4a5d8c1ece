package feed

import (
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"openfront/engine/internal/logging"
)

// StreamInterceptor logs every feed stream and turns a handler panic into an Internal
// status so one broken client cannot take the process down.
func StreamInterceptor(logger *logging.Logger) grpc.StreamServerInterceptor {
	if logger == nil {
		logger = logging.L()
	}
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		started := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error("feed stream panicked", logging.String("method", info.FullMethod), logging.String("panic", fmt.Sprint(recovered)))
				err = status.Error(codes.Internal, "internal error")
			}
			logger.Debug("feed stream closed",
				logging.String("method", info.FullMethod),
				logging.Duration("elapsed", time.Since(started)),
				logging.String("code", status.Code(err).String()),
			)
		}()
		return handler(srv, ss)
	}
}

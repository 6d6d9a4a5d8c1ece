package feed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"openfront/engine/internal/logging"
)

const (
	// UpdateFeedServiceName is the fully qualified gRPC service name.
	UpdateFeedServiceName = "openfront.engine.v1.UpdateFeed"
	streamUpdatesMethod   = "/" + UpdateFeedServiceName + "/StreamUpdates"

	// EncodingHeader announces the compressor used for every payload of the stream.
	EncodingHeader = "x-feed-encoding"
	// SubscriberHeader optionally names the subscriber so acknowledgements survive a
	// reconnect.
	SubscriberHeader = "x-subscriber-id"

	defaultFeedRateHz = 20
	subscriberBuffer  = 64
)

// UpdateFeedServer streams encoded update batches. The request names the first stream
// sequence wanted, or zero to resume after the subscriber's last acknowledgement.
type UpdateFeedServer interface {
	StreamUpdates(*wrapperspb.UInt64Value, grpc.ServerStreamingServer[wrapperspb.BytesValue]) error
}

// UpdateFeedServiceDesc describes the service for grpc.Server.RegisterService.
var UpdateFeedServiceDesc = grpc.ServiceDesc{
	ServiceName: UpdateFeedServiceName,
	HandlerType: (*UpdateFeedServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamUpdates",
			Handler:       streamUpdatesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "openfront/engine/feed.proto",
}

func streamUpdatesHandler(srv any, stream grpc.ServerStream) error {
	in := new(wrapperspb.UInt64Value)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(UpdateFeedServer).StreamUpdates(in, &grpc.GenericServerStream[wrapperspb.UInt64Value, wrapperspb.BytesValue]{ServerStream: stream})
}

// RegisterUpdateFeedServer attaches srv to registrar.
func RegisterUpdateFeedServer(registrar grpc.ServiceRegistrar, srv UpdateFeedServer) {
	registrar.RegisterService(&UpdateFeedServiceDesc, srv)
}

// UpdateFeedClient is the client side of the UpdateFeed service.
type UpdateFeedClient struct {
	cc grpc.ClientConnInterface
}

// NewUpdateFeedClient wraps a client connection.
func NewUpdateFeedClient(cc grpc.ClientConnInterface) *UpdateFeedClient {
	return &UpdateFeedClient{cc: cc}
}

// StreamUpdates opens the server stream starting at sequence from.
func (c *UpdateFeedClient) StreamUpdates(ctx context.Context, from uint64, opts ...grpc.CallOption) (grpc.ServerStreamingClient[wrapperspb.BytesValue], error) {
	stream, err := c.cc.NewStream(ctx, &UpdateFeedServiceDesc.Streams[0], streamUpdatesMethod, opts...)
	if err != nil {
		return nil, err
	}
	client := &grpc.GenericClientStream[wrapperspb.UInt64Value, wrapperspb.BytesValue]{ClientStream: stream}
	if err := client.SendMsg(wrapperspb.UInt64(from)); err != nil {
		return nil, err
	}
	if err := client.CloseSend(); err != nil {
		return nil, err
	}
	return client, nil
}

// ServiceOption customises the behaviour of the gRPC feed service.
type ServiceOption func(*Service)

// tickerFactory constructs cancellable tick channels for throttled streaming.
type tickerFactory func(time.Duration) (<-chan time.Time, func())

// WithCompressor overrides the default payload compressor.
func WithCompressor(compressor Compressor) ServiceOption {
	return func(s *Service) {
		if compressor != nil {
			s.compressor = compressor
		}
	}
}

// WithTickerFactory overrides the throttling ticker factory (used in tests).
func WithTickerFactory(factory tickerFactory) ServiceOption {
	return func(s *Service) {
		if factory != nil {
			s.newTicker = factory
		}
	}
}

// WithServiceLogger routes stream lifecycle logs.
func WithServiceLogger(logger *logging.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service implements UpdateFeedServer on top of a Stream.
type Service struct {
	stream     *Stream
	compressor Compressor
	newTicker  tickerFactory
	logger     *logging.Logger
	anonymous  atomic.Uint64
}

// NewService wires the gRPC service to the frame stream.
func NewService(stream *Stream, opts ...ServiceOption) *Service {
	service := &Service{stream: stream, compressor: NewGZIPCompressor(), newTicker: defaultTickerFactory, logger: logging.L()}
	for _, opt := range opts {
		if opt != nil {
			opt(service)
		}
	}
	return service
}

func defaultTickerFactory(interval time.Duration) (<-chan time.Time, func()) {
	ticker := time.NewTicker(interval)
	return ticker.C, ticker.Stop
}

// StreamUpdates relays compressed update batches to a connected client.
func (s *Service) StreamUpdates(req *wrapperspb.UInt64Value, stream grpc.ServerStreamingServer[wrapperspb.BytesValue]) error {
	if s == nil || s.stream == nil {
		return status.Error(codes.FailedPrecondition, "streaming unavailable")
	}
	ctx := stream.Context()

	//1.- Announce the encoding before the first payload.
	if err := stream.SendHeader(metadata.Pairs(EncodingHeader, s.compressor.Name())); err != nil {
		return err
	}

	subscriberID, named := s.subscriberID(ctx)
	if !named {
		defer s.stream.Remove(subscriberID)
	}
	sub, err := s.stream.Subscribe(subscriberID, req.GetValue(), subscriberBuffer)
	if err != nil {
		if errors.Is(err, ErrSubscriberActive) {
			return status.Error(codes.AlreadyExists, err.Error())
		}
		return status.Errorf(codes.Internal, "subscribe: %v", err)
	}
	defer sub.Close()
	s.logger.Info("feed subscriber attached", logging.String("subscriber", subscriberID), logging.Uint64("from", req.GetValue()))

	tickCh, stop := s.newTicker(time.Second / defaultFeedRateHz)
	defer stop()

	var pending []Envelope
	for {
		select {
		case <-ctx.Done():
			//2.- Surface context cancellation so clients can retry.
			if errors.Is(ctx.Err(), context.Canceled) {
				return status.Error(codes.Canceled, "stream cancelled")
			}
			return status.Error(codes.DeadlineExceeded, "stream deadline exceeded")
		case env := <-sub.Events():
			//3.- Buffer frames so they are flushed at the throttled cadence.
			pending = append(pending, env)
		case <-tickCh:
			//4.- Flush in sequence order and acknowledge what the transport accepted.
			for len(pending) > 0 {
				env := pending[0]
				pending = pending[1:]
				compressed, err := s.compressor.Compress(env.Payload)
				if err != nil {
					return status.Errorf(codes.Internal, "compress frame: %v", err)
				}
				if err := stream.Send(wrapperspb.Bytes(compressed)); err != nil {
					return err
				}
				if err := sub.Ack(env.Sequence); err != nil {
					return status.Error(codes.Aborted, fmt.Sprintf("subscriber %s fell behind: %v", subscriberID, err))
				}
			}
		}
	}
}

// subscriberID reports whether the client named itself; anonymous state is dropped on
// disconnect.
func (s *Service) subscriberID(ctx context.Context) (string, bool) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(SubscriberHeader); len(values) > 0 && values[0] != "" {
			return values[0], true
		}
	}
	return fmt.Sprintf("grpc-anon-%d", s.anonymous.Add(1)), false
}

var _ UpdateFeedServer = (*Service)(nil)

package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/identity"
)

// SubscribeMethod is the full gRPC method name of the event stream.
const SubscribeMethod = "/muzz.realtime.v1.Realtime/Subscribe"

// DefaultOutboxSize bounds how many events may wait for a slow stream.
const DefaultOutboxSize = 64

var errOutboxFull = errors.New("outbox full")

// RealtimeServer is the server API of muzz.realtime.v1.Realtime:
//
//	rpc Subscribe(google.protobuf.Empty) returns (stream google.protobuf.Struct);
type RealtimeServer interface {
	Subscribe(*emptypb.Empty, grpc.ServerStream) error
}

// RealtimeServiceDesc describes the service without generated stubs; the
// messages are protobuf well-known types.
var RealtimeServiceDesc = grpc.ServiceDesc{
	ServiceName: "muzz.realtime.v1.Realtime",
	HandlerType: (*RealtimeServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "muzz/realtime/v1/realtime.proto",
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(RealtimeServer).Subscribe(in, stream)
}

// StreamService binds gRPC subscribers to presence. The caller is
// identified by the "authorization: Bearer <token>" metadata.
type StreamService struct {
	registry   Registry
	auth       Authenticator
	outboxSize int
	log        *slog.Logger
}

func NewStreamService(registry Registry, auth Authenticator, log *slog.Logger) *StreamService {
	return &StreamService{
		registry:   registry,
		auth:       auth,
		outboxSize: DefaultOutboxSize,
		log:        log.With("component", "realtime_stream"),
	}
}

// Register attaches the service to a gRPC server.
func (s *StreamService) Register(srv *grpc.Server) {
	srv.RegisterService(&RealtimeServiceDesc, s)
}

// Subscribe joins the caller's presence and streams events until the
// client goes away. The first event is always "joined".
func (s *StreamService) Subscribe(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ctx := stream.Context()
	userID, err := s.authenticate(ctx)
	if err != nil {
		return err
	}

	conn := &streamConn{id: "grpc:" + uuid.NewString(), outbox: make(chan Event, s.outboxSize)}
	s.registry.Join(userID, conn)
	defer s.registry.Leave(conn)
	s.log.Debug("subscribed", "user_id", userID, "conn", conn.id)

	joined, err := NewEvent(EventJoined, map[string]uint64{"userId": userID})
	if err != nil {
		return svcErr.Map(err)
	}
	if err := send(stream, joined); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("unsubscribed", "user_id", userID, "conn", conn.id)
			return nil
		case ev := <-conn.outbox:
			if err := send(stream, ev); err != nil {
				return err
			}
		}
	}
}

func (s *StreamService) authenticate(ctx context.Context) (uint64, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	var token string
	if values := md.Get("authorization"); len(values) > 0 {
		token, _ = identity.BearerToken(values[0])
	}
	return s.auth.UserID(token)
}

func send(stream grpc.ServerStream, ev Event) error {
	msg, err := ev.Struct()
	if err != nil {
		return svcErr.Map(err)
	}
	return stream.SendMsg(msg)
}

// streamConn queues events for the Subscribe loop, which is the only
// writer on the stream.
type streamConn struct {
	id     string
	outbox chan Event
}

func (c *streamConn) ID() string { return c.id }

func (c *streamConn) Push(ev Event) error {
	select {
	case c.outbox <- ev:
		return nil
	default:
		return errOutboxFull
	}
}

// Subscribe opens the event stream as the user token was issued for.
func Subscribe(ctx context.Context, cc grpc.ClientConnInterface, token string) (grpc.ClientStream, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	stream, err := cc.NewStream(ctx, &RealtimeServiceDesc.Streams[0], SubscribeMethod)
	if err != nil {
		return nil, err
	}
	// io.EOF means the server already ended the call; RecvMsg reports why.
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return stream, nil
}

// RecvEvent reads one event from a client-side Subscribe stream.
func RecvEvent(stream grpc.ClientStream) (Event, error) {
	msg := new(structpb.Struct)
	if err := stream.RecvMsg(msg); err != nil {
		return Event{}, err
	}
	fields := msg.AsMap()
	typ, _ := fields["type"].(string)
	return NewEvent(typ, fields["data"])
}

package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	socketio "github.com/googollee/go-socket.io"

	"github.com/oggyb/muzz-match/internal/identity"
)

// Authenticator resolves a bearer token to the caller's user id.
type Authenticator interface {
	UserID(token string) (uint64, error)
}

var errJoinMismatch = errors.New("join id does not match the authenticated user")

// SocketServer is the socket.io transport:
//
//	client -> server  join(userId)
//	server -> client  new_message(Message), match(...), read(...)
//
// The socket authenticates on connect; join only binds the connection to
// presence, and only for the authenticated user.
type SocketServer struct {
	io       *socketio.Server
	registry Registry
	auth     Authenticator
	log      *slog.Logger

	outboxSize int
}

func NewSocketServer(registry Registry, auth Authenticator, log *slog.Logger) *SocketServer {
	s := &SocketServer{
		io:       socketio.NewServer(nil),
		registry: registry,
		auth:     auth,
		log:      log.With("component", "socketio"),

		outboxSize: DefaultOutboxSize,
	}

	s.io.OnConnect("/", s.onConnect)
	s.io.OnEvent("/", "join", s.onJoin)
	s.io.OnError("/", func(c socketio.Conn, err error) {
		if c == nil {
			s.log.Warn("socket error", "err", err)
			return
		}
		s.log.Warn("socket error", "sid", c.ID(), "err", err)
	})
	s.io.OnDisconnect("/", s.onDisconnect)
	return s
}

// socketSession is the per-socket context: the authenticated user and,
// once joined, the presence connection.
type socketSession struct {
	userID uint64

	mu   sync.Mutex
	conn *socketConn
}

func sessionOf(c socketio.Conn) *socketSession {
	sess, _ := c.Context().(*socketSession)
	return sess
}

func (s *SocketServer) onConnect(c socketio.Conn) error {
	u := c.URL()
	token := tokenFromRequest(c.RemoteHeader(), u.Query().Get("token"))
	userID, err := s.auth.UserID(token)
	if err != nil {
		s.log.Debug("rejected socket", "sid", c.ID(), "err", err)
		return err
	}
	c.SetContext(&socketSession{userID: userID})
	s.log.Debug("connected", "sid", c.ID(), "user_id", userID)
	return nil
}

func (s *SocketServer) onJoin(c socketio.Conn, raw json.RawMessage) {
	sess := sessionOf(c)
	var authed uint64
	if sess != nil {
		authed = sess.userID
	}
	requested, err := ParseUserID(raw)
	if err != nil || sess == nil || requested != authed {
		if err == nil {
			err = errJoinMismatch
		}
		s.log.Warn("join rejected", "sid", c.ID(), "user_id", authed, "err", err)
		c.Emit("error", err.Error())
		return
	}

	sess.mu.Lock()
	if sess.conn == nil {
		size := s.outboxSize
		if size <= 0 {
			size = DefaultOutboxSize
		}
		sess.conn = newSocketConn(c, size)
	}
	conn := sess.conn
	sess.mu.Unlock()

	s.registry.Join(authed, conn)
	ev, err := NewEvent(EventJoined, map[string]uint64{"userId": authed})
	if err == nil {
		_ = conn.Push(ev)
	}
}

func (s *SocketServer) onDisconnect(c socketio.Conn, reason string) {
	if sess := sessionOf(c); sess != nil {
		sess.mu.Lock()
		conn := sess.conn
		sess.conn = nil
		sess.mu.Unlock()
		if conn != nil {
			s.registry.Leave(conn)
			conn.Close()
		}
	}
	s.log.Debug("disconnected", "sid", c.ID(), "reason", reason)
}

// ServeHTTP mounts the socket.io endpoint (usually at /socket.io/).
func (s *SocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHTTP(w, r)
}

// Serve runs the socket.io event loop; it blocks until Close.
func (s *SocketServer) Serve() error { return s.io.Serve() }

func (s *SocketServer) Close() error { return s.io.Close() }

var errConnClosed = errors.New("connection closed")

// socketConn adapts a socket.io connection to Conn. Emit may block on a
// slow peer, so events are queued and written by a dedicated goroutine;
// a full queue drops the event like streamConn does.
type socketConn struct {
	c      socketio.Conn
	outbox chan Event
	done   chan struct{}
	once   sync.Once
}

func newSocketConn(c socketio.Conn, size int) *socketConn {
	sc := &socketConn{
		c:      c,
		outbox: make(chan Event, size),
		done:   make(chan struct{}),
	}
	go sc.writeLoop()
	return sc
}

func (s *socketConn) ID() string { return "sio:" + s.c.ID() }

func (s *socketConn) Push(ev Event) error {
	select {
	case <-s.done:
		return errConnClosed
	default:
	}
	select {
	case s.outbox <- ev:
		return nil
	default:
		return errOutboxFull
	}
}

// Close stops the writer; queued events are discarded.
func (s *socketConn) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *socketConn) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.outbox:
			s.c.Emit(ev.Type, ev.Data)
		}
	}
}

// ParseUserID accepts a user id sent as a JSON number or a numeric string
// and returns the canonical uint64 form used by presence and delivery.
func ParseUserID(raw json.RawMessage) (uint64, error) {
	text := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unquoted)
	}
	id, err := strconv.ParseUint(text, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", string(raw))
	}
	return id, nil
}

// tokenFromRequest prefers the Authorization header and falls back to a
// query parameter for browser socket clients.
func tokenFromRequest(h http.Header, query string) string {
	if token, ok := identity.BearerToken(h.Get("Authorization")); ok {
		return token
	}
	return strings.TrimSpace(query)
}

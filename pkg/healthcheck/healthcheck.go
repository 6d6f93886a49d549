package healthcheck

import (
	"context"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
)

// Requests sent by clients, one byte per connection.
const (
	ReqReady = 'r'
	ReqStop  = 's'
)

// Responses sent by the server.
const (
	ReadyMsg = 0x01
	AckMsg   = 0x02
)

const requestTimeout = 5 * time.Second

var ErrUnknownRequest = errors.New("unknown request")

// HealthCheckServer serves the control socket of a recording: clients can
// wait for the recording to be started and ask it to stop.
type HealthCheckServer struct {
	ln         net.Listener
	readyCh    chan struct{}
	stopOnce   sync.Once
	onStop     func()
	socketPath string
	logger     log.Logger
}

// NewHealthCheckServer creates a new health check server. onStop is called
// once, on the first stop request.
func NewHealthCheckServer(socketPath string, logger log.Logger, onStop func()) *HealthCheckServer {
	l := logger.With().Str("component", "healthcheck").Logger()
	return &HealthCheckServer{
		socketPath: socketPath,
		readyCh:    make(chan struct{}),
		onStop:     onStop,
		logger:     l,
	}
}

// InitializeListener starts the UDS listener for accepting connections.
func (s *HealthCheckServer) InitializeListener(ctx context.Context) error {
	// Remove socket if it already exists.
	os.Remove(s.socketPath)

	// Create UDS listener.
	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return errors.Wrap(err, "failed to listen on UDS")
	}
	s.ln = ln

	// Start accepting connections.
	go s.acceptConnections(ctx)

	return nil
}

// NotifyReadiness should be called once the recording started.
func (s *HealthCheckServer) NotifyReadiness() {
	s.logger.Debug().Msg("marking readiness")
	close(s.readyCh)
}

// ShutdownListener gracefully shuts down the listener and removes the socket.
func (s *HealthCheckServer) ShutdownListener() error {
	// Ensure the listener is closed properly.
	if s.ln != nil {
		if err := s.ln.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("error closing listener")
		}
	}

	// Remove the socket file if it exists.
	if err := os.Remove(s.socketPath); err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug().Err(err).Msgf("error removing socket")
			return err
		}
		s.logger.Debug().Msg("ignoring removing socket file, as it is already removed")
	}

	return nil
}

// acceptConnections listens for incoming connections and handles them.
func (s *HealthCheckServer) acceptConnections(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug().Msg("stopping accepting connections")
			return // Shutdown gracefully.
		default:
			// Accept connections.
			conn, err := s.ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					s.logger.Debug().Msg("ignoring accepting connection as it is closed")
					return
				}
				s.logger.Warn().Err(err).Msg("accept error")
				continue
			}

			// Handle each connection.
			go s.processConnection(ctx, conn)
		}
	}
}

// processConnection reads the request of a connection and responds to it.
func (s *HealthCheckServer) processConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	req := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(requestTimeout))
	if n, err := conn.Read(req); err != nil || n == 0 {
		s.logger.Debug().Err(err).Msg("failed to read request")
		return
	}
	conn.SetReadDeadline(time.Time{})

	switch req[0] {
	case ReqReady:
		select {
		// Recording started, send ready message.
		case <-s.readyCh:
			s.reply(conn, ReadyMsg)
		case <-ctx.Done():
			// Graceful shutdown handling.
			s.logger.Debug().Msg("ignoring sending readiness message as context is canceled")
		}
	case ReqStop:
		s.logger.Debug().Msg("stop requested")
		s.stopOnce.Do(func() {
			if s.onStop != nil {
				s.onStop()
			}
		})
		s.reply(conn, AckMsg)
	default:
		s.logger.Debug().Err(ErrUnknownRequest).Uint8("request", req[0]).Msg("ignoring request")
	}
}

func (s *HealthCheckServer) reply(conn net.Conn, msg byte) {
	if err := s.safeWrite(conn, []byte{msg}); err != nil {
		if !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
			s.logger.Debug().Err(err).Msg("failed to write")
		}
	}
}

func (s *HealthCheckServer) safeWrite(conn net.Conn, data []byte) error {
	_, err := conn.Write(data)
	if err != nil {
		switch {
		case errors.Is(err, syscall.EPIPE):
			conn.Close()
			return errors.Wrap(err, "peer closed the connection")
		case errors.Is(err, syscall.ECONNRESET):
			conn.Close()
			return errors.Wrap(err, "peer reset the connection")
		default:
			return errors.Wrap(err, "failed to write")
		}
	}
	return nil
}

package healthcheck

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockConn implements the net.Conn interface for testing purposes
type MockConn struct {
	mock.Mock
}

// Implementing the net.Conn interface methods

func (m *MockConn) Read(b []byte) (n int, err error) {
	args := m.Called(b)
	return args.Int(0), args.Error(1)
}

func (m *MockConn) Write(b []byte) (n int, err error) {
	args := m.Called(b)
	return args.Int(0), args.Error(1)
}

func (m *MockConn) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConn) LocalAddr() net.Addr {
	args := m.Called()
	return args.Get(0).(net.Addr)
}

func (m *MockConn) RemoteAddr() net.Addr {
	args := m.Called()
	return args.Get(0).(net.Addr)
}

func (m *MockConn) SetDeadline(t time.Time) error {
	args := m.Called(t)
	return args.Error(0)
}

func (m *MockConn) SetReadDeadline(t time.Time) error {
	args := m.Called(t)
	return args.Error(0)
}

func (m *MockConn) SetWriteDeadline(t time.Time) error {
	args := m.Called(t)
	return args.Error(0)
}

// socketPath returns a socket path under a short directory: t.TempDir is
// named after the test and can exceed the unix socket path limit.
func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "xpa")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	return filepath.Join(dir, "server.sock")
}

func newConn(req byte) *MockConn {
	mockConn := new(MockConn)
	mockConn.On("Close").Return(nil)
	mockConn.On("SetReadDeadline", mock.Anything).Return(nil)
	mockConn.On("Read", mock.AnythingOfType("[]uint8")).
		Run(func(args mock.Arguments) {
			args.Get(0).([]byte)[0] = req
		}).
		Return(1, nil)
	return mockConn
}

func TestHealthCheckServer_InitializeListener(t *testing.T) {
	t.Run("should start UDS listener without errors", func(t *testing.T) {
		// Accepting goroutines can outlive the test.
		logger := zerolog.Nop()
		hcs := NewHealthCheckServer(socketPath(t), logger, nil)

		err := hcs.InitializeListener(context.Background())
		require.NoError(t, err)
		defer hcs.ShutdownListener()

		_, err = os.Stat(hcs.socketPath)
		assert.NoError(t, err)
	})
}

func TestHealthCheckServer_NotifyReadiness(t *testing.T) {
	t.Run("should write readiness message when ready", func(t *testing.T) {
		logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
		hcs := NewHealthCheckServer(socketPath(t), logger, nil)

		// Trigger the readiness.
		hcs.NotifyReadiness()

		// Test that the readyCh channel is closed.
		assert.Panics(t, func() {
			hcs.readyCh <- struct{}{}
		})

		mockConn := newConn(ReqReady)
		mockConn.On("Write", []byte{ReadyMsg}).Return(1, nil)

		hcs.processConnection(context.Background(), mockConn)

		mockConn.AssertExpectations(t)
	})

	t.Run("should not answer when context is canceled before readiness", func(t *testing.T) {
		logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
		hcs := NewHealthCheckServer(socketPath(t), logger, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		mockConn := newConn(ReqReady)

		hcs.processConnection(ctx, mockConn)

		mockConn.AssertNotCalled(t, "Write", mock.Anything)
	})
}

func TestHealthCheckServer_Stop(t *testing.T) {
	t.Run("should call the stop callback once and ack", func(t *testing.T) {
		logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()

		var calls atomic.Int32
		hcs := NewHealthCheckServer(socketPath(t), logger, func() { calls.Add(1) })

		for range 2 {
			mockConn := newConn(ReqStop)
			mockConn.On("Write", []byte{AckMsg}).Return(1, nil)

			hcs.processConnection(context.Background(), mockConn)

			mockConn.AssertExpectations(t)
		}
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("should ignore unknown requests", func(t *testing.T) {
		logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
		hcs := NewHealthCheckServer(socketPath(t), logger, func() { t.Fatal("unexpected stop") })

		mockConn := newConn('x')

		hcs.processConnection(context.Background(), mockConn)

		mockConn.AssertNotCalled(t, "Write", mock.Anything)
	})
}

func TestHealthCheckServer_Roundtrip(t *testing.T) {
	// Accepting goroutines can outlive the test.
	logger := zerolog.Nop()

	stopped := make(chan struct{})
	hcs := NewHealthCheckServer(socketPath(t), logger, func() { close(stopped) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, hcs.InitializeListener(ctx))
	defer hcs.ShutdownListener()

	ready := make(chan byte, 1)
	go func() {
		resp, err := Request(hcs.socketPath, ReqReady, 5*time.Second)
		if err == nil {
			ready <- resp
		}
		close(ready)
	}()

	hcs.NotifyReadiness()

	select {
	case resp := <-ready:
		assert.Equal(t, byte(ReadyMsg), resp)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for readiness")
	}

	require.NoError(t, RequestStop(hcs.socketPath, 5*time.Second))

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("stop callback not called")
	}
}

func TestSocketPath_Length(t *testing.T) {
	t.Run("should fit the unix socket path limit in nested subtests with long names", func(t *testing.T) {
		path := socketPath(t)
		require.Less(t, len(path), 104)

		ln, err := net.Listen("unix", path)
		require.NoError(t, err)
		require.NoError(t, ln.Close())
	})
}

func TestRequestStop_NoServer(t *testing.T) {
	err := RequestStop(socketPath(t), time.Second)
	assert.Error(t, err)
}

func TestHealthCheckServer_ShutdownListener(t *testing.T) {
	t.Run("should properly shut down listener and remove socket", func(t *testing.T) {
		// Accepting goroutines can outlive the test.
		logger := zerolog.Nop()
		hcs := NewHealthCheckServer(socketPath(t), logger, nil)

		ln, err := net.Listen("unix", hcs.socketPath)
		require.NoError(t, err)
		hcs.ln = ln

		// Start listener in a goroutine.
		go hcs.acceptConnections(context.Background())

		// Stop listener.
		err = hcs.ShutdownListener()
		assert.Nil(t, err)

		// Verify the listener is closed properly.
		fi, err := os.Stat(hcs.socketPath)
		assert.Nil(t, fi)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

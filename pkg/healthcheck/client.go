package healthcheck

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

var ErrUnexpectedResponse = errors.New("unexpected response")

// Request sends req to the server listening on socketPath and returns its
// one-byte response. timeout bounds connecting and waiting for the
// response.
func Request(socketPath string, req byte, timeout time.Duration) (byte, error) {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return 0, errors.Wrap(err, "failed connecting")
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte{req}); err != nil {
		return 0, errors.Wrap(err, "failed to send request")
	}

	buf := make([]byte, 1)
	n, err := conn.Read(buf)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read response")
	}
	if n == 0 {
		return 0, ErrUnexpectedResponse
	}

	return buf[0], nil
}

// RequestStop asks the recording listening on socketPath to stop.
func RequestStop(socketPath string, timeout time.Duration) error {
	resp, err := Request(socketPath, ReqStop, timeout)
	if err != nil {
		return err
	}
	if resp != AckMsg {
		return errors.Wrapf(ErrUnexpectedResponse, "%#x", resp)
	}

	return nil
}

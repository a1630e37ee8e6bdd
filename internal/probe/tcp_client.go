package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// TCPClient connects to host:port, sends message once and waits for a
// single reply. Connect timeouts, read timeouts and refusals are logged
// and reported as success, as is an interruption through ctx; other
// failures are returned.
func (r *Runner) TCPClient(ctx context.Context, host string, port int, message string) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	dialer := &net.Dialer{Timeout: r.config.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if isTimeout(err) || isRefused(err) {
			r.logger.Printf("[TCP] Connection failed: %v", err)
			return nil
		}
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	release := watchContext(ctx, conn)
	defer release()

	r.logger.Printf("[TCP] Connected to %s", addr)

	startTime := time.Now()
	// Write on a stream conn only returns early with an error
	if _, err := conn.Write([]byte(message)); err != nil {
		return fmt.Errorf("failed to send to %s: %w", addr, err)
	}
	r.logger.Printf("[TCP] Sent: %s", message)

	if err := conn.SetReadDeadline(time.Now().Add(r.config.ReadTimeout)); err != nil {
		return fmt.Errorf("failed to set read deadline: %w", err)
	}

	buffer := make([]byte, r.config.BufferSize)
	n, err := conn.Read(buffer)
	switch {
	case n > 0:
		r.logger.Printf("[TCP] Received reply: %s", decodeText(buffer[:n]))
		r.logger.Printf("[TCP] Round-trip time: %v", time.Since(startTime))
	case ctx.Err() != nil:
		r.logger.Printf("[TCP] Interrupted while waiting for a reply.")
	case err == nil || errors.Is(err, io.EOF):
		r.logger.Printf("[TCP] No reply (connection closed).")
	case isTimeout(err):
		r.logger.Printf("[TCP] Connection failed: %v", err)
	default:
		return fmt.Errorf("failed to receive from %s: %w", addr, err)
	}

	return nil
}

// Package probe implements the four connectivity modes: a sequential
// TCP server, a TCP client, a UDP server and a UDP client. Every mode
// performs raw byte exchange with a fixed reply and logs to the
// injected logger with a [TCP] or [UDP] prefix.
package probe

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"syscall"

	"github.com/uzadmin/nettool/internal/config"
	"github.com/uzadmin/nettool/internal/metrics"
)

// Runner runs one mode per call using a shared configuration and logger
type Runner struct {
	config *config.Config
	logger *log.Logger
}

// NewRunner creates a Runner
func NewRunner(cfg *config.Config, logger *log.Logger) *Runner {
	return &Runner{
		config: cfg,
		logger: logger,
	}
}

// TCPServer listens on port and serves connections until ctx is done
func (r *Runner) TCPServer(ctx context.Context, port int) error {
	server := NewTCPServer(r.config, r.logger)
	if err := server.Listen(port); err != nil {
		return err
	}
	return server.Serve(ctx)
}

// UDPServer listens on port and answers datagrams until ctx is done
func (r *Runner) UDPServer(ctx context.Context, port int) error {
	server := NewUDPServer(r.config, r.logger)
	if err := server.Listen(port); err != nil {
		return err
	}
	return server.Serve(ctx)
}

// decodeText renders received bytes as text, dropping invalid UTF-8
func decodeText(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

// peerHost keys statistics by remote host so that ephemeral client
// ports do not split one peer into many
func peerHost(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func logStats(logger *log.Logger, tag string, m *metrics.Metrics) {
	stats := m.GetStats()
	logger.Printf("%s Stopped: interactions=%d peers=%d bytes=%d replies=%d empty=%d failures=%d",
		tag, stats.Interactions, stats.Peers, stats.BytesReceived, stats.RepliesSent, stats.EmptyReads, stats.Failures)
	if stats.Interactions > 0 {
		logger.Printf("%s Service time: p50=%.3fms p95=%.3fms p99=%.3fms max=%.3fms avg=%.3fms",
			tag, stats.P50ServiceTime, stats.P95ServiceTime, stats.P99ServiceTime, stats.MaxServiceTime, stats.AvgServiceTime)
	}
}

// watchContext closes c when ctx ends; the returned func releases the
// watcher once the caller is done
func watchContext(ctx context.Context, c interface{ Close() error }) (release func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}

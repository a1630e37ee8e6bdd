package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

type call struct {
	handler string
	host    string
	port    int
	message string
}

// recordingHandlers remembers every invocation instead of touching the network
type recordingHandlers struct {
	calls []call
	err   error
}

func (h *recordingHandlers) TCPServer(_ context.Context, port int) error {
	h.calls = append(h.calls, call{handler: "tcp server", port: port})
	return h.err
}

func (h *recordingHandlers) TCPClient(_ context.Context, host string, port int, message string) error {
	h.calls = append(h.calls, call{handler: "tcp client", host: host, port: port, message: message})
	return h.err
}

func (h *recordingHandlers) UDPServer(_ context.Context, port int) error {
	h.calls = append(h.calls, call{handler: "udp server", port: port})
	return h.err
}

func (h *recordingHandlers) UDPClient(_ context.Context, host string, port int, message string) error {
	h.calls = append(h.calls, call{handler: "udp client", host: host, port: port, message: message})
	return h.err
}

func run(args ...string) (*recordingHandlers, string, int) {
	handlers := &recordingHandlers{}
	var out bytes.Buffer
	code := NewDispatcher("nettool", handlers, &out).Run(context.Background(), args)
	return handlers, out.String(), code
}

func TestDispatcher_InvokesExactlyOneHandler(t *testing.T) {
	tests := []struct {
		args []string
		want call
	}{
		{[]string{"tcp", "server", "9000"}, call{handler: "tcp server", port: 9000}},
		{[]string{"tcp", "client", "example.com", "9000", "hi"}, call{handler: "tcp client", host: "example.com", port: 9000, message: "hi"}},
		{[]string{"udp", "server", "9001"}, call{handler: "udp server", port: 9001}},
		{[]string{"udp", "client", "10.0.0.1", "9001", "yo"}, call{handler: "udp client", host: "10.0.0.1", port: 9001, message: "yo"}},
		{[]string{"TCP", "Server", "0"}, call{handler: "tcp server", port: 0}},
		{[]string{"Udp", "CLIENT", "h", "65535", "x"}, call{handler: "udp client", host: "h", port: 65535, message: "x"}},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			handlers, out, code := run(tt.args...)
			if code != ExitOK {
				t.Errorf("Run() = %d, want %d (output %q)", code, ExitOK, out)
			}
			if len(handlers.calls) != 1 {
				t.Fatalf("handler calls = %v, want exactly one", handlers.calls)
			}
			if handlers.calls[0] != tt.want {
				t.Errorf("call = %+v, want %+v", handlers.calls[0], tt.want)
			}
		})
	}
}

func TestDispatcher_DefaultMessages(t *testing.T) {
	for proto, want := range map[string]string{
		"tcp": "hello tcp",
		"udp": "hello udp",
	} {
		handlers, _, code := run(proto, "client", "localhost", "7000")
		if code != ExitOK {
			t.Fatalf("Run(%s) = %d, want %d", proto, code, ExitOK)
		}
		if got := handlers.calls[0].message; got != want {
			t.Errorf("%s default message = %q, want %q", proto, got, want)
		}
	}
}

func TestDispatcher_ExtraArgumentsIgnored(t *testing.T) {
	handlers, _, code := run("tcp", "server", "9000", "extra")
	if code != ExitOK {
		t.Errorf("Run() = %d, want %d", code, ExitOK)
	}
	if len(handlers.calls) != 1 || handlers.calls[0].port != 9000 {
		t.Errorf("calls = %+v, want one tcp server call on 9000", handlers.calls)
	}
}

func TestDispatcher_Usage(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"tcp"},
		{"tcp", "server"},
		{"bogus", "bogus"},
		{"tcp", "client", "localhost"},
	} {
		handlers, out, code := run(args...)
		if code != ExitUsage {
			t.Errorf("Run(%q) = %d, want %d", args, code, ExitUsage)
		}
		if len(handlers.calls) != 0 {
			t.Errorf("Run(%q) called %v, want no handler", args, handlers.calls)
		}
		for _, form := range []string{
			"nettool tcp server <port>",
			"nettool tcp client <host> <port> [message]",
			"nettool udp server <port>",
			"nettool udp client <host> <port> [message]",
		} {
			if !strings.Contains(out, form) {
				t.Errorf("Run(%q) usage missing %q:\n%s", args, form, out)
			}
		}
	}
}

func TestDispatcher_InvalidTokens(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"sctp", "server", "9000"}, "protocol error"},
		{[]string{"sctp", "nonsense", "9000"}, "protocol error"},
		{[]string{"tcp", "relay", "9000"}, "mode error"},
		{[]string{"udp", "", "9000"}, "mode error"},
		{[]string{"tcp", "relay", "not-a-port"}, "mode error"},
	}

	for _, tt := range tests {
		handlers, out, code := run(tt.args...)
		if code != ExitInvalidToken {
			t.Errorf("Run(%q) = %d, want %d", tt.args, code, ExitInvalidToken)
		}
		if !strings.Contains(out, tt.want) {
			t.Errorf("Run(%q) output = %q, want %q", tt.args, out, tt.want)
		}
		if len(handlers.calls) != 0 {
			t.Errorf("Run(%q) called %v, want no handler", tt.args, handlers.calls)
		}
	}
}

func TestDispatcher_InvalidPort(t *testing.T) {
	for _, args := range [][]string{
		{"tcp", "server", "http"},
		{"udp", "server", "65536"},
		{"tcp", "client", "localhost", "-1"},
		{"udp", "client", "localhost", "12.5"},
	} {
		handlers, out, code := run(args...)
		if code != ExitInvalidPort {
			t.Errorf("Run(%q) = %d, want %d", args, code, ExitInvalidPort)
		}
		if !strings.Contains(out, "invalid port") {
			t.Errorf("Run(%q) output = %q, want invalid port message", args, out)
		}
		if len(handlers.calls) != 0 {
			t.Errorf("Run(%q) called %v, want no handler", args, handlers.calls)
		}
	}
}

func TestDispatcher_HandlerFault(t *testing.T) {
	handlers := &recordingHandlers{err: errors.New("failed to listen on TCP port 80: permission denied")}
	var out bytes.Buffer

	code := NewDispatcher("nettool", handlers, &out).Run(context.Background(), []string{"tcp", "server", "80"})
	if code != ExitFault {
		t.Errorf("Run() = %d, want %d", code, ExitFault)
	}
	if !strings.Contains(out.String(), "permission denied") {
		t.Errorf("output = %q, want handler error", out.String())
	}
}

func TestParse_PortError(t *testing.T) {
	_, err := Parse([]string{"tcp", "server", "abc"})
	var portErr *PortError
	if !errors.As(err, &portErr) {
		t.Fatalf("Parse() error = %v, want *PortError", err)
	}
	if portErr.Value != "abc" {
		t.Errorf("Value = %q, want %q", portErr.Value, "abc")
	}
	if portErr.Unwrap() == nil {
		t.Error("Unwrap() = nil, want strconv error")
	}
}

func TestParse_TrimsPort(t *testing.T) {
	cmd, err := Parse([]string{"udp", "server", " 5353 "})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Port != 5353 {
		t.Errorf("Port = %d, want 5353", cmd.Port)
	}
}

// Package cli parses the positional command line and hands it to
// exactly one of the four connectivity modes.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Exit statuses returned by Dispatcher.Run
const (
	ExitOK           = 0
	ExitUsage        = 1
	ExitInvalidToken = 2
	ExitInvalidPort  = 3
	ExitFault        = 4
)

// Handlers runs the four modes. Servers block until ctx is done.
type Handlers interface {
	TCPServer(ctx context.Context, port int) error
	TCPClient(ctx context.Context, host string, port int, message string) error
	UDPServer(ctx context.Context, port int) error
	UDPClient(ctx context.Context, host string, port int, message string) error
}

// Dispatcher maps a command line onto Handlers
type Dispatcher struct {
	program  string
	handlers Handlers
	out      io.Writer
}

// NewDispatcher creates a Dispatcher printing usage and errors to out
func NewDispatcher(program string, handlers Handlers, out io.Writer) *Dispatcher {
	return &Dispatcher{
		program:  program,
		handlers: handlers,
		out:      out,
	}
}

// Run parses args, runs the selected mode and returns the exit status
func (d *Dispatcher) Run(ctx context.Context, args []string) int {
	cmd, err := Parse(args)
	if err != nil {
		return d.fail(err)
	}

	if err := d.Dispatch(ctx, cmd); err != nil {
		fmt.Fprintf(d.out, "error: %v\n", err)
		return ExitFault
	}
	return ExitOK
}

// Dispatch invokes the handler for cmd
func (d *Dispatcher) Dispatch(ctx context.Context, cmd *Command) error {
	switch {
	case cmd.Protocol == TCP && cmd.Mode == Server:
		return d.handlers.TCPServer(ctx, cmd.Port)
	case cmd.Protocol == TCP && cmd.Mode == Client:
		return d.handlers.TCPClient(ctx, cmd.Host, cmd.Port, cmd.Message)
	case cmd.Protocol == UDP && cmd.Mode == Server:
		return d.handlers.UDPServer(ctx, cmd.Port)
	case cmd.Protocol == UDP && cmd.Mode == Client:
		return d.handlers.UDPClient(ctx, cmd.Host, cmd.Port, cmd.Message)
	}
	return fmt.Errorf("unsupported command %s %s", cmd.Protocol, cmd.Mode)
}

func (d *Dispatcher) fail(err error) int {
	var (
		usageErr *UsageError
		tokenErr *TokenError
		portErr  *PortError
	)

	switch {
	case errors.As(err, &usageErr):
		d.PrintUsage()
		return ExitUsage
	case errors.As(err, &tokenErr):
		fmt.Fprintln(d.out, tokenErr.Error())
		return ExitInvalidToken
	case errors.As(err, &portErr):
		fmt.Fprintln(d.out, portErr.Error())
		return ExitInvalidPort
	default:
		fmt.Fprintf(d.out, "error: %v\n", err)
		return ExitFault
	}
}

// PrintUsage writes the four invocation forms
func (d *Dispatcher) PrintUsage() {
	fmt.Fprintln(d.out, "Usage:")
	fmt.Fprintf(d.out, "  TCP server: %s tcp server <port>\n", d.program)
	fmt.Fprintf(d.out, "  TCP client: %s tcp client <host> <port> [message]\n", d.program)
	fmt.Fprintf(d.out, "  UDP server: %s udp server <port>\n", d.program)
	fmt.Fprintf(d.out, "  UDP client: %s udp client <host> <port> [message]\n", d.program)
}

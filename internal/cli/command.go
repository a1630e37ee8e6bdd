package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// Protocol selects the transport
type Protocol string

// Mode selects which side of the exchange to run
type Mode string

const (
	TCP Protocol = "tcp"
	UDP Protocol = "udp"

	Server Mode = "server"
	Client Mode = "client"
)

// minArgs is the smallest accepted invocation: protocol, mode and one
// address component
const minArgs = 3

// DefaultMessage returns the payload a client sends when none is given
func DefaultMessage(p Protocol) string {
	return "hello " + string(p)
}

// Command is a fully parsed invocation
type Command struct {
	Protocol Protocol
	Mode     Mode
	Host     string
	Port     int
	Message  string
}

// UsageError means the invocation has the wrong shape
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string {
	return e.msg
}

// TokenError means a protocol or mode token is not recognized
type TokenError struct {
	Kind  string
	Value string
	Allow []string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("%s error: %q is not %s", e.Kind, e.Value, strings.Join(e.Allow, " or "))
}

// PortError means a port argument is not an integer in 0-65535
type PortError struct {
	Value string
	Err   error
}

func (e *PortError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid port %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("invalid port %q: out of range 0-65535", e.Value)
}

func (e *PortError) Unwrap() error {
	return e.Err
}

// Parse turns positional arguments (program name excluded) into a
// Command. The protocol is checked before the mode, and the port only
// once both are valid.
func Parse(args []string) (*Command, error) {
	if len(args) < minArgs {
		return nil, &UsageError{msg: "not enough arguments"}
	}

	cmd := &Command{}
	switch p := Protocol(strings.ToLower(args[0])); p {
	case TCP, UDP:
		cmd.Protocol = p
	default:
		return nil, &TokenError{Kind: "protocol", Value: args[0], Allow: []string{string(TCP), string(UDP)}}
	}

	switch m := Mode(strings.ToLower(args[1])); m {
	case Server, Client:
		cmd.Mode = m
	default:
		return nil, &TokenError{Kind: "mode", Value: args[1], Allow: []string{string(Server), string(Client)}}
	}

	portArg := 2
	if cmd.Mode == Client {
		cmd.Host = args[2]
		portArg = 3
		if len(args) <= portArg {
			return nil, &UsageError{msg: "client mode needs <host> <port>"}
		}
		cmd.Message = DefaultMessage(cmd.Protocol)
		if len(args) > 4 {
			cmd.Message = args[4]
		}
	}

	port, err := parsePort(args[portArg])
	if err != nil {
		return nil, err
	}
	cmd.Port = port

	return cmd, nil
}

func parsePort(value string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, &PortError{Value: value, Err: err}
	}
	if port < 0 || port > 65535 {
		return 0, &PortError{Value: value}
	}
	return port, nil
}

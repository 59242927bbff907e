package service

import (
	"context"
	"errors"
	"io"

	"github.com/mnehpets/lspwire/jsonrpc"
)

// ErrExited is returned by operations attempted after the session has exited.
var ErrExited = errors.New("language server has exited")

// ClientSocket is the loopback connection carrying server-to-client requests
// out and their responses back in.
type ClientSocket struct {
	rx      <-chan jsonrpc.Outbound
	done    <-chan struct{}
	pending *PendingRequests
	state   *ServerState
}

// State returns the session state the socket is gated on.
func (s *ClientSocket) State() *ServerState {
	return s.state
}

// Split returns the two halves of the socket. They may be used from
// different goroutines without further synchronization.
func (s *ClientSocket) Split() (*RequestStream, *ResponseSink) {
	return &RequestStream{rx: s.rx, done: s.done, state: s.state},
		&ResponseSink{pending: s.pending, state: s.state}
}

// RequestStream yields the messages the server queued for the client.
type RequestStream struct {
	rx         <-chan jsonrpc.Outbound
	done       <-chan struct{}
	state      *ServerState
	terminated bool
}

// Recv returns the next queued message. It returns io.EOF once the session
// has exited, even if messages are still queued, or once the Client was
// closed and its queue drained.
func (s *RequestStream) Recv(ctx context.Context) (jsonrpc.Outbound, error) {
	if s.terminated || s.state.Get() == Exited {
		s.terminated = true
		return nil, io.EOF
	}
	select {
	case msg := <-s.rx:
		if s.state.Get() == Exited {
			s.terminated = true
			return nil, io.EOF
		}
		return msg, nil
	case <-s.done:
		// Closed: hand out what is left, then stop.
		select {
		case msg := <-s.rx:
			return msg, nil
		default:
			s.terminated = true
			return nil, io.EOF
		}
	case <-s.state.Exited():
		s.terminated = true
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Terminated reports whether Recv has returned io.EOF.
func (s *RequestStream) Terminated() bool {
	return s.terminated
}

// Len returns the number of queued messages.
func (s *RequestStream) Len() int {
	return len(s.rx)
}

// ResponseSink routes the client's responses to the callers awaiting them.
type ResponseSink struct {
	pending *PendingRequests
	state   *ServerState
}

// Send delivers resp to its waiter. It never blocks.
func (s *ResponseSink) Send(resp *jsonrpc.Response) error {
	if s.state.Get() == Exited {
		return ErrExited
	}
	s.pending.RegisterResponse(resp)
	return nil
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mnehpets/lspwire/jsonrpc"
	"github.com/mnehpets/lspwire/protocol"
)

// ErrClientClosed is returned when sending on a closed Client.
var ErrClientClosed = errors.New("client is closed")

// DefaultQueueSize is the capacity of the outbound queue.
const DefaultQueueSize = 64

// Client sends requests and notifications from the server to the language
// client. Messages are queued on the loopback socket returned alongside it;
// the transport drains them.
type Client struct {
	tx        chan jsonrpc.Outbound
	done      chan struct{}
	closeOnce sync.Once
	nextID    atomic.Int64
	pending   *PendingRequests
	state     *ServerState
	log       *slog.Logger
}

type clientConfig struct {
	queueSize int
	log       *slog.Logger
}

// ClientOption configures NewClient.
type ClientOption func(*clientConfig)

// WithQueueSize sets the capacity of the outbound queue.
func WithQueueSize(n int) ClientOption {
	return func(c *clientConfig) {
		if n >= 0 {
			c.queueSize = n
		}
	}
}

// WithLogger sets the logger used by the client and its pending table.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient returns a Client bound to state and the socket its messages
// are delivered on.
func NewClient(state *ServerState, opts ...ClientOption) (*Client, *ClientSocket) {
	cfg := clientConfig{queueSize: DefaultQueueSize, log: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &Client{
		tx:      make(chan jsonrpc.Outbound, cfg.queueSize),
		done:    make(chan struct{}),
		pending: NewPendingRequests(WithPendingLogger(cfg.log)),
		state:   state,
		log:     cfg.log,
	}
	socket := &ClientSocket{
		rx:      c.tx,
		done:    c.done,
		pending: c.pending,
		state:   state,
	}
	return c, socket
}

// Close stops the client. Messages already queued are still delivered.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// ready reports whether the session accepts server-initiated messages.
func (c *Client) ready() error {
	switch c.state.Get() {
	case Initialized, ShutDown:
		return nil
	case Exited:
		return ErrExited
	}
	return jsonrpc.NotInitializedError()
}

func (c *Client) send(ctx context.Context, msg jsonrpc.Outbound) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.tx <- msg:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-c.state.Exited():
		return ErrExited
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call sends a request for method M and waits for the client's response.
// An error response from the client is returned as a *jsonrpc.Error.
//
// Call does not time out on its own; bound it with ctx. A call abandoned
// through ctx leaves its slot pending until the client answers it. Once the
// session exits no answer can arrive, and Call returns ErrExited.
func Call[M jsonrpc.Method, P, R any](ctx context.Context, c *Client, params *P) (R, error) {
	var zero R
	if err := c.ready(); err != nil {
		return zero, err
	}
	id := jsonrpc.NumberID(c.nextID.Add(1) - 1)
	req := jsonrpc.NewRequest[M](id, params)

	w := c.pending.AwaitResponse(id)
	if err := c.send(ctx, req); err != nil {
		c.pending.retract(w)
		return zero, err
	}
	c.log.Debug("sent request to client", "id", id.String(), "method", req.Method())

	resp, err := w.wait(ctx, c.state.Exited())
	if err != nil {
		return zero, err
	}
	typed, err := jsonrpc.ResponseAs[R](resp)
	if err != nil {
		return zero, err
	}
	return typed.Result()
}

// Notify sends a notification for method M once the session is initialized.
func Notify[M jsonrpc.Method, P any](ctx context.Context, c *Client, params *P) error {
	if err := c.ready(); err != nil {
		return err
	}
	return NotifyUnchecked[M](ctx, c, params)
}

// NotifyUnchecked sends a notification regardless of the session state,
// short of exit. It is for messages allowed during initialization such as
// window/logMessage.
func NotifyUnchecked[M jsonrpc.Method, P any](ctx context.Context, c *Client, params *P) error {
	if c.state.Get() == Exited {
		return ErrExited
	}
	n := jsonrpc.NewNotification[M](params)
	if err := c.send(ctx, n); err != nil {
		return err
	}
	c.log.Debug("sent notification to client", "method", n.Method())
	return nil
}

// LogMessage asks the client to log a message.
func (c *Client) LogMessage(ctx context.Context, typ protocol.MessageType, message string) error {
	return NotifyUnchecked[protocol.LogMessage](ctx, c, &protocol.LogMessageParams{
		Type:    typ,
		Message: message,
	})
}

// ShowMessageRequest asks the client to show a message with action buttons
// and returns the chosen action, or nil if none was chosen.
func (c *Client) ShowMessageRequest(ctx context.Context, params protocol.ShowMessageRequestParams) (*protocol.MessageActionItem, error) {
	return Call[protocol.ShowMessageRequest, protocol.ShowMessageRequestParams, *protocol.MessageActionItem](ctx, c, &params)
}

// Pending returns the table of requests awaiting a response.
func (c *Client) Pending() *PendingRequests {
	return c.pending
}

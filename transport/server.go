// Package transport runs a language server over a byte stream using the
// base protocol framing: a Content-Length header block followed by the body.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mnehpets/lspwire/jsonrpc"
	"github.com/mnehpets/lspwire/protocol"
	"github.com/mnehpets/lspwire/service"
)

// Server joins an input and output stream to a handler and a client socket.
type Server struct {
	in       io.Reader
	out      io.Writer
	codec    *Codec
	maxFrame int
	log      *slog.Logger

	wmu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithCodec sets the codec for outgoing frames. Incoming frames are decoded
// according to their Content-Type header.
func WithCodec(c *Codec) Option {
	return func(s *Server) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithMaxFrameBytes bounds the body size of incoming frames.
func WithMaxFrameBytes(n int) Option {
	return func(s *Server) {
		s.maxFrame = n
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

func NewServer(in io.Reader, out io.Writer, opts ...Option) *Server {
	s := &Server{
		in:       in,
		out:      out,
		codec:    JSON,
		maxFrame: DefaultMaxFrameBytes,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve reads messages from the input until it ends or the session exits.
// Requests are handled concurrently and answered as they complete.
// Notifications are handled off the read loop, one at a time in arrival
// order, so a handler may call back into the client. The exit notification
// is handled on the read loop. Responses are routed to
// the socket. Messages queued on the socket are written to the output.
//
// When reading stops, the context of every in-flight handler is cancelled and
// Serve returns once they have finished. Responses produced after exit are
// dropped. A read still blocked on the input is abandoned; closing the input
// releases it.
func (s *Server) Serve(ctx context.Context, handler jsonrpc.Handler, socket *service.ClientSocket) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, sink := socket.Split()
	state := socket.State()
	frames := s.readFrames(ctx)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hctx, cancelHandlers := context.WithCancel(gctx)
		var inflight sync.WaitGroup
		defer func() {
			cancelHandlers()
			inflight.Wait()
			cancel()
		}()
		d := &dispatcher{
			srv:      s,
			handler:  handler,
			sink:     sink,
			state:    state,
			hctx:     hctx,
			inflight: &inflight,
			seq:      closedChan(),
		}
		return d.run(gctx, frames)
	})

	g.Go(func() error {
		for {
			msg, err := stream.Recv(gctx)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			if err := s.write(msg); err != nil {
				return err
			}
		}
	})

	return g.Wait()
}

type frameResult struct {
	frame *Frame
	err   error
}

// readFrames reads the input on its own goroutine so the dispatcher can
// observe exit and cancellation while a read is blocked.
func (s *Server) readFrames(ctx context.Context) <-chan frameResult {
	ch := make(chan frameResult)
	go func() {
		fr := NewFrameReader(s.in, s.maxFrame)
		for {
			f, err := fr.ReadFrame()
			select {
			case ch <- frameResult{f, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// dispatcher routes decoded messages for one Serve call.
type dispatcher struct {
	srv      *Server
	handler  jsonrpc.Handler
	sink     *service.ResponseSink
	state    *service.ServerState
	hctx     context.Context
	inflight *sync.WaitGroup
	// seq is closed when the most recently started notification finishes.
	seq chan struct{}
}

func (d *dispatcher) run(ctx context.Context, frames <-chan frameResult) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.state.Exited():
			return nil
		case r := <-frames:
			if r.err != nil {
				if errors.Is(r.err, io.EOF) {
					d.srv.log.Debug("input closed")
					return nil
				}
				return r.err
			}
			d.dispatch(r.frame)
		}
	}
}

func (d *dispatcher) dispatch(frame *Frame) {
	msg, rpcErr := d.srv.decode(frame)
	if rpcErr != nil {
		d.srv.log.Warn("rejecting malformed message", "error", rpcErr.Message)
		d.reply(jsonrpc.NewErrorResponse[json.RawMessage](jsonrpc.NullID, rpcErr))
		return
	}

	switch msg.Kind() {
	case jsonrpc.KindResponse:
		resp, _ := msg.Response()
		if err := d.sink.Send(resp); err != nil {
			d.srv.log.Debug("dropping response", "id", resp.ID().String(), "error", err)
		}
	case jsonrpc.KindNotification:
		if msg.Method == (protocol.Exit{}).Name() {
			// Exit must not queue behind a notification handler blocked on
			// the client.
			d.handler.Handle(d.hctx, msg)
			return
		}
		prev, done := d.seq, make(chan struct{})
		d.seq = done
		d.inflight.Add(1)
		go func() {
			defer d.inflight.Done()
			defer close(done)
			<-prev
			d.handler.Handle(d.hctx, msg)
		}()
	case jsonrpc.KindRequest:
		d.inflight.Add(1)
		go func() {
			defer d.inflight.Done()
			if resp := d.handler.Handle(d.hctx, msg); resp != nil {
				d.reply(resp)
			}
		}()
	}
}

func (d *dispatcher) reply(resp *jsonrpc.Response) {
	if d.state.Get() == service.Exited {
		d.srv.log.Debug("dropping response after exit", "id", resp.ID().String())
		return
	}
	if err := d.srv.write(resp); err != nil {
		d.srv.log.Error("failed to write response", "id", resp.ID().String(), "error", err)
	}
}

// decode parses a frame body. A body that is not valid JSON yields a
// ParseError; valid JSON that is not an envelope yields InvalidRequest.
func (s *Server) decode(frame *Frame) (*jsonrpc.Message, *jsonrpc.Error) {
	codec, err := CodecFor(frame.ContentType)
	if err != nil {
		return nil, jsonrpc.NewParseError(err.Error())
	}
	data, err := codec.Decode(frame.Body)
	if err != nil {
		return nil, jsonrpc.NewParseError(err.Error())
	}
	if !json.Valid(data) {
		return nil, jsonrpc.NewParseError("invalid JSON")
	}
	msg, err := jsonrpc.DecodeMessage(data)
	if err != nil {
		return nil, jsonrpc.NewInvalidRequestError(err.Error())
	}
	if msg.Kind() == jsonrpc.KindInvalid {
		return nil, jsonrpc.NewInvalidRequestError("message is not a request, notification or response")
	}
	return msg, nil
}

func (s *Server) write(m json.Marshaler) error {
	data, err := m.MarshalJSON()
	if err != nil {
		return err
	}
	body, err := s.codec.Encode(data)
	if err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return WriteFrame(s.out, s.codec.ContentType(), body)
}

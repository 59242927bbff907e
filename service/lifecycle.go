package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/mnehpets/lspwire/jsonrpc"
	"github.com/mnehpets/lspwire/protocol"
)

var (
	methodInitialize = protocol.Initialize{}.Name()
	methodShutdown   = protocol.Shutdown{}.Name()
	methodExit       = protocol.Exit{}.Name()
)

// Lifecycle gates a handler on the session state and advances the state on
// initialize, shutdown and exit.
//
// Before initialize succeeds, requests are refused with ServerNotInitialized
// and notifications other than exit are dropped. After shutdown every
// request is refused with InvalidRequest.
type Lifecycle struct {
	next     jsonrpc.Handler
	state    *ServerState
	shutdown atomic.Bool
	log      *slog.Logger
}

// LifecycleOption configures a Lifecycle.
type LifecycleOption func(*Lifecycle)

// WithLifecycleLogger sets the logger for state transitions and dropped notifications.
func WithLifecycleLogger(l *slog.Logger) LifecycleOption {
	return func(lc *Lifecycle) {
		if l != nil {
			lc.log = l
		}
	}
}

// NewLifecycle returns a Lifecycle that advances state and passes permitted
// messages to next.
func NewLifecycle(state *ServerState, next jsonrpc.Handler, opts ...LifecycleOption) *Lifecycle {
	lc := &Lifecycle{next: next, state: state, log: slog.Default()}
	for _, opt := range opts {
		opt(lc)
	}
	return lc
}

// State returns the state cell the lifecycle advances.
func (lc *Lifecycle) State() *ServerState {
	return lc.state
}

// ExitCode is the process exit code the protocol asks for: 0 if shutdown
// was requested before exit, 1 otherwise.
func (lc *Lifecycle) ExitCode() int {
	if lc.shutdown.Load() {
		return 0
	}
	return 1
}

func (lc *Lifecycle) Handle(ctx context.Context, msg *jsonrpc.Message) *jsonrpc.Response {
	switch msg.Kind() {
	case jsonrpc.KindRequest:
		return lc.handleRequest(ctx, msg)
	case jsonrpc.KindNotification:
		lc.handleNotification(ctx, msg)
	}
	return nil
}

func (lc *Lifecycle) handleRequest(ctx context.Context, msg *jsonrpc.Message) *jsonrpc.Response {
	id := *msg.ID
	switch lc.state.Get() {
	case Uninitialized:
		if msg.Method != methodInitialize {
			return errorResponse(id, jsonrpc.NotInitializedError())
		}
		return lc.initialize(ctx, msg)
	case Initializing:
		if msg.Method == methodInitialize {
			return errorResponse(id, jsonrpc.NewInvalidRequestError("initialize request was already received"))
		}
		return errorResponse(id, jsonrpc.NotInitializedError())
	case Initialized:
		switch msg.Method {
		case methodInitialize:
			return errorResponse(id, jsonrpc.NewInvalidRequestError("initialize request was already received"))
		case methodShutdown:
			lc.state.Set(ShutDown)
			lc.shutdown.Store(true)
			lc.log.Info("language server shutting down")
		}
		return lc.next.Handle(ctx, msg)
	}
	return errorResponse(id, jsonrpc.NewInvalidRequestError("language server is shutting down"))
}

func (lc *Lifecycle) initialize(ctx context.Context, msg *jsonrpc.Message) *jsonrpc.Response {
	if !lc.state.swap(Uninitialized, Initializing) {
		return errorResponse(*msg.ID, jsonrpc.NewInvalidRequestError("initialize request was already received"))
	}
	resp := lc.next.Handle(ctx, msg)
	if resp == nil || resp.Err() != nil {
		lc.state.swap(Initializing, Uninitialized)
		if resp == nil {
			resp = errorResponse(*msg.ID, jsonrpc.NewInternalError("initialize produced no response"))
		}
		return resp
	}
	lc.state.Set(Initialized)
	lc.log.Info("language server initialized")
	return resp
}

func (lc *Lifecycle) handleNotification(ctx context.Context, msg *jsonrpc.Message) {
	if msg.Method == methodExit {
		lc.next.Handle(ctx, msg)
		lc.state.Set(Exited)
		lc.log.Info("language server exited", "code", lc.ExitCode())
		return
	}
	if st := lc.state.Get(); st != Initialized {
		lc.log.Debug("dropping notification", "method", msg.Method, "state", st.String())
		return
	}
	lc.next.Handle(ctx, msg)
}

func errorResponse(id jsonrpc.ID, err *jsonrpc.Error) *jsonrpc.Response {
	return jsonrpc.NewErrorResponse[json.RawMessage](id, err)
}

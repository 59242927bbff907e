package jsonrpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Handler answers inbound requests and notifications.
// Handle returns nil for notifications and for messages that are not requests.
type Handler interface {
	Handle(ctx context.Context, msg *Message) *Response
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(ctx context.Context, msg *Message) *Response

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) *Response {
	return f(ctx, msg)
}

// rpcMethod is a registered method with its params decoding bound in.
type rpcMethod struct {
	name         string
	notification bool
	call         func(ctx context.Context, params json.RawMessage) (any, error)
}

func (m *rpcMethod) invoke(ctx context.Context, log *slog.Logger, params json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("jsonrpc handler panic", "method", m.name, "panic", r)
			err = NewInternalError("internal error")
		}
	}()
	return m.call(ctx, params)
}

// Router is a table of method handlers keyed by method name.
type Router struct {
	mu      sync.RWMutex
	methods map[string]*rpcMethod
	log     *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLogger sets the logger used for handler panics and dropped notifications.
func WithLogger(l *slog.Logger) RouterOption {
	return func(rt *Router) {
		if l != nil {
			rt.log = l
		}
	}
}

func NewRouter(opts ...RouterOption) *Router {
	rt := &Router{
		methods: make(map[string]*rpcMethod),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// HandleRequest registers fn as the handler for requests of method M.
// Absent params are passed to fn as the zero P.
func HandleRequest[M Method, P, R any](rt *Router, fn func(ctx context.Context, params P) (R, error)) {
	rt.register(&rpcMethod{
		name: methodName[M](),
		call: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var params P
			if raw != nil {
				if err := json.Unmarshal(raw, &params); err != nil {
					return nil, NewInvalidParamsError("invalid params: " + err.Error())
				}
			}
			return fn(ctx, params)
		},
	})
}

// HandleNotification registers fn as the handler for notifications of method M.
func HandleNotification[M Method, P any](rt *Router, fn func(ctx context.Context, params P)) {
	rt.register(&rpcMethod{
		name:         methodName[M](),
		notification: true,
		call: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var params P
			if raw != nil {
				if err := json.Unmarshal(raw, &params); err != nil {
					return nil, NewInvalidParamsError("invalid params: " + err.Error())
				}
			}
			fn(ctx, params)
			return nil, nil
		},
	})
}

func (rt *Router) register(m *rpcMethod) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, exists := rt.methods[m.name]; exists {
		panic("jsonrpc: method name collision: " + m.name)
	}
	rt.methods[m.name] = m
}

// Methods returns the registered method names in sorted order.
func (rt *Router) Methods() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	names := make([]string, 0, len(rt.methods))
	for name := range rt.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (rt *Router) lookup(name string) *rpcMethod {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.methods[name]
}

// Handle dispatches msg to its registered handler.
func (rt *Router) Handle(ctx context.Context, msg *Message) *Response {
	switch msg.Kind() {
	case KindRequest:
		return rt.handleRequest(ctx, msg)
	case KindNotification:
		rt.handleNotification(ctx, msg)
	}
	return nil
}

func (rt *Router) handleRequest(ctx context.Context, msg *Message) *Response {
	id := *msg.ID
	method := rt.lookup(msg.Method)
	if method == nil || method.notification {
		return NewErrorResponse[json.RawMessage](id, NewMethodNotFoundError(msg.Method))
	}
	result, err := method.invoke(ctx, rt.log, msg.Params)
	if err != nil {
		return NewErrorResponse[json.RawMessage](id, ErrorFrom(err))
	}
	raw, err := json.Marshal(result)
	if err != nil {
		rt.log.Error("jsonrpc result encoding failed", "method", msg.Method, "error", err)
		return NewErrorResponse[json.RawMessage](id, NewInternalError("internal error"))
	}
	return NewResponse(id, json.RawMessage(raw))
}

func (rt *Router) handleNotification(ctx context.Context, msg *Message) {
	method := rt.lookup(msg.Method)
	if method == nil || !method.notification {
		// Notifications under "$/" are optional and may be ignored silently.
		if !strings.HasPrefix(msg.Method, "$/") {
			rt.log.Warn("jsonrpc unhandled notification", "method", msg.Method)
		}
		return
	}
	if _, err := method.invoke(ctx, rt.log, msg.Params); err != nil {
		rt.log.Warn("jsonrpc notification failed", "method", msg.Method, "error", err)
	}
}

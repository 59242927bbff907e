package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnehpets/lspwire/jsonrpc"
	"github.com/mnehpets/lspwire/protocol"
)

// answer plays the language client: it reads one message off the stream and
// feeds back the response built by reply.
func answer(t *testing.T, stream *RequestStream, sink *ResponseSink, reply func(*jsonrpc.Message) *jsonrpc.Response) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, err := stream.Recv(ctx)
	require.NoError(t, err)
	data, err := out.MarshalJSON()
	require.NoError(t, err)
	msg, err := jsonrpc.DecodeMessage(data)
	require.NoError(t, err)
	require.NoError(t, sink.Send(reply(msg)))
}

func TestInitializeRoundTrip(t *testing.T) {
	p := newTestPending()
	id := jsonrpc.NumberID(1)
	req := jsonrpc.NewRequest[protocol.Initialize](id, &protocol.InitializeParams{
		Capabilities: json.RawMessage(`{}`),
	})

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"processId":null,"capabilities":{}}}`, string(data))

	w := p.AwaitResponse(req.ID())

	var resp jsonrpc.Response
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":1,"result":{"capabilities":{}}}`), &resp))
	p.RegisterResponse(&resp)

	got := waitFor(t, w)
	assert.Equal(t, id, got.ID())
	result, err := jsonrpc.ResponseAs[protocol.InitializeResult](got)
	require.NoError(t, err)
	v, err := result.Result()
	require.NoError(t, err)
	assert.NotNil(t, v.Capabilities)
}

func TestCall(t *testing.T) {
	_, client, stream, sink := initializedClient(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		answer(t, stream, sink, func(msg *jsonrpc.Message) *jsonrpc.Response {
			assert.Equal(t, jsonrpc.KindRequest, msg.Kind())
			assert.Equal(t, "window/showMessageRequest", msg.Method)
			assert.Equal(t, jsonrpc.NumberID(0), *msg.ID)
			return jsonrpc.NewResponse(*msg.ID, json.RawMessage(`{"title":"Retry"}`))
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	item, err := client.ShowMessageRequest(ctx, protocol.ShowMessageRequestParams{
		Type:    protocol.MessageTypeError,
		Message: "build failed",
		Actions: []protocol.MessageActionItem{{Title: "Retry"}},
	})
	<-done
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Retry", item.Title)
	assert.Equal(t, 0, client.Pending().Len())
}

func TestCallErrorResponse(t *testing.T) {
	_, client, stream, sink := initializedClient(t)

	go answer(t, stream, sink, func(msg *jsonrpc.Message) *jsonrpc.Response {
		return jsonrpc.NewErrorResponse[json.RawMessage](*msg.ID, jsonrpc.NewError(jsonrpc.CodeRequestCancelled, "cancelled"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Call[protocol.ShowMessageRequest, protocol.ShowMessageRequestParams, *protocol.MessageActionItem](ctx, client, &protocol.ShowMessageRequestParams{})

	var rpcErr *jsonrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc.CodeRequestCancelled), rpcErr.Code)
}

func TestCallIDsIncrease(t *testing.T) {
	_, client, stream, _ := initializedClient(t)

	for n := 0; n < 2; n++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := Call[protocol.ShowMessageRequest, protocol.ShowMessageRequestParams, any](ctx, client, nil)
		cancel()
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
	// Abandoned calls keep their slots until answered.
	assert.Equal(t, 2, client.Pending().Len())

	var ids []jsonrpc.ID
	for n := 0; n < 2; n++ {
		out, err := stream.Recv(context.Background())
		require.NoError(t, err)
		ids = append(ids, out.(*jsonrpc.RequestMessage[protocol.ShowMessageRequest, protocol.ShowMessageRequestParams]).ID())
	}
	assert.Equal(t, []jsonrpc.ID{jsonrpc.NumberID(0), jsonrpc.NumberID(1)}, ids)
}

func TestCallRequiresInitialized(t *testing.T) {
	state := NewServerState()
	client, _ := NewClient(state, WithLogger(quietLogger()))
	ctx := context.Background()

	_, err := Call[protocol.ShowMessageRequest, protocol.ShowMessageRequestParams, any](ctx, client, nil)
	var rpcErr *jsonrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc.CodeServerNotInitialized), rpcErr.Code)

	err = Notify[protocol.LogMessage](ctx, client, &protocol.LogMessageParams{})
	assert.ErrorAs(t, err, &rpcErr)

	// Logging is allowed while initializing.
	assert.NoError(t, client.LogMessage(ctx, protocol.MessageTypeInfo, "starting"))

	state.Set(Exited)
	_, err = Call[protocol.ShowMessageRequest, protocol.ShowMessageRequestParams, any](ctx, client, nil)
	assert.ErrorIs(t, err, ErrExited)
	assert.ErrorIs(t, client.LogMessage(ctx, protocol.MessageTypeInfo, "gone"), ErrExited)
}

func TestCallRetractsUnsentRequest(t *testing.T) {
	_, client, _, _ := initializedClient(t, WithQueueSize(0))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Call[protocol.ShowMessageRequest, protocol.ShowMessageRequestParams, any](ctx, client, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, client.Pending().Len())
}

func TestCallReturnsOnExit(t *testing.T) {
	state, client, stream, sink := initializedClient(t)

	errc := make(chan error, 1)
	go func() {
		_, err := client.ShowMessageRequest(context.Background(), protocol.ShowMessageRequestParams{Message: "still there?"})
		errc <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, err := stream.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "window/showMessageRequest", out.Method())

	state.Set(Exited)
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrExited)
	case <-time.After(time.Second):
		t.Fatal("Call did not return after exit")
	}

	// The late answer is refused rather than delivered.
	assert.ErrorIs(t, sink.Send(response(jsonrpc.NumberID(0), `null`)), ErrExited)
}

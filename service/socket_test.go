package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnehpets/lspwire/jsonrpc"
	"github.com/mnehpets/lspwire/protocol"
)

func TestServerState(t *testing.T) {
	s := NewServerState()
	assert.Equal(t, Uninitialized, s.Get())

	assert.True(t, s.Set(Initialized))
	assert.False(t, s.Set(Initializing))
	assert.Equal(t, Initialized, s.Get())

	select {
	case <-s.Exited():
		t.Fatal("exited before Exited")
	default:
	}

	assert.True(t, s.Set(Exited))
	assert.True(t, s.Set(Exited))
	assert.Equal(t, "exited", s.Get().String())
	select {
	case <-s.Exited():
	default:
		t.Fatal("Exited channel not closed")
	}
}

func initializedClient(t *testing.T, opts ...ClientOption) (*ServerState, *Client, *RequestStream, *ResponseSink) {
	t.Helper()
	state := NewServerState()
	state.Set(Initialized)
	client, socket := NewClient(state, append([]ClientOption{WithLogger(quietLogger())}, opts...)...)
	stream, sink := socket.Split()
	return state, client, stream, sink
}

func TestRequestStream_EOFOnExit(t *testing.T) {
	state, client, stream, _ := initializedClient(t)
	ctx := context.Background()

	require.NoError(t, client.LogMessage(ctx, protocol.MessageTypeInfo, "one"))
	require.NoError(t, client.LogMessage(ctx, protocol.MessageTypeInfo, "two"))
	assert.Equal(t, 2, stream.Len())

	state.Set(Exited)

	msg, err := stream.Recv(ctx)
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, stream.Terminated())
}

func TestRequestStream_ExitWakesRecv(t *testing.T) {
	state, _, stream, _ := initializedClient(t)

	errc := make(chan error, 1)
	go func() {
		_, err := stream.Recv(context.Background())
		errc <- err
	}()

	state.Set(Exited)
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(time.Second):
		t.Fatal("Recv did not return after exit")
	}
}

func TestRequestStream_DrainsAfterClose(t *testing.T) {
	_, client, stream, _ := initializedClient(t)
	ctx := context.Background()

	require.NoError(t, client.LogMessage(ctx, protocol.MessageTypeLog, "queued"))
	client.Close()

	msg, err := stream.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "window/logMessage", msg.Method())

	_, err = stream.Recv(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.ErrorIs(t, client.LogMessage(ctx, protocol.MessageTypeLog, "late"), ErrClientClosed)
}

func TestRequestStream_ContextCancel(t *testing.T) {
	_, _, stream, _ := initializedClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := stream.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, stream.Terminated())
}

func TestResponseSink(t *testing.T) {
	state, client, _, sink := initializedClient(t)
	id := jsonrpc.NumberID(0)
	w := client.Pending().AwaitResponse(id)

	want := response(id, `null`)
	require.NoError(t, sink.Send(want))
	assert.Same(t, want, waitFor(t, w))

	// Unknown ids are absorbed.
	assert.NoError(t, sink.Send(response(jsonrpc.NumberID(99), `null`)))

	state.Set(Exited)
	assert.ErrorIs(t, sink.Send(response(id, `null`)), ErrExited)
}

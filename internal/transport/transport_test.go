package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenerPipe(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverCh := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		serverCh <- c
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	serverConn := <-serverCh

	return New(clientConn), New(serverConn)
}

func TestSendRecvRoundTrip(t *testing.T) {
	client, server := listenerPipe(t)
	defer client.Close()
	defer server.Close()

	require.NoError(t, client.Send([]byte("hello")))
	got, err := server.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestSendRecvPreservesOrder(t *testing.T) {
	client, server := listenerPipe(t)
	defer client.Close()
	defer server.Close()

	messages := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, m := range messages {
		require.NoError(t, client.Send(m))
	}
	for _, want := range messages {
		got, err := server.Recv()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRecvEmptyPayload(t *testing.T) {
	client, server := listenerPipe(t)
	defer client.Close()
	defer server.Close()

	require.NoError(t, client.Send([]byte{}))
	got, err := server.Recv()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecvAfterClose(t *testing.T) {
	client, server := listenerPipe(t)
	defer server.Close()

	client.Close()
	_, err := server.Recv()
	assert.Equal(t, ErrTransportClosed, err)
}

func TestRecvTimeout(t *testing.T) {
	client, server := listenerPipe(t)
	defer client.Close()
	defer server.Close()

	require.NoError(t, server.SetReadDeadline(time.Now().Add(20*time.Millisecond)))
	_, err := server.Recv()
	assert.Equal(t, ErrTimeout, err)
}

func TestSendOversizedFrameRejected(t *testing.T) {
	client, server := listenerPipe(t)
	defer client.Close()
	defer server.Close()

	err := client.Send(make([]byte, MaxFrameSize+1))
	assert.Equal(t, ErrFrameTooLarge, err)
}

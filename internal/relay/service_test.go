package relay

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/caesar-transfer/caesar-transfer/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestService(t *testing.T) (*Service, string) {
	t.Helper()
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	svc, err := NewService(ln, nil)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	return svc, ln.Addr().String()
}

func dialTest(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn net.Conn, frame []byte) {
	t.Helper()
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(frame)))
	_, err := conn.Write(prefix[:])
	require.NoError(t, err)
	if len(frame) > 0 {
		_, err = conn.Write(frame)
		require.NoError(t, err)
	}
}

func recvFrame(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var prefix [4]byte
	_, err := io.ReadFull(conn, prefix[:])
	require.NoError(t, err)
	length := binary.BigEndian.Uint32(prefix[:])
	if length == 0 {
		return []byte{}
	}
	body := make([]byte, length)
	_, err = io.ReadFull(conn, body)
	require.NoError(t, err)
	return body
}

func recvControl(t *testing.T, conn net.Conn) codec.Control {
	t.Helper()
	frame := recvFrame(t, conn)
	kind, body, err := codec.UnwrapEnvelope(frame)
	require.NoError(t, err)
	require.Equal(t, codec.EnvelopeControl, kind)
	ctrl, err := codec.DecodeControl(body)
	require.NoError(t, err)
	return ctrl
}

func joinFrame(t *testing.T, role codec.Role, name string) []byte {
	t.Helper()
	body, err := codec.EncodeJoin(role, name)
	require.NoError(t, err)
	return codec.WrapControl(body)
}

func TestServiceSenderJoinAck(t *testing.T) {
	_, addr := startTestService(t)
	conn := dialTest(t, addr)

	sendFrame(t, conn, joinFrame(t, codec.RoleSender, "brave-otter-lime"))
	ack := recvControl(t, conn)
	assert.Equal(t, codec.KindJoinAck, ack.Kind)
	assert.Equal(t, codec.StatusOK, ack.Status)
}

func TestServiceReceiverNoSuchTransfer(t *testing.T) {
	_, addr := startTestService(t)
	conn := dialTest(t, addr)

	sendFrame(t, conn, joinFrame(t, codec.RoleReceiver, "nobody-home-here"))
	ack := recvControl(t, conn)
	assert.Equal(t, codec.StatusNoSuchTransfer, ack.Status)
}

func TestServiceNameInUse(t *testing.T) {
	_, addr := startTestService(t)
	first := dialTest(t, addr)
	second := dialTest(t, addr)

	sendFrame(t, first, joinFrame(t, codec.RoleSender, "x-y-z"))
	ack1 := recvControl(t, first)
	assert.Equal(t, codec.StatusOK, ack1.Status)

	sendFrame(t, second, joinFrame(t, codec.RoleSender, "x-y-z"))
	ack2 := recvControl(t, second)
	assert.Equal(t, codec.StatusNameInUse, ack2.Status)
}

func TestServicePairingAndForwarding(t *testing.T) {
	_, addr := startTestService(t)
	sender := dialTest(t, addr)
	receiver := dialTest(t, addr)

	sendFrame(t, sender, joinFrame(t, codec.RoleSender, "brave-otter-lime"))
	ack := recvControl(t, sender)
	require.Equal(t, codec.StatusOK, ack.Status)

	sendFrame(t, receiver, joinFrame(t, codec.RoleReceiver, "brave-otter-lime"))
	rack := recvControl(t, receiver)
	require.Equal(t, codec.StatusOK, rack.Status)

	paired := recvControl(t, sender)
	assert.Equal(t, codec.KindPaired, paired.Kind)

	sendFrame(t, sender, codec.WrapPayload([]byte("opaque chunk bytes")))
	frame := recvFrame(t, receiver)
	kind, body, err := codec.UnwrapEnvelope(frame)
	require.NoError(t, err)
	assert.Equal(t, codec.EnvelopePayload, kind)
	assert.Equal(t, []byte("opaque chunk bytes"), body)
}

func TestServiceLeaveClosesRoom(t *testing.T) {
	_, addr := startTestService(t)
	sender := dialTest(t, addr)
	receiver := dialTest(t, addr)

	sendFrame(t, sender, joinFrame(t, codec.RoleSender, "brave-otter-lime"))
	recvControl(t, sender)
	sendFrame(t, receiver, joinFrame(t, codec.RoleReceiver, "brave-otter-lime"))
	recvControl(t, receiver)
	recvControl(t, sender) // Paired

	leaveBody, err := codec.EncodeLeave()
	require.NoError(t, err)
	sendFrame(t, sender, codec.WrapControl(leaveBody))

	leaveMsg := recvControl(t, receiver)
	assert.Equal(t, codec.KindLeave, leaveMsg.Kind)

	receiver.SetReadDeadline(time.Now().Add(3 * time.Second))
	buf := make([]byte, 1)
	_, err = receiver.Read(buf)
	assert.Error(t, err, "receiver should observe connection close once the room tears down")
}

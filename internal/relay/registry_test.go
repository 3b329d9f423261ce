package relay

import (
	"testing"

	"github.com/caesar-transfer/caesar-transfer/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinSenderCreatesRoom(t *testing.T) {
	reg := NewRegistry()

	room, out, err := reg.Join("brave-otter-lime", codec.RoleSender)
	require.NoError(t, err)
	assert.NotNil(t, room)
	assert.NotNil(t, out)
	assert.Equal(t, StatePendingReceiver, room.State())
}

func TestJoinSenderNameInUse(t *testing.T) {
	reg := NewRegistry()

	_, _, err := reg.Join("x-y-z", codec.RoleSender)
	require.NoError(t, err)

	_, _, err = reg.Join("x-y-z", codec.RoleSender)
	assert.Equal(t, ErrNameInUse, err)
}

func TestJoinReceiverWithoutSenderFails(t *testing.T) {
	reg := NewRegistry()

	_, _, err := reg.Join("ghost", codec.RoleReceiver)
	assert.Equal(t, ErrNoSuchTransfer, err)
}

func TestJoinReceiverPairsRoom(t *testing.T) {
	reg := NewRegistry()

	senderRoom, _, err := reg.Join("brave-otter-lime", codec.RoleSender)
	require.NoError(t, err)

	receiverRoom, _, err := reg.Join("brave-otter-lime", codec.RoleReceiver)
	require.NoError(t, err)

	assert.Same(t, senderRoom, receiverRoom)
	assert.Equal(t, StatePaired, receiverRoom.State())
}

func TestJoinReceiverAlreadyPaired(t *testing.T) {
	reg := NewRegistry()

	_, _, err := reg.Join("brave-otter-lime", codec.RoleSender)
	require.NoError(t, err)
	_, _, err = reg.Join("brave-otter-lime", codec.RoleReceiver)
	require.NoError(t, err)

	_, _, err = reg.Join("brave-otter-lime", codec.RoleReceiver)
	assert.Equal(t, ErrAlreadyPaired, err)
}

func TestForwardDeliversToPartnerSink(t *testing.T) {
	reg := NewRegistry()

	room, senderOut, err := reg.Join("brave-otter-lime", codec.RoleSender)
	require.NoError(t, err)
	_, receiverOut, err := reg.Join("brave-otter-lime", codec.RoleReceiver)
	require.NoError(t, err)

	require.NoError(t, reg.Forward(room, codec.RoleSender, []byte("hello receiver")))
	select {
	case got := <-receiverOut.ch:
		assert.Equal(t, []byte("hello receiver"), got)
	default:
		t.Fatal("receiver sink did not receive forwarded frame")
	}

	require.NoError(t, reg.Forward(room, codec.RoleReceiver, []byte("hello sender")))
	select {
	case got := <-senderOut.ch:
		assert.Equal(t, []byte("hello sender"), got)
	default:
		t.Fatal("sender sink did not receive forwarded frame")
	}
}

func TestForwardBeforePairingFails(t *testing.T) {
	reg := NewRegistry()

	room, _, err := reg.Join("brave-otter-lime", codec.RoleSender)
	require.NoError(t, err)

	err = reg.Forward(room, codec.RoleSender, []byte("too early"))
	assert.Equal(t, ErrRoomClosed, err)
}

func TestLeaveRemovesRoomAndClosesPartnerSink(t *testing.T) {
	reg := NewRegistry()

	room, _, err := reg.Join("brave-otter-lime", codec.RoleSender)
	require.NoError(t, err)
	_, receiverOut, err := reg.Join("brave-otter-lime", codec.RoleReceiver)
	require.NoError(t, err)

	reg.Leave(room, codec.RoleSender)

	_, open := <-receiverOut.done
	assert.False(t, open, "receiver sink should be closed once the room is torn down")

	_, _, err = reg.Join("brave-otter-lime", codec.RoleReceiver)
	assert.Equal(t, ErrNoSuchTransfer, err)
}

func TestLeaveIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	room, _, err := reg.Join("brave-otter-lime", codec.RoleSender)
	require.NoError(t, err)

	reg.Leave(room, codec.RoleSender)
	assert.NotPanics(t, func() { reg.Leave(room, codec.RoleSender) })
}

func TestNameCollisionExactlyOneWins(t *testing.T) {
	reg := NewRegistry()

	results := make(chan error, 2)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			_, _, err := reg.Join("x-y-z", codec.RoleSender)
			results <- err
		}()
	}
	close(start)

	first := <-results
	second := <-results

	oks := 0
	inUse := 0
	for _, err := range []error{first, second} {
		if err == nil {
			oks++
		} else if err == ErrNameInUse {
			inUse++
		}
	}
	assert.Equal(t, 1, oks)
	assert.Equal(t, 1, inUse)
}

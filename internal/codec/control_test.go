package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeJoin(t *testing.T) {
	raw, err := EncodeJoin(RoleSender, "brave-otter-lime")
	require.NoError(t, err)

	c, err := DecodeControl(raw)
	require.NoError(t, err)
	assert.Equal(t, KindJoin, c.Kind)
	assert.Equal(t, RoleSender, c.Role)
	assert.Equal(t, "brave-otter-lime", c.Name)
}

func TestEncodeDecodeJoinAck(t *testing.T) {
	raw, err := EncodeJoinAck(StatusNameInUse)
	require.NoError(t, err)

	c, err := DecodeControl(raw)
	require.NoError(t, err)
	assert.Equal(t, KindJoinAck, c.Kind)
	assert.Equal(t, StatusNameInUse, c.Status)
}

func TestEncodeDecodePaired(t *testing.T) {
	raw, err := EncodePaired()
	require.NoError(t, err)

	c, err := DecodeControl(raw)
	require.NoError(t, err)
	assert.Equal(t, KindPaired, c.Kind)
}

func TestEncodeDecodeLeave(t *testing.T) {
	raw, err := EncodeLeave()
	require.NoError(t, err)

	c, err := DecodeControl(raw)
	require.NoError(t, err)
	assert.Equal(t, KindLeave, c.Kind)
}

func TestDecodeControlMalformed(t *testing.T) {
	_, err := DecodeControl([]byte("not json"))
	assert.Equal(t, ErrMalformedFrame, err)

	_, err = DecodeControl([]byte(`{"kind":"bogus"}`))
	assert.Equal(t, ErrMalformedFrame, err)

	_, err = DecodeControl([]byte(`{"kind":"join","name":""}`))
	assert.Equal(t, ErrMalformedFrame, err)

	_, err = DecodeControl([]byte(`{"kind":"join-ack"}`))
	assert.Equal(t, ErrMalformedFrame, err)
}

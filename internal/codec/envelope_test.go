package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapUnwrapControl(t *testing.T) {
	body, err := EncodeJoin(RoleSender, "brave-otter-lime")
	require.NoError(t, err)

	frame := WrapControl(body)
	kind, got, err := UnwrapEnvelope(frame)
	require.NoError(t, err)
	assert.Equal(t, EnvelopeControl, kind)
	assert.Equal(t, body, got)
}

func TestWrapUnwrapPayload(t *testing.T) {
	body := Encode(&AbortPacket{Reason: "nope"})

	frame := WrapPayload(body)
	kind, got, err := UnwrapEnvelope(frame)
	require.NoError(t, err)
	assert.Equal(t, EnvelopePayload, kind)
	assert.Equal(t, body, got)
}

func TestUnwrapEmptyFrame(t *testing.T) {
	_, _, err := UnwrapEnvelope(nil)
	assert.Equal(t, ErrMalformedFrame, err)
}

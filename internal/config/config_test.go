package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRelay(t *testing.T) {
	c := new(Config)
	assert.Equal(t, ErrMissingListenAddr, c.ValidateRelay())

	c.ListenAddr = ":4680"
	assert.Nil(t, c.ValidateRelay())

	c.ProtocolVersion = 99
	assert.Equal(t, ErrUnsupportedProtocolVersion, c.ValidateRelay())
}

func TestValidateSender(t *testing.T) {
	c := new(Config)
	assert.Equal(t, ErrMissingRelayURL, c.ValidateSender())

	c.RelayURL = "wss://relay.example/ws"
	assert.Nil(t, c.ValidateSender())

	c.ChunkSize = 8
	assert.Equal(t, ErrChunkSizeOutOfRange, c.ValidateSender())

	c.ChunkSize = MinChunkSize
	assert.Nil(t, c.ValidateSender())
}

func TestValidateReceiver(t *testing.T) {
	c := new(Config)
	assert.Equal(t, ErrMissingRelayURL, c.ValidateReceiver())

	c.RelayURL = "wss://relay.example/ws"
	assert.Equal(t, ErrMissingDestinationDir, c.ValidateReceiver())

	c.DestinationDir = "/tmp/incoming"
	assert.Nil(t, c.ValidateReceiver())
}

func TestEffectiveDefaults(t *testing.T) {
	c := new(Config)
	assert.Equal(t, DefaultChunkSize, c.EffectiveChunkSize())
	assert.Equal(t, int64(DefaultMaxListBytes), c.EffectiveMaxListBytes())

	c.ChunkSize = 32 * 1024
	c.MaxListBytes = 1024
	assert.Equal(t, 32*1024, c.EffectiveChunkSize())
	assert.Equal(t, int64(1024), c.EffectiveMaxListBytes())
}

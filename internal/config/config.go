// Copyright (c) 2026 Caesar Transfer
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

// Package config defines the configuration surface consumed by the
// relay service and the sender/receiver sessions. It carries exactly
// the fields the specification recognizes; anything else (CLI flags,
// persisted preferences, UI state) lives outside this package.
package config

import "errors"

// ProtocolVersion is the current wire protocol version this build speaks.
const ProtocolVersion = 1

const (
	// MinChunkSize is the smallest configurable sender chunk size.
	MinChunkSize = 16 * 1024
	// MaxChunkSize is the largest configurable sender chunk size.
	MaxChunkSize = 1024 * 1024
	// DefaultChunkSize is used when ChunkSize is left at zero.
	DefaultChunkSize = 64 * 1024
	// DefaultMaxListBytes bounds the total announced transfer size when
	// MaxListBytes is left at zero.
	DefaultMaxListBytes = 16 << 30 // 16 GiB
)

var (
	// ErrChunkSizeOutOfRange is returned when ChunkSize is set but falls
	// outside [MinChunkSize, MaxChunkSize].
	ErrChunkSizeOutOfRange = errors.New("config: chunk_size out of range")
	// ErrMissingRelayURL is returned when a peer-role config has no relay_url.
	ErrMissingRelayURL = errors.New("config: relay_url is required")
	// ErrMissingListenAddr is returned when a relay-role config has no listen_addr.
	ErrMissingListenAddr = errors.New("config: listen_addr is required")
	// ErrMissingDestinationDir is returned when a receiver config has no destination_dir.
	ErrMissingDestinationDir = errors.New("config: destination_dir is required")
	// ErrUnsupportedProtocolVersion is returned for a protocol_version this
	// build does not speak.
	ErrUnsupportedProtocolVersion = errors.New("config: unsupported protocol_version")
)

// Config is the flat, explicit configuration record every core
// component takes by value or pointer at construction. There is no
// global configuration singleton (see SPEC_FULL.md Design Notes).
type Config struct {
	// RelayURL is where a peer (sender or receiver) connects.
	RelayURL string `json:"relay_url"`
	// ListenAddr is where the relay binds (relay mode only).
	ListenAddr string `json:"listen_addr"`
	// ListenPort is the bound port (relay mode only).
	ListenPort int `json:"listen_port"`
	// ChunkSize is the sender's chunk size in bytes. Zero means DefaultChunkSize.
	ChunkSize int `json:"chunk_size"`
	// DestinationDir is the receiver's output root.
	DestinationDir string `json:"destination_dir"`
	// Overwrite permits overwriting existing files at the destination.
	Overwrite bool `json:"overwrite"`
	// MaxListBytes ceilings the total announced transfer size. Zero
	// means DefaultMaxListBytes.
	MaxListBytes int64 `json:"max_list_bytes"`
	// ProtocolVersion is the protocol version this config expects to speak.
	ProtocolVersion int `json:"protocol_version"`
}

// EffectiveChunkSize returns ChunkSize, or DefaultChunkSize if unset.
func (c *Config) EffectiveChunkSize() int {
	if c.ChunkSize == 0 {
		return DefaultChunkSize
	}
	return c.ChunkSize
}

// EffectiveMaxListBytes returns MaxListBytes, or DefaultMaxListBytes if unset.
func (c *Config) EffectiveMaxListBytes() int64 {
	if c.MaxListBytes == 0 {
		return DefaultMaxListBytes
	}
	return c.MaxListBytes
}

// ValidateRelay verifies the fields a relay service needs.
func (c *Config) ValidateRelay() error {
	if c.ListenAddr == "" {
		return ErrMissingListenAddr
	}
	return c.validateCommon()
}

// ValidateSender verifies the fields a sender session needs.
func (c *Config) ValidateSender() error {
	if c.RelayURL == "" {
		return ErrMissingRelayURL
	}
	if err := c.validateChunkSize(); err != nil {
		return err
	}
	return c.validateCommon()
}

// ValidateReceiver verifies the fields a receiver session needs.
func (c *Config) ValidateReceiver() error {
	if c.RelayURL == "" {
		return ErrMissingRelayURL
	}
	if c.DestinationDir == "" {
		return ErrMissingDestinationDir
	}
	return c.validateCommon()
}

func (c *Config) validateChunkSize() error {
	if c.ChunkSize == 0 {
		return nil
	}
	if c.ChunkSize < MinChunkSize || c.ChunkSize > MaxChunkSize {
		return ErrChunkSizeOutOfRange
	}
	return nil
}

func (c *Config) validateCommon() error {
	if c.ProtocolVersion != 0 && c.ProtocolVersion != ProtocolVersion {
		return ErrUnsupportedProtocolVersion
	}
	return nil
}

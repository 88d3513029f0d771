// Package config provides the configuration schema and loader for the
// Auricle voice gateway.
package config

import "time"

// LogLevel controls log verbosity for the gateway.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for the gateway.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Auth     AuthConfig     `yaml:"auth"`
	Audio    AudioConfig    `yaml:"audio"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the device-facing websocket listener
	// binds to (e.g., ":8000").
	ListenAddr string `yaml:"listen_addr"`

	// OpsAddr is the TCP address for the operational listener serving
	// /healthz, /readyz and /metrics (e.g., ":9090").
	OpsAddr string `yaml:"ops_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for both listeners. When nil, the server runs
	// plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// StoreConfig locates the external data store behind the scoped client.
type StoreConfig struct {
	// BaseURL is the root URL of the store's REST surface.
	BaseURL string `yaml:"base_url"`

	// APIKey is the service-level key sent with every store request.
	APIKey string `yaml:"api_key"`
}

// AuthConfig bounds the connection-admission path.
type AuthConfig struct {
	// Timeout caps how long a single credential validation may take before
	// the upgrade is rejected. Zero means DefaultAuthTimeout.
	Timeout time.Duration `yaml:"timeout"`
}

// AudioConfig fixes the PCM and codec parameters for the duplex path.
// These are established once at startup; frame size never changes
// mid-stream.
type AudioConfig struct {
	// InputSampleRate is the microphone PCM sample rate in Hz.
	InputSampleRate int `yaml:"input_sample_rate"`

	// OutputSampleRate is the synthesized-speech PCM sample rate in Hz.
	OutputSampleRate int `yaml:"output_sample_rate"`

	// Channels is the channel count for the outgoing stream (1 or 2).
	Channels int `yaml:"channels"`

	// FrameMs is the codec frame duration in milliseconds.
	FrameMs int `yaml:"frame_ms"`

	// OpusBitrate is the target Opus bitrate in bits per second.
	// Zero selects the libopus default.
	OpusBitrate int `yaml:"opus_bitrate"`

	// Volume is the gain factor applied to outgoing PCM before encoding.
	Volume float64 `yaml:"volume"`
}

// ShutdownConfig bounds the graceful-shutdown window.
type ShutdownConfig struct {
	// Grace is how long listeners get to close after a termination signal
	// before the process exits with a failure status. Zero means
	// DefaultShutdownGrace.
	Grace time.Duration `yaml:"grace"`
}

// Defaults applied by Load when the corresponding field is zero.
const (
	DefaultAuthTimeout   = 5 * time.Second
	DefaultShutdownGrace = 5 * time.Second

	DefaultInputSampleRate  = 16000
	DefaultOutputSampleRate = 24000
	DefaultChannels         = 1
	DefaultFrameMs          = 60
	DefaultVolume           = 1.0
)

// applyDefaults fills zero-valued fields with their documented defaults.
func (c *Config) applyDefaults() {
	if c.Auth.Timeout == 0 {
		c.Auth.Timeout = DefaultAuthTimeout
	}
	if c.Shutdown.Grace == 0 {
		c.Shutdown.Grace = DefaultShutdownGrace
	}
	if c.Audio.InputSampleRate == 0 {
		c.Audio.InputSampleRate = DefaultInputSampleRate
	}
	if c.Audio.OutputSampleRate == 0 {
		c.Audio.OutputSampleRate = DefaultOutputSampleRate
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = DefaultChannels
	}
	if c.Audio.FrameMs == 0 {
		c.Audio.FrameMs = DefaultFrameMs
	}
	if c.Audio.Volume == 0 {
		c.Audio.Volume = DefaultVolume
	}
}

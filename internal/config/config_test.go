package config_test

import (
	"testing"
	"time"

	"github.com/alkime/jackmixer/internal/config"
	"github.com/alkime/jackmixer/internal/mixer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, config.EnvProduction, cfg.Env)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "com.jackAutoconnect.jackAutoconnect", cfg.BusName)
	assert.Equal(t, 5*time.Second, cfg.CallTimeout)
	assert.Equal(t, "jack-mixer", cfg.ClientPrefix)
	assert.Equal(t, "music", cfg.DefaultStrip)
	assert.Equal(t, mixer.ChannelPolicy{Min: 0, Max: 100, Default: 2}, cfg.ChannelPolicy())
	assert.Equal(t, 64, cfg.QueueDepth)
	assert.Equal(t, "auto", cfg.AudioBackend)
	assert.Equal(t, uint32(48000), cfg.SampleRate)
	assert.Equal(t, uint32(256), cfg.PeriodFrames)
	assert.Equal(t, 2048, cfg.MaxPorts)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Empty(t, cfg.MIDIIn)
	assert.Empty(t, cfg.MIDIBindings)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchInterval)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("MIXER_ENV", "development")
	t.Setenv("MIXER_DEFAULT_STRIP", "")
	t.Setenv("MIXER_MIN_CHANNELS", "1")
	t.Setenv("MIXER_MAX_CHANNELS", "8")
	t.Setenv("MIXER_DEFAULT_CHANNELS", "1")
	t.Setenv("MIXER_CALL_TIMEOUT", "250ms")
	t.Setenv("MIXER_MIDI_BINDINGS", "7:music,8:voice")
	t.Setenv("MIXER_AUDIO_BACKEND", "jack")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Empty(t, cfg.DefaultStrip)
	assert.Equal(t, mixer.ChannelPolicy{Min: 1, Max: 8, Default: 1}, cfg.ChannelPolicy())
	assert.Equal(t, 250*time.Millisecond, cfg.CallTimeout)
	assert.Equal(t, map[uint8]string{7: "music", 8: "voice"}, cfg.MIDIBindings)
	assert.Equal(t, "jack", cfg.AudioBackend)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{key: "LOG_LEVEL", value: "loud", want: "LOG_LEVEL"},
		{key: "LOG_FORMAT", value: "xml", want: "LOG_FORMAT"},
		{key: "MIXER_AUDIO_BACKEND", value: "coreaudio", want: "MIXER_AUDIO_BACKEND"},
		{key: "MIXER_DEFAULT_CHANNELS", value: "101", want: "MIXER_*_CHANNELS"},
		{key: "MIXER_QUEUE_DEPTH", value: "0", want: "MIXER_QUEUE_DEPTH"},
		{key: "MIXER_MIDI_BINDINGS", value: "200:music", want: "MIXER_MIDI_BINDINGS"},
		{key: "MIXER_CALL_TIMEOUT", value: "soon", want: "MIXER_CALL_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := config.LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

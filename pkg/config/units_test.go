package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"400ms", 400 * time.Millisecond},
		{"60s", time.Minute},
		{"2h45m", 2*time.Hour + 45*time.Minute},
		{"1d", Day},
		{"1d12h", Day + 12*time.Hour},
		{"2w", 2 * Week},
		{"", 0},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestParseDurationInvalid(t *testing.T) {
	for _, in := range []string{"abc", "5x", "d"} {
		_, err := ParseDuration(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestDurationYAMLRoundTrip(t *testing.T) {
	type doc struct {
		D Duration `yaml:"d"`
	}

	var got doc
	require.NoError(t, yaml.Unmarshal([]byte("d: 90s"), &got))
	assert.Equal(t, 90*time.Second, time.Duration(got.D))

	out, err := yaml.Marshal(doc{D: Duration(400 * time.Millisecond)})
	require.NoError(t, err)
	assert.Equal(t, "d: 400ms\n", string(out))
}

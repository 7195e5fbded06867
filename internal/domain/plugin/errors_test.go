package plugin

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidManifestError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *InvalidManifestError
		want string
	}{
		{
			name: "named",
			err:  &InvalidManifestError{Name: "weather", Problems: []string{"version is required"}},
			want: `invalid manifest for "weather": version is required`,
		},
		{
			name: "unnamed with several problems",
			err:  &InvalidManifestError{Problems: []string{"plugin name cannot be empty", "version is required"}},
			want: "invalid manifest: plugin name cannot be empty; version is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}

	empty := &InvalidManifestError{}
	assert.NoError(t, empty.orNil())
	empty.addf("dependency %s", "bad")
	assert.Error(t, empty.orNil())
}

func TestManifestParseError(t *testing.T) {
	t.Parallel()

	inner := errors.New("invalid YAML: line 3")
	err := &ManifestParseError{Path: "/plugins/a/plugin.yaml", Err: inner}

	assert.Equal(t, "malformed manifest /plugins/a/plugin.yaml: invalid YAML: line 3", err.Error())
	assert.ErrorIs(t, err, inner)

	wrapped := fmt.Errorf("loading: %w", err)
	assert.True(t, IsManifestParseError(wrapped))
	assert.False(t, IsManifestParseError(inner))
}

func TestIsInvalidManifestError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsInvalidManifestError(fmt.Errorf("wrap: %w", &InvalidManifestError{Problems: []string{"x"}})))
	assert.False(t, IsInvalidManifestError(errors.New("x")))
}

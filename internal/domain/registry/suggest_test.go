package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Suggest(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	publishFixture(t, r, "weather", "1.0.0", nil)
	publishFixture(t, r, "weather-alerts", "1.0.0", nil)
	publishFixture(t, r, "http", "1.0.0", nil)

	snap, err := r.Open(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"weather", "weather-alerts"}, snap.Suggest("wthr"))
	assert.Empty(t, snap.Suggest("zzz"))
}

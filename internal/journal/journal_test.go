// internal/journal/journal_test.go
package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledJournalIsNoop(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")

	require.NoError(t, Connect())
	assert.False(t, Enabled())
	assert.NoError(t, Publish(context.Background(), Record{Code: "ABCD", Event: "room_created"}))
}

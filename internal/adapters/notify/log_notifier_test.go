package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/orderdesk/backend/internal/adapters/notify"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = previous })

	n := notify.NewLogNotifier()
	n.Success(context.Background(), "Order approved successfully")
	n.Failure(context.Background(), "Failed to reject order")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))

	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "success", first["notification"])
	assert.Equal(t, "Order approved successfully", first["message"])
	assert.Equal(t, "warn", second["level"])
	assert.Equal(t, "Failed to reject order", second["message"])
}

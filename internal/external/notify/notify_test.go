package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradebot/pkg/logger"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(logger.NewWithWriter(&buf))

	require.NoError(t, n.SendMessage(context.Background(), "2 signals generated", true))
	assert.Contains(t, buf.String(), "2 signals generated")

	buf.Reset()
	require.NoError(t, n.SendFile(context.Background(), strings.NewReader("abc"), "trades.csv", "trades"))
	assert.Contains(t, buf.String(), "trades.csv")
	assert.Contains(t, buf.String(), `"bytes":3`)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	require.NoError(t, r.SendMessage(ctx, "hello", false))
	require.NoError(t, r.SendFile(ctx, strings.NewReader("a,b"), "x.csv", "cap"))

	require.Len(t, r.Messages(), 1)
	assert.Equal(t, "hello", r.Messages()[0].Text)
	require.Len(t, r.Files(), 1)
	assert.Equal(t, "a,b", string(r.Files()[0].Body))

	boom := errors.New("offline")
	r.FailWith(boom)
	assert.ErrorIs(t, r.SendMessage(ctx, "again", false), boom)
	assert.Len(t, r.Messages(), 1)
}

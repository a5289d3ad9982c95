package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/pkg/logger"
	"github.com/terpspark/admission-service/internal/pkg/session"
)

func TestWithCtx_TagsRequestAndActor(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	logger.InitWithWriter(&buf)

	uid := uuid.New()
	ctx := session.WithRequestID(context.Background(), "req-1")
	ctx = session.WithActor(ctx, domain.Actor{UserID: uid, Role: domain.RoleAdmin})

	logger.WithCtx(ctx).Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, uid.String(), line["user_id"])
	assert.Equal(t, "admin", line["role"])
	assert.Equal(t, "hello", line["message"])
}

func TestInitWithWriter_RespectsLevel(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "warn")

	var buf bytes.Buffer
	logger.InitWithWriter(&buf)

	logger.WithCtx(context.Background()).Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	logger.WithCtx(context.Background()).Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

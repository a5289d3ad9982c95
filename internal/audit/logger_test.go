package audit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terpspark/admission-service/internal/audit"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/pkg/session"
)

func TestLogger_RegistrationCreated(t *testing.T) {
	var buf bytes.Buffer
	l := audit.New(zerolog.New(&buf))

	r := domain.NewConfirmedRegistration(uuid.New(), uuid.New(), []domain.Guest{{ID: uuid.New()}}, nil, time.Now())
	ctx := session.WithRequestID(context.Background(), "rid-9")
	l.RegistrationCreated(ctx, r)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, true, line["audit"])
	assert.Equal(t, "registration_created", line["action"])
	assert.Equal(t, r.ID.String(), line["registration_id"])
	assert.EqualValues(t, 1, line["guests"])
	assert.Equal(t, "rid-9", line["trace_id"])
}

func TestLogger_DecidedRejectionIsWarn(t *testing.T) {
	var buf bytes.Buffer
	l := audit.New(zerolog.New(&buf))

	req := domain.NewApprovalRequest(domain.ApprovalEvent, uuid.New(), uuid.New(), "", time.Now())
	require.NoError(t, req.Reject(uuid.New(), "venue conflict", time.Now()))
	l.Decided(context.Background(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "EVENT_REJECTED", line["action"])
	assert.Equal(t, "venue conflict", line["notes"])
}

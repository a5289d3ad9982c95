package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/terpspark/admission-service/internal/contracts/messages"
	"github.com/terpspark/admission-service/internal/domain"
)

type MockScanHandler struct {
	mock.Mock
}

func (m *MockScanHandler) CheckInFromScan(ctx context.Context, messageID string, p messages.CheckInScannedPayload) (bool, error) {
	args := m.Called(ctx, messageID, p)
	return args.Bool(0), args.Error(1)
}

func scanBody(t *testing.T, msgID uuid.UUID, p messages.CheckInScannedPayload) []byte {
	t.Helper()
	b, err := json.Marshal(messages.New(msgID, "trace-1", time.Now(), p))
	require.NoError(t, err)
	return b
}

func samplePayload() messages.CheckInScannedPayload {
	return messages.CheckInScannedPayload{
		TicketCode: "TKT-ABCDEF123456",
		EventID:    uuid.NewString(),
		ScannedAt:  time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC),
		ScannerID:  "door-2",
	}
}

func TestHandleDelivery_AppliesScan(t *testing.T) {
	h := new(MockScanHandler)
	c := NewConsumer("amqp://unused", "terpspark.events", h)
	ctx := context.Background()

	msgID := uuid.New()
	p := samplePayload()
	h.On("CheckInFromScan", ctx, msgID.String(), p).Return(true, nil).Once()

	err := c.handleDelivery(ctx, messages.CheckInScanned, "", scanBody(t, msgID, p))
	assert.NoError(t, err)
	h.AssertExpectations(t)
}

func TestHandleDelivery_DuplicateIsAcked(t *testing.T) {
	h := new(MockScanHandler)
	c := NewConsumer("amqp://unused", "terpspark.events", h)
	ctx := context.Background()

	msgID := uuid.New()
	p := samplePayload()
	h.On("CheckInFromScan", ctx, msgID.String(), p).Return(false, nil).Once()

	assert.NoError(t, c.handleDelivery(ctx, messages.CheckInScanned, "", scanBody(t, msgID, p)))
	h.AssertExpectations(t)
}

func TestHandleDelivery_BusinessRejectionsAreDropped(t *testing.T) {
	for _, bizErr := range []error{
		domain.ErrAlreadyCheckedIn,
		domain.ErrNotConfirmed,
		domain.ErrNotFound,
		domain.ErrEventNotFound,
		domain.Invalid("ticket_code", "required"),
	} {
		h := new(MockScanHandler)
		c := NewConsumer("amqp://unused", "terpspark.events", h)
		h.On("CheckInFromScan", mock.Anything, mock.Anything, mock.Anything).Return(false, bizErr).Once()

		err := c.handleDelivery(context.Background(), messages.CheckInScanned, "", scanBody(t, uuid.New(), samplePayload()))
		assert.NoError(t, err, bizErr.Error())
		h.AssertExpectations(t)
	}
}

func TestHandleDelivery_TransientErrorRequeues(t *testing.T) {
	h := new(MockScanHandler)
	c := NewConsumer("amqp://unused", "terpspark.events", h)

	boom := domain.OperationFailed("check_in_scan", errors.New("connection reset"))
	h.On("CheckInFromScan", mock.Anything, mock.Anything, mock.Anything).Return(false, boom).Once()

	err := c.handleDelivery(context.Background(), messages.CheckInScanned, "", scanBody(t, uuid.New(), samplePayload()))
	assert.ErrorIs(t, err, boom)

	h2 := new(MockScanHandler)
	c2 := NewConsumer("amqp://unused", "terpspark.events", h2)
	h2.On("CheckInFromScan", mock.Anything, mock.Anything, mock.Anything).Return(false, domain.ErrTimeout).Once()
	assert.ErrorIs(t, c2.handleDelivery(context.Background(), messages.CheckInScanned, "", scanBody(t, uuid.New(), samplePayload())), domain.ErrTimeout)
}

func TestHandleDelivery_PoisonMessagesAreDropped(t *testing.T) {
	h := new(MockScanHandler)
	c := NewConsumer("amqp://unused", "terpspark.events", h)
	ctx := context.Background()

	assert.NoError(t, c.handleDelivery(ctx, messages.CheckInScanned, "", []byte("{not json")))

	wrongVersion, _ := json.Marshal(map[string]any{"version": 99, "payload": samplePayload()})
	assert.NoError(t, c.handleDelivery(ctx, messages.CheckInScanned, "", wrongVersion))

	assert.NoError(t, c.handleDelivery(ctx, "event.approved", "", scanBody(t, uuid.New(), samplePayload())))

	h.AssertNotCalled(t, "CheckInFromScan", mock.Anything, mock.Anything, mock.Anything)
}

func TestMessageID_Fallbacks(t *testing.T) {
	assert.Equal(t, "env-1", messageID(" env-1 ", "amqp-1", "rk", nil))
	assert.Equal(t, "amqp-1", messageID("", "amqp-1", "rk", nil))

	a := messageID("", "", "rk", []byte("body"))
	b := messageID("", "", "rk", []byte("body"))
	other := messageID("", "", "rk", []byte("other"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, other)
	assert.Contains(t, a, "hash:")
}

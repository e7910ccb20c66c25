package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"studygroup/internal/logging"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *publisherMock) Close() error { return nil }

func TestEmitPublishesEnvelope(t *testing.T) {
	pub := new(publisherMock)
	emitter := NewAuditEmitter(pub, "audit.test", "studygroup", "test", logging.Discard())

	var got AuditEnvelope
	pub.On("Publish", mock.Anything, "audit.test", mock.AnythingOfType("telemetry.AuditEnvelope")).
		Run(func(args mock.Arguments) { got = args.Get(2).(AuditEnvelope) }).
		Return(nil).Once()

	userID := 4
	emitter.Emit(context.Background(), LevelInfo, "group deleted", "req-1", &userID)

	pub.AssertExpectations(t)
	assert.Equal(t, "audit_log", got.EventType)
	assert.Equal(t, "req-1", got.RequestID)
	require.NotNil(t, got.UserID)
	assert.Equal(t, 4, *got.UserID)
	assert.Equal(t, "group deleted", got.Payload.Text)
}

func TestEmitOnNilEmitterIsNoop(t *testing.T) {
	var emitter *AuditEmitter
	emitter.Emit(context.Background(), LevelInfo, "ignored", "", nil)
}

func TestEmitSurvivesPublishError(t *testing.T) {
	pub := new(publisherMock)
	emitter := NewAuditEmitter(pub, "audit.test", "studygroup", "test", logging.Discard())
	pub.On("Publish", mock.Anything, "audit.test", mock.Anything).Return(assert.AnError).Once()

	emitter.Emit(context.Background(), LevelError, "login failed", "req-2", nil)
	pub.AssertExpectations(t)
}

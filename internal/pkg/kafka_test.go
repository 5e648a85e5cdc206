package pkg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDecisionProducer(t *testing.T) {
	_, err := NewDecisionProducer(KafkaConfig{Topic: "t"})
	assert.ErrorIs(t, err, ErrKafkaConfig)
	_, err = NewDecisionProducer(KafkaConfig{Brokers: []string{"127.0.0.1:9092"}})
	assert.ErrorIs(t, err, ErrKafkaConfig)

	p, err := NewDecisionProducer(KafkaConfig{Brokers: []string{"127.0.0.1:9092"}, Topic: "decision-events"})
	require.NoError(t, err)
	assert.Equal(t, "decision-events", p.Topic())
	assert.Equal(t, 10*time.Millisecond, p.writer.BatchTimeout)
	assert.NoError(t, p.Close())
}

func TestDecisionMessage(t *testing.T) {
	at := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	msg := DecisionMessage(DecisionEvent{
		OutboxID:   17,
		DecisionID: 42,
		Type:       "decision.closed",
		Payload:    []byte(`{"title":"x"}`),
		At:         at,
	})

	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, `{"title":"x"}`, string(msg.Value))
	assert.True(t, at.Equal(msg.Time))
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, map[string]string{HeaderEventType: "decision.closed", HeaderOutboxID: "17"}, headers)
}

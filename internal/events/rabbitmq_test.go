package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/greenpoints/internal/testutil"
)

func TestRabbitPublisher(t *testing.T) {
	rmq := testutil.StartRabbitMQContainer(t)
	t.Cleanup(rmq.Terminate)

	publisher, err := NewRabbitPublisher(rmq.URL, "ledger.events.test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = publisher.Close() })

	event := Event{
		Type:           RedemptionCreated,
		AccountID:      uuid.New(),
		SubjectID:      uuid.New(),
		EarnedDelta:    decimal.Zero,
		SpendableDelta: decimal.NewFromInt(-300),
		Balance:        decimal.NewFromInt(200),
		OccurredAt:     time.Now().UTC().Truncate(time.Second),
	}

	err = publisher.Publish(t.Context(), event)
	require.NoError(t, err)

	conn, err := amqp.Dial(rmq.URL)
	require.NoError(t, err)
	defer conn.Close() // nolint:errcheck
	ch, err := conn.Channel()
	require.NoError(t, err)

	var msg amqp.Delivery
	require.Eventually(t, func() bool {
		var ok bool
		msg, ok, err = ch.Get("ledger.events.test", true)
		return err == nil && ok
	}, 5*time.Second, 100*time.Millisecond, "published event has to reach the queue")

	require.Equal(t, "application/json", msg.ContentType)
	require.Equal(t, string(RedemptionCreated), msg.Type)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	require.Equal(t, "redemption.created", got["type"])
	require.Equal(t, event.AccountID.String(), got["account_id"])
	require.Equal(t, "-300", got["spendable_delta"])
	require.Equal(t, "200", got["balance"])
}

func TestDiscard(t *testing.T) {
	var p Publisher = Discard{}

	require.NoError(t, p.Publish(t.Context(), Event{Type: RecyclingSubmitted}))
}

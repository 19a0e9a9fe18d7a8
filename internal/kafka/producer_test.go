package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourname/commerce-datagen/internal/config"
	"github.com/yourname/commerce-datagen/internal/event"
	"github.com/yourname/commerce-datagen/internal/filter"
	"github.com/yourname/commerce-datagen/internal/retry"
)

type sample struct {
	ProductID string  `json:"product_id"`
	Price     float64 `json:"price"`
}

func expectMessage(t *testing.T, topic, key string, check func(map[string]any)) mocks.MessageChecker {
	return func(m *sarama.ProducerMessage) error {
		if m.Topic != topic {
			return fmt.Errorf("topic %q, want %q", m.Topic, topic)
		}
		k, err := m.Key.Encode()
		if err != nil {
			return err
		}
		if string(k) != key {
			return fmt.Errorf("key %q, want %q", k, key)
		}
		v, err := m.Value.Encode()
		if err != nil {
			return err
		}
		var body map[string]any
		if err := json.Unmarshal(v, &body); err != nil {
			return err
		}
		check(body)
		return nil
	}
}

func TestPublishSendsJSONWithKey(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(expectMessage(t, "clicks", "p-1", func(body map[string]any) {
		assert.Equal(t, "p-1", body["product_id"])
		assert.Equal(t, 12.5, body["price"])
	}))

	pub := NewPublisher(mp, nil, zap.NewNop())
	require.NoError(t, pub.Publish(context.Background(), "clicks", "p-1", sample{ProductID: "p-1", Price: 12.5}))
	require.NoError(t, pub.Close())
}

// rawMessage captures the encoded value of the next sent message.
func rawMessage(raw *map[string]json.RawMessage) mocks.MessageChecker {
	return func(m *sarama.ProducerMessage) error {
		v, err := m.Value.Encode()
		if err != nil {
			return err
		}
		return json.Unmarshal(v, raw)
	}
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func assertTimestamp(t *testing.T, raw json.RawMessage) {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3}$`, s)
	_, err := time.ParseInLocation(event.TimestampLayout, s, time.Local)
	assert.NoError(t, err)
}

func TestPublishEncodesEventsOnTheWire(t *testing.T) {
	gen := event.NewGenerator(9)
	pricePattern := regexp.MustCompile(`^\d{1,2}\.\d{2}$`)
	totalPattern := regexp.MustCompile(`^\d{1,3}\.\d{2}$`)

	for i := 0; i < 25; i++ {
		click := gen.Click(1+i%100, "")
		checkout := gen.Checkout(click.UserID, click.ProductID)

		var clickRaw, checkoutRaw map[string]json.RawMessage
		mp := mocks.NewSyncProducer(t, nil)
		mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(rawMessage(&clickRaw))
		mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(rawMessage(&checkoutRaw))

		pub := NewPublisher(mp, nil, zap.NewNop())
		require.NoError(t, pub.Publish(context.Background(), "clicks", click.ProductID, click))
		require.NoError(t, pub.Publish(context.Background(), "checkouts", checkout.ProductID, checkout))
		require.NoError(t, pub.Close())

		assert.Equal(t, []string{
			"click_id", "datetime_occured", "ip_address", "price", "product",
			"product_id", "url", "user_agent", "user_id",
		}, sortedKeys(clickRaw))
		assert.Equal(t, []string{
			"billing_address", "checkout_id", "datetime_occured", "ip_address", "payment_method",
			"product_id", "shipping_address", "total_amount", "user_agent", "user_id",
		}, sortedKeys(checkoutRaw))

		assert.Regexp(t, pricePattern, string(clickRaw["price"]))
		assert.Regexp(t, totalPattern, string(checkoutRaw["total_amount"]))
		assertTimestamp(t, clickRaw["datetime_occured"])
		assertTimestamp(t, checkoutRaw["datetime_occured"])
		assert.Equal(t, clickRaw["product_id"], checkoutRaw["product_id"])
		assert.Equal(t, clickRaw["user_id"], checkoutRaw["user_id"])
	}
}

func TestPublishReturnsSendError(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewPublisher(mp, nil, zap.NewNop())
	err := pub.Publish(context.Background(), "checkouts", "p-1", sample{ProductID: "p-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers))
	assert.Contains(t, err.Error(), "publish checkouts")
	require.NoError(t, pub.Close())
}

func TestPublishSkipsFilteredEvents(t *testing.T) {
	f, err := filter.NewCEL(`event.price > 10.0`, true)
	require.NoError(t, err)

	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(expectMessage(t, "clicks", "kept", func(body map[string]any) {
		assert.Equal(t, "kept", body["product_id"])
	}))

	pub := NewPublisher(mp, f, zap.NewNop())
	require.NoError(t, pub.Publish(context.Background(), "clicks", "dropped", sample{ProductID: "dropped", Price: 3}))
	require.NoError(t, pub.Publish(context.Background(), "clicks", "kept", sample{ProductID: "kept", Price: 30}))
	require.NoError(t, pub.Close())
}

func TestPublishRejectsCancelledContext(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	pub := NewPublisher(mp, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pub.Publish(ctx, "clicks", "k", sample{}), context.Canceled)
	require.NoError(t, pub.Close())
}

func TestBuildSaramaConfig(t *testing.T) {
	sc, err := buildSaramaConfig(&config.KafkaConfig{ClientID: "datagen-test"})
	require.NoError(t, err)
	assert.Equal(t, "datagen-test", sc.ClientID)
	assert.True(t, sc.Producer.Return.Successes)
	assert.Equal(t, sarama.WaitForAll, sc.Producer.RequiredAcks)
	assert.False(t, sc.Net.TLS.Enable)
	assert.False(t, sc.Net.SASL.Enable)

	sc, err = buildSaramaConfig(&config.KafkaConfig{
		SecurityProtocol: "sasl_ssl",
		SASLUsername:     "svc",
		SASLPassword:     "pw",
	})
	require.NoError(t, err)
	assert.True(t, sc.Net.TLS.Enable)
	assert.True(t, sc.Net.SASL.Enable)
	assert.Equal(t, sarama.SASLMechanism(sarama.SASLTypePlaintext), sc.Net.SASL.Mechanism)
	assert.Equal(t, "svc", sc.Net.SASL.User)
}

func TestBuildSaramaConfigTLSOptions(t *testing.T) {
	sc, err := buildSaramaConfig(&config.KafkaConfig{
		SecurityProtocol:      "SSL",
		TLSServerName:         "broker.internal",
		TLSInsecureSkipVerify: true,
	})
	require.NoError(t, err)
	require.NotNil(t, sc.Net.TLS.Config)
	assert.Equal(t, "broker.internal", sc.Net.TLS.Config.ServerName)
	assert.True(t, sc.Net.TLS.Config.InsecureSkipVerify)
	assert.Empty(t, sc.Net.TLS.Config.Certificates)

	_, err = buildSaramaConfig(&config.KafkaConfig{
		SecurityProtocol: "SSL",
		TLSCert:          "not a cert",
		TLSKey:           "not a key",
	})
	assert.ErrorContains(t, err, "client cert/key")
}

func TestBuildSaramaConfigRejectsUnknownSettings(t *testing.T) {
	_, err := buildSaramaConfig(&config.KafkaConfig{SecurityProtocol: "QUIC"})
	assert.Error(t, err)

	_, err = buildSaramaConfig(&config.KafkaConfig{SecurityProtocol: "SASL_PLAINTEXT", SASLMechanism: "SCRAM-SHA-512"})
	assert.Error(t, err)

	_, err = buildSaramaConfig(&config.KafkaConfig{SecurityProtocol: "SSL", TLSCA: "not a pem"})
	assert.Error(t, err)
}

func TestConnectExhaustsWithoutBrokers(t *testing.T) {
	cfg := &config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}, ClientID: "datagen-test"}
	policy := retry.Policy{MaxAttempts: 2, Multiplier: 1}

	_, err := Connect(context.Background(), cfg, policy, zap.NewNop(), nil)
	assert.ErrorIs(t, err, retry.ErrExhausted)
}

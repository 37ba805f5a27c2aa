package mqtt

import (
	"errors"
	"testing"

	"svitlo/internal/config"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMessage struct {
	pahomqtt.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

func TestBuildClientOptions(t *testing.T) {
	cfg := config.Default().MQTT
	cfg.Broker.Host = "broker.local"
	cfg.Broker.ClientID = "svitlo-test"
	cfg.Auth.Username = "user"
	cfg.Auth.Password = "pass"

	opts := buildClientOptions(cfg)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://broker.local:1883", opts.Servers[0].String())
	assert.Equal(t, "svitlo-test", opts.ClientID)
	assert.Equal(t, "user", opts.Username)
	assert.True(t, opts.AutoReconnect)
	assert.True(t, opts.CleanSession)
	assert.Nil(t, opts.TLSConfig)

	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	opts = buildClientOptions(cfg)
	assert.Equal(t, "ssl://broker.local:8883", opts.Servers[0].String())
	assert.NotNil(t, opts.TLSConfig)
}

func TestSubscribe_Validation(t *testing.T) {
	c := newClient(zap.NewNop())
	handler := func(string, []byte) error { return nil }

	assert.ErrorIs(t, c.Subscribe("", 0, handler), ErrInvalidTopic)
	assert.ErrorIs(t, c.Subscribe("svitlo/kyiv", 3, handler), ErrInvalidQoS)
	assert.ErrorIs(t, c.Subscribe("svitlo/kyiv", 1, nil), ErrSubscribeFailed)
	assert.ErrorIs(t, c.Subscribe("svitlo/kyiv", 1, handler), ErrNotConnected)
	assert.Equal(t, 0, c.SubscriptionCount())

	assert.ErrorIs(t, c.Unsubscribe(""), ErrInvalidTopic)
	assert.ErrorIs(t, c.Unsubscribe("svitlo/kyiv"), ErrNotConnected)
	assert.NoError(t, c.Close())
}

func TestWrapHandler(t *testing.T) {
	c := newClient(zap.NewNop())

	var got []byte
	wrapped := c.wrapHandler(func(topic string, payload []byte) error {
		got = payload
		return errors.New("ignored")
	})
	wrapped(nil, fakeMessage{topic: "t", payload: []byte("hello")})
	assert.Equal(t, []byte("hello"), got)

	panicking := c.wrapHandler(func(string, []byte) error { panic("boom") })
	assert.NotPanics(t, func() {
		panicking(nil, fakeMessage{topic: "t"})
	})
}

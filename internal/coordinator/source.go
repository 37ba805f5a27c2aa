package coordinator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"svitlo/internal/mqtt"

	"go.uber.org/zap"
)

// Source supplies schedule snapshots.
type Source interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// Notifier is implemented by push-based sources. A value on Updates asks
// the coordinator to refresh before the next poll tick.
type Notifier interface {
	Updates() <-chan struct{}
}

// Waiter is implemented by sources whose first snapshot arrives
// asynchronously. WaitReady blocks until it has one or ctx ends.
type Waiter interface {
	WaitReady(ctx context.Context) error
}

// FileSource reads the snapshot document an external poller keeps on disk.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path on every fetch.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch reads and decodes the snapshot file.
func (s *FileSource) Fetch(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNoData, s.path)
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", s.path, err)
	}
	return DecodeSnapshot(data)
}

// Subscriber is the part of the MQTT client the MQTT source needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// MQTTSource keeps the latest snapshot published on a topic.
type MQTTSource struct {
	sub     Subscriber
	topic   string
	logger  *zap.Logger
	updates chan struct{}

	ready     chan struct{}
	readyOnce sync.Once

	mu     sync.RWMutex
	latest *Snapshot
}

// NewMQTTSource subscribes to topic and starts collecting snapshots.
func NewMQTTSource(sub Subscriber, topic string, qos byte, logger *zap.Logger) (*MQTTSource, error) {
	s := &MQTTSource{
		sub:     sub,
		topic:   topic,
		logger:  logger.Named("mqtt_source"),
		updates: make(chan struct{}, 1),
		ready:   make(chan struct{}),
	}

	if err := sub.Subscribe(topic, qos, s.handleMessage); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	s.logger.Info("Subscribed to schedule topic", zap.String("topic", topic))
	return s, nil
}

func (s *MQTTSource) handleMessage(topic string, payload []byte) error {
	snap, err := DecodeSnapshot(payload)
	if err != nil {
		s.logger.Warn("Discarding malformed schedule payload",
			zap.String("topic", topic),
			zap.Int("bytes", len(payload)),
			zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })

	s.logger.Debug("Schedule snapshot received",
		zap.String("topic", topic),
		zap.String("date", snap.Date))

	select {
	case s.updates <- struct{}{}:
	default:
	}
	return nil
}

// Fetch returns the latest received snapshot.
func (s *MQTTSource) Fetch(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return nil, ErrNoData
	}
	return s.latest.clone(), nil
}

// WaitReady blocks until the first snapshot has been received. Retained
// messages arrive after the subscription is acknowledged, so callers wait
// here before the first Fetch.
func (s *MQTTSource) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNoData, ctx.Err())
	}
}

// Updates signals newly received snapshots.
func (s *MQTTSource) Updates() <-chan struct{} {
	return s.updates
}

// Close unsubscribes from the topic.
func (s *MQTTSource) Close() error {
	return s.sub.Unsubscribe(s.topic)
}

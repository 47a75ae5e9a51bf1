// internal/stream/kafka.go
//
// Optional per-room game-event feed on Kafka. Each room gets its own topic,
// created when the room opens and deleted when it is retired; events are
// short human-readable lines written asynchronously, so the game core never
// waits on the broker. The feed is off (nil) when no broker is configured.

package stream

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// Feed publishes room events to per-room Kafka topics. A nil *Feed is a
// valid no-op.
type Feed struct {
	broker  string
	mu      sync.Mutex
	writers map[int]*kafka.Writer
}

// New returns a Feed for the broker address, or nil when broker is empty.
func New(broker string) *Feed {
	if broker == "" {
		return nil
	}
	return &Feed{broker: broker, writers: make(map[int]*kafka.Writer)}
}

func topicName(roomID int) string {
	return fmt.Sprintf("reuse-room-%d", roomID)
}

// RoomOpened creates the room's topic (the broker is expected to allow auto
// topic creation on dial) and prepares an async writer for it. Failures are
// logged and leave the room without a feed; gameplay is unaffected.
func (f *Feed) RoomOpened(roomID int) {
	if f == nil {
		return
	}
	topic := topicName(roomID)
	conn, err := kafka.DialLeader(context.Background(), "tcp", f.broker, topic, 0)
	if err != nil {
		log.Warn().Str("topic", topic).Err(err).Msg("kafka topic create failed")
		return
	}
	_ = conn.Close()

	w := &kafka.Writer{
		Addr:         kafka.TCP(f.broker),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		BatchSize:    1,
	}
	f.mu.Lock()
	f.writers[roomID] = w
	f.mu.Unlock()
}

// Announce writes one event line to the room's topic, if it has one.
func (f *Feed) Announce(roomID int, message string) {
	if f == nil {
		return
	}
	f.mu.Lock()
	w := f.writers[roomID]
	f.mu.Unlock()
	if w == nil {
		return
	}
	if err := w.WriteMessages(context.Background(), kafka.Message{Value: []byte(message)}); err != nil {
		log.Warn().Int("room", roomID).Err(err).Msg("kafka write failed")
	}
}

// RoomClosed tears down the room's writer and deletes its topic.
func (f *Feed) RoomClosed(roomID int) {
	if f == nil {
		return
	}
	f.mu.Lock()
	w := f.writers[roomID]
	delete(f.writers, roomID)
	f.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}

	conn, err := kafka.Dial("tcp", f.broker)
	if err != nil {
		log.Warn().Err(err).Msg("kafka dial failed, topic not removed")
		return
	}
	defer conn.Close()
	if err := conn.DeleteTopics(topicName(roomID)); err != nil {
		log.Warn().Int("room", roomID).Err(err).Msg("kafka topic delete failed")
	}
}

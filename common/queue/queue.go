// Package queue carries the plan events between the API services and
// the background workers.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/platewise/mealplanner/common/logger"
)

// ErrClosed is returned by Publish after the queue shut down
var ErrClosed = errors.New("queue closed")

// Queue is the pub/sub contract services publish variant events
// through
type Queue interface {
	Publish(ctx context.Context, topic string, key string, message []byte) error
	Subscribe(ctx context.Context, topic string, handler MessageHandler) error
	Close() error
}

// MessageHandler processes one delivered message
type MessageHandler func(ctx context.Context, key string, value []byte) error

// Message is one queued event
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// MemoryQueue fans messages out through per-topic buffered channels.
// Delivery is at-most-once: a full topic drops the message with a
// warning, so consumers must not depend on seeing every event.
type MemoryQueue struct {
	mu      sync.Mutex
	topics  map[string]chan *Message
	bufSize int
	closed  bool
	log     *logger.Logger
}

// NewMemoryQueue creates an in-process queue with the given per-topic
// buffer size
func NewMemoryQueue(log *logger.Logger, bufferSize int) *MemoryQueue {
	if bufferSize < 1 {
		bufferSize = 100
	}
	return &MemoryQueue{
		topics:  make(map[string]chan *Message),
		bufSize: bufferSize,
		log:     log,
	}
}

func (q *MemoryQueue) topic(name string) (chan *Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrClosed
	}
	ch, ok := q.topics[name]
	if !ok {
		ch = make(chan *Message, q.bufSize)
		q.topics[name] = ch
	}
	return ch, nil
}

// Publish enqueues a message without blocking. When the topic buffer
// is full the message is dropped and logged.
func (q *MemoryQueue) Publish(ctx context.Context, topic string, key string, message []byte) error {
	ch, err := q.topic(topic)
	if err != nil {
		return err
	}

	select {
	case ch <- &Message{Topic: topic, Key: key, Value: message}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		q.log.Warn("queue full, dropping message", "topic", topic, "key", key)
		return nil
	}
}

// Subscribe consumes a topic on a background goroutine until the
// context is cancelled or the queue closes. Handler errors are logged
// and do not stop consumption.
func (q *MemoryQueue) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	ch, err := q.topic(topic)
	if err != nil {
		return err
	}

	q.log.Info("subscribed to topic", "topic", topic)

	go func() {
		for {
			select {
			case <-ctx.Done():
				q.log.Info("subscription cancelled", "topic", topic)
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if err := handler(ctx, msg.Key, msg.Value); err != nil {
					q.log.Error("message handler error", "topic", topic, "key", msg.Key, "error", err)
				}
			}
		}
	}()

	return nil
}

// Close stops delivery on all topics
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	for topic, ch := range q.topics {
		close(ch)
		q.log.Info("closed topic", "topic", topic)
	}
	return nil
}

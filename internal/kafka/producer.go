package kafka

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
)

// Producer writes domain events to Kafka, one writer per topic.
type Producer struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

func (p *Producer) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers: p.brokers,
		Topic:   topic,
	})
	p.writers[topic] = w
	return w
}

// Publish sends one message. Callers treat failures as best-effort; a lost
// event never affects an already-committed order.
func (p *Producer) Publish(topic, key string, value []byte) error {
	return p.writer(topic).WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(key),
			Value: value,
		},
	)
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for _, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.writers = make(map[string]*kafka.Writer)
	return firstErr
}

package events

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"github.com/streadway/amqp"
)

const DefaultExchange = "blockfox.events"

// AMQPPublisher publishes events to a topic exchange and reuses one channel.
type AMQPPublisher struct {
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(uri, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, err
	}
	p := &AMQPPublisher{exchange: exchange, conn: conn}
	if err := p.setup(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	log.Infof("[Events] connected to AMQP broker, exchange %s", exchange)
	return p, nil
}

func (p *AMQPPublisher) setup() error {
	channel, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer channel.Close()
	return channel.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil)
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := encode(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		if p.ch, err = p.conn.Channel(); err != nil {
			return err
		}
	}
	msg := amqp.Publishing{
		Headers:      amqp.Table{"x-explorer-id": strconv.FormatUint(uint64(ev.ExplorerID), 10)},
		Body:         body,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
	}
	if err = p.ch.Publish(p.exchange, ev.Name, false, false, msg); err != nil {
		// a failed channel is closed by the broker, open a new one next time
		p.ch = nil
	}
	return err
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			log.Warnf("[Events] closing AMQP channel: %v", err)
		}
		p.ch = nil
	}
	return p.conn.Close()
}

func encode(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

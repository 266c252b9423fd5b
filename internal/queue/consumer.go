package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/event-booking/internal/mailer"
)

// StartReceiptConsumer connects to RabbitMQ, declares the booking.paid
// queue (durable), and starts consuming messages.  Each message is turned
// into a receipt and handed to the sender.  The function runs a reconnect
// loop with exponential backoff and keeps running across broker outages;
// processing errors are logged and the offending message rejected so the
// server continues operating.
func StartReceiptConsumer(sender mailer.Sender) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("receipt-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, sender); err != nil {
			log.Printf("receipt-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, sender mailer.Sender) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("receipt-consumer: set QoS failed: %v", err)
	}

	_, err = ch.QueueDeclare(paidQueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(paidQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body, sender); err != nil {
			log.Printf("receipt-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte, sender mailer.Sender) error {
	var ev BookingPaidEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return sender.SendReceipt(mailer.Receipt{
		BookingID:   ev.BookingID,
		UserEmail:   ev.UserEmail,
		UserName:    ev.UserName,
		EventTitle:  ev.EventTitle,
		Seats:       ev.Seats,
		AmountCents: ev.AmountCents,
		ConfirmedAt: ev.ConfirmedAt,
	})
}

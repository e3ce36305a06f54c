// Package events announces committed purchases to kitchens over RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"homekitchen/internal/models"
)

const (
	Exchange       = "purchases_topic"
	createdKeyBase = "purchase.created"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// KitchenOrder is the message a kitchen receives for its share of a purchase.
type KitchenOrder struct {
	PurchaseID    string                `json:"purchaseId"`
	UserID        string                `json:"userId"`
	KitchenID     string                `json:"kitchenId"`
	Items         []models.PurchaseItem `json:"items"`
	PaymentMethod models.PaymentMethod  `json:"paymentMethod"`
	Status        models.PurchaseStatus `json:"status"`
	CustomerInfo  *models.DeliveryInfo  `json:"customerInfo,omitempty"`
	PurchasedAt   time.Time             `json:"purchasedAt"`
}

// Publisher sends one persistent message per kitchen in the purchase, routed
// as purchase.created.<kitchenId>.
type Publisher struct {
	conn *amqp.Connection
	ch   channel
}

func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if c, ok := p.ch.(*amqp.Channel); ok && c != nil {
		_ = c.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func (p *Publisher) PurchaseCreated(ctx context.Context, purchase models.Purchase) error {
	for _, msg := range SplitByKitchen(purchase) {
		body, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s.%s", createdKeyBase, msg.KitchenID)
		err = p.ch.PublishWithContext(ctx, Exchange, key, false, false, amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			ContentType:  "application/json",
			MessageId:    msg.PurchaseID + ":" + msg.KitchenID,
			Body:         body,
		})
		if err != nil {
			return fmt.Errorf("publish %s: %w", key, err)
		}
	}
	return nil
}

// SplitByKitchen groups purchase items by kitchen, keeping item order and the
// order kitchens first appear in.
func SplitByKitchen(purchase models.Purchase) []KitchenOrder {
	var out []KitchenOrder
	index := map[string]int{}
	for _, item := range purchase.Items {
		kitchen := item.KitchenID.Hex()
		i, ok := index[kitchen]
		if !ok {
			i = len(out)
			index[kitchen] = i
			out = append(out, KitchenOrder{
				PurchaseID:    purchase.ID.Hex(),
				UserID:        purchase.UserID.Hex(),
				KitchenID:     kitchen,
				PaymentMethod: purchase.PaymentMethod,
				Status:        purchase.Status,
				CustomerInfo:  purchase.CustomerInfo,
				PurchasedAt:   purchase.PurchasedAt,
			})
		}
		out[i].Items = append(out[i].Items, item)
	}
	return out
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PurchaseCreated(ctx context.Context, purchase models.Purchase) error {
	log.Printf("[EVENTS] [DEBUG] no broker configured, purchase %s not announced", purchase.ID.Hex())
	return nil
}

package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidPaymentMethod = errors.New("invalid payment method")

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

// ParsePaymentMethod accepts "cash" and "card"; "visa" is kept as an alias of
// card for older clients.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cash":
		return PaymentCash, nil
	case "card", "visa":
		return PaymentCard, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}

type PurchaseStatus string

const (
	StatusPending   PurchaseStatus = "pending"
	StatusCompleted PurchaseStatus = "completed"
	StatusCancelled PurchaseStatus = "cancelled"
)

// PurchaseItem is a frozen copy of a cart line at commit time.
type PurchaseItem struct {
	KitchenID primitive.ObjectID `bson:"kitchenId" json:"kitchenId"`
	DishName  string             `bson:"dishName" json:"dishName"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     float64            `bson:"price" json:"price"`
}

// DeliveryInfo is recorded for the delivery checkout flow.
type DeliveryInfo struct {
	Name     string `bson:"name" json:"name"`
	Location string `bson:"location" json:"location"`
	Phone    string `bson:"phone,omitempty" json:"phone,omitempty"`
	Notes    string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Purchase is immutable once created except for its status. TotalPrice is the
// sum of price x quantity over the frozen items; Tax and TotalWithTax use the
// shared tax rate.
type Purchase struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	Items          []PurchaseItem     `bson:"items" json:"items"`
	TotalPrice     float64            `bson:"totalPrice" json:"totalPrice"`
	Tax            float64            `bson:"tax" json:"tax"`
	TotalWithTax   float64            `bson:"totalWithTax" json:"totalWithTax"`
	PaymentMethod  PaymentMethod      `bson:"paymentMethod" json:"paymentMethod"`
	Status         PurchaseStatus     `bson:"status" json:"status"`
	CustomerInfo   *DeliveryInfo      `bson:"customerInfo,omitempty" json:"customerInfo,omitempty"`
	IdempotencyKey string             `bson:"idempotencyKey,omitempty" json:"-"`
	CartVersion    int64              `bson:"cartVersion" json:"-"`
	PurchasedAt    time.Time          `bson:"purchasedAt" json:"purchasedAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

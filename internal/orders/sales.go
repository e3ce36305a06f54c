package orders

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// KitchenPurchase is a purchase narrowed to one kitchen's items.
type KitchenPurchase struct {
	PurchaseID  primitive.ObjectID `bson:"_id" json:"purchaseId"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Items       []KitchenSaleItem  `bson:"items" json:"items"`
	Status      string             `bson:"status" json:"status"`
	PurchasedAt time.Time          `bson:"purchasedAt" json:"purchasedAt"`
}

type KitchenSaleItem struct {
	DishName string  `bson:"dishName" json:"dishName"`
	Quantity int     `bson:"quantity" json:"quantity"`
	Price    float64 `bson:"price" json:"price"`
}

// KitchenStats aggregates non-cancelled sales of one kitchen.
type KitchenStats struct {
	TotalSales   int     `bson:"totalSales" json:"totalSales"`
	TotalOrders  int     `bson:"totalOrders" json:"totalOrders"`
	TotalRevenue float64 `bson:"totalRevenue" json:"totalRevenue"`
}

// SalesReader is the read-only view kitchens get over purchases.
type SalesReader interface {
	KitchenPurchases(ctx context.Context, kitchenID primitive.ObjectID) ([]KitchenPurchase, error)
	KitchenStats(ctx context.Context, kitchenID primitive.ObjectID) (KitchenStats, error)
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser       = "user"
	RoleStoreOwner = "store owner"
	RoleAdmin      = "admin"
)

// OrderHistoryEntry points at a committed purchase.
type OrderHistoryEntry struct {
	PurchaseID primitive.ObjectID `bson:"purchaseId" json:"purchaseId"`
}

// FavoriteDish bookmarks a dish by kitchen and exact dish name. Details are
// read from the current menu, never copied.
type FavoriteDish struct {
	KitchenID primitive.ObjectID `bson:"kitchenId" json:"kitchenId"`
	DishName  string             `bson:"dishName" json:"dishName"`
}

// User represents the customer account. The server-side cart lives inside it;
// CartVersion is bumped on every cart write and guards read-modify-write.
type User struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	Email        string              `bson:"email" json:"email"`
	PasswordHash string              `bson:"password" json:"-"`
	Phone        string              `bson:"phone,omitempty" json:"phone,omitempty"`
	Address      string              `bson:"address,omitempty" json:"address,omitempty"`
	Role         string              `bson:"role" json:"role"`
	Cart         []CartItem          `bson:"cart" json:"cart"`
	CartVersion  int64               `bson:"cartVersion" json:"-"`
	OrderHistory []OrderHistoryEntry `bson:"orderHistory" json:"orderHistory"`
	Favorites    []FavoriteDish      `bson:"favorites" json:"favorites"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
}

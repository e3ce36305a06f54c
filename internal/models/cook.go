package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MenuItem is the single source of truth for a dish price.
type MenuItem struct {
	DishName    string  `bson:"dishName" json:"dishName"`
	Price       float64 `bson:"price" json:"price"`
	Description string  `bson:"description,omitempty" json:"description,omitempty"`
	Available   *bool   `bson:"available,omitempty" json:"available"`
	Image       *string `bson:"image" json:"image"`
}

// IsAvailable treats a missing flag as available, which is how older menu
// documents were written.
func (m MenuItem) IsAvailable() bool {
	return m.Available == nil || *m.Available
}

// Cook is a kitchen storefront owned by a store-owner account.
type Cook struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Location  string             `bson:"location" json:"location"`
	Rating    float64            `bson:"rating" json:"rating"`
	Menu      []MenuItem         `bson:"menu" json:"menu"`
	Phone     string             `bson:"phone" json:"phone"`
	Verified  bool               `bson:"verified" json:"verified"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Image     *string            `bson:"image" json:"image"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (c Cook) KitchenID() KitchenID {
	return KitchenIDFromObjectID(c.ID)
}

// Dish finds a menu entry by exact name.
func (c Cook) Dish(name string) (MenuItem, bool) {
	for _, item := range c.Menu {
		if item.DishName == name {
			return item, true
		}
	}
	return MenuItem{}, false
}

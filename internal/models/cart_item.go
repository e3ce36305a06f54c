package models

// CartItem is a cart line as stored in the user document, in the local client
// cache and on the wire. Quantity and price are tolerant numbers so that
// legacy string values survive decoding and are judged by the cart rules.
type CartItem struct {
	KitchenID string `bson:"kitchenId,omitempty" json:"kitchenId,omitempty"`
	ChefID    string `bson:"chefId,omitempty" json:"chefId,omitempty"`
	DishName  string `bson:"dishName" json:"dishName"`
	Quantity  Number `bson:"quantity" json:"quantity"`
	Price     Number `bson:"price" json:"price"`
}

// Ref resolves the kitchen reference carried by the item.
func (i CartItem) Ref() (KitchenID, error) {
	return NormalizeKitchenID(i.KitchenID, i.ChefID)
}

package orders

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"homekitchen/internal/cart"
	"homekitchen/internal/models"
	"homekitchen/internal/pricing"
)

// QuoteLine compares a cart line with the current menu.
type QuoteLine struct {
	KitchenID    models.KitchenID `json:"kitchenId"`
	DishName     string           `json:"dishName"`
	Quantity     int              `json:"quantity"`
	CartPrice    float64          `json:"cartPrice"`
	CurrentPrice float64          `json:"currentPrice"`
	PriceChanged bool             `json:"priceChanged"`
	Available    bool             `json:"available"`
	Problem      string           `json:"problem,omitempty"`
}

// Quote is what a checkout would charge right now, next to what the cart
// shows. Lines with a Problem would make Checkout fail.
type Quote struct {
	Lines         []QuoteLine    `json:"lines"`
	CartTotals    pricing.Totals `json:"cartTotals"`
	CurrentTotals pricing.Totals `json:"currentTotals"`
	Checkoutable  bool           `json:"checkoutable"`
}

// Quote re-prices the cart without committing anything.
func (s *Service) Quote(ctx context.Context, customerID primitive.ObjectID) (Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	snap, err := s.repo.LoadCart(ctx, customerID)
	if err != nil {
		return Quote{}, err
	}
	c := cart.FromItems(snap.Items)
	if c.IsEmpty() {
		return Quote{}, ErrEmptyCart
	}

	quote := Quote{CartTotals: c.Totals(), Checkoutable: true}
	kitchens := map[models.KitchenID]models.Cook{}
	entries := make([]pricing.Entry, 0, c.Len())

	for _, line := range c.Lines() {
		ql, err := s.quoteLine(ctx, kitchens, line)
		if err != nil {
			return Quote{}, err
		}
		if ql.Problem != "" {
			quote.Checkoutable = false
		} else {
			entries = append(entries, pricing.Entry{Price: ql.CurrentPrice, Quantity: ql.Quantity})
		}
		quote.Lines = append(quote.Lines, ql)
	}

	quote.CurrentTotals = pricing.Compute(entries)
	return quote, nil
}

// quoteLine prices one line. Missing kitchens, dishes and unavailable dishes
// are reported on the line; lookup failures such as timeouts abort the quote.
func (s *Service) quoteLine(ctx context.Context, kitchens map[models.KitchenID]models.Cook, line cart.Line) (QuoteLine, error) {
	ql := QuoteLine{
		KitchenID: line.KitchenID,
		DishName:  line.DishName,
		Quantity:  line.Quantity,
		CartPrice: line.UnitPrice,
	}

	cook, ok := kitchens[line.KitchenID]
	if !ok {
		var err error
		cook, err = s.authority.Kitchen(ctx, line.KitchenID)
		if errors.Is(err, pricing.ErrKitchenNotFound) {
			ql.Problem = err.Error()
			return ql, nil
		}
		if err != nil {
			return QuoteLine{}, err
		}
		kitchens[line.KitchenID] = cook
	}

	dish, err := pricing.DishFrom(cook, line.DishName)
	if err != nil {
		ql.Problem = err.Error()
		return ql, nil
	}
	ql.CurrentPrice = dish.Price
	if !dish.IsAvailable() {
		ql.Problem = ErrDishUnavailable.Error()
		return ql, nil
	}
	ql.Available = true
	ql.PriceChanged = dish.Price != line.UnitPrice
	return ql, nil
}

package models

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// KitchenIDLength is the length of a kitchen identifier on the wire.
const KitchenIDLength = 24

var (
	ErrMissingIdentifier = errors.New("missing kitchen identifier")
	ErrInvalidIdentifier = errors.New("invalid kitchen identifier")
)

// KitchenID is the canonical form of a kitchen reference: 24 lower-case hex
// characters. Clients refer to the same kitchen as either "kitchenId" or
// "chefId"; only the wire layer knows about both names.
type KitchenID string

// NormalizeKitchenID resolves the two aliases into one canonical identifier.
// kitchenId wins when both are set. Short identifiers are left-padded with
// zeros to the wire length.
func NormalizeKitchenID(kitchenID, chefID string) (KitchenID, error) {
	raw := strings.TrimSpace(kitchenID)
	if raw == "" {
		raw = strings.TrimSpace(chefID)
	}
	if raw == "" {
		return "", ErrMissingIdentifier
	}
	if len(raw) > KitchenIDLength {
		return "", ErrInvalidIdentifier
	}
	if len(raw) < KitchenIDLength {
		raw = strings.Repeat("0", KitchenIDLength-len(raw)) + raw
	}
	raw = strings.ToLower(raw)
	if _, err := primitive.ObjectIDFromHex(raw); err != nil {
		return "", ErrInvalidIdentifier
	}
	return KitchenID(raw), nil
}

func KitchenIDFromObjectID(id primitive.ObjectID) KitchenID {
	return KitchenID(id.Hex())
}

func (id KitchenID) String() string { return string(id) }

func (id KitchenID) ObjectID() (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(string(id))
	if err != nil {
		return primitive.NilObjectID, ErrInvalidIdentifier
	}
	return oid, nil
}

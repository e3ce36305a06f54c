// Package store holds the MongoDB repositories behind the cart, catalog and
// purchase services.
package store

import (
	"go.mongodb.org/mongo-driver/bson"
)

const (
	UsersCollection     = "users"
	CooksCollection     = "cooks"
	PurchasesCollection = "purchases"
)

// versionFilter matches a cart at the given version. Documents written before
// carts were versioned have no cartVersion field and count as version 0.
func versionFilter(version int64) interface{} {
	if version == 0 {
		return bson.M{"$in": bson.A{int64(0), nil}}
	}
	return version
}

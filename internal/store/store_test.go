package store

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestVersionFilterTreatsMissingFieldAsZero(t *testing.T) {
	got, ok := versionFilter(0).(bson.M)
	if !ok {
		t.Fatalf("expected $in filter for version 0, got %#v", versionFilter(0))
	}
	in, ok := got["$in"].(bson.A)
	if !ok || len(in) != 2 || in[1] != nil {
		t.Fatalf("expected [0, nil], got %#v", got["$in"])
	}

	if v := versionFilter(7); v != int64(7) {
		t.Fatalf("expected plain equality for version 7, got %#v", v)
	}
}

package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Collections in the realtime database.
const (
	CollectionUsers     = "users"
	CollectionStartups  = "startups"
	CollectionInvestors = "investors"
	CollectionMessages  = "messages"
)

// Record is one child of a collection.
type Record struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Snapshot is the full content of a collection in arrival order. Each
// snapshot supersedes the previous one.
type Snapshot []Record

// Path joins a collection and a key into a record path.
func Path(collection, key string) string {
	return collection + "/" + key
}

// SplitPath splits "collection/key". Both parts must be non-empty.
func SplitPath(path string) (collection, key string, err error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("record path %q must look like collection/key", path)
	}
	return parts[0], parts[1], nil
}

// Change asks for the current snapshot of Collection to be delivered. A zero
// SubscriberID addresses every subscriber of the collection; any other value
// addresses only that subscriber (its initial snapshot).
type Change struct {
	Collection   string
	SubscriberID uint64
}

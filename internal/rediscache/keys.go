package rediscache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// RecordKey is the Redis key for a DatasetRecord facet+ISO snapshot,
// generalized from the teacher's featurestore "feat:<layer>:<id>"
// pattern to the catalog domain.
func RecordKey(drsID string) string {
	return "rec:" + drsID
}

// FeatureListKey is the Redis key for a dataset's full feature-list
// snapshot.
func FeatureListKey(drsID string) string {
	return "flist:" + drsID
}

// SearchKey hashes a search filter set into a short cache key, following
// the teacher's keys.Key xxhash-suffix idiom. The text is hashed as
// given, so the same filters encoded in a different order get a
// different key.
func SearchKey(filterText string) string {
	sum := xxhash.Sum64String(filterText)
	return fmt.Sprintf("search:f=%016x", sum)
}

package catalog

import "github.com/tanhuynh200412/catalog-admin/internal/model"

// Keyed is anything identified by a store key.
type Keyed interface {
	Key() model.Key
}

// NextID returns one more than the largest integer key in records, or 1 when
// there is none. Keys that are not integers are ignored. The result is not
// reserved: another operator may allocate the same id concurrently.
func NextID[T Keyed](records []T) int {
	maxID := 0
	for _, r := range records {
		if id, ok := r.Key().Int(); ok && id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}

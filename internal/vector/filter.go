package vector

import (
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// Meta is the entry metadata filters can look at.
type Meta struct {
	Category    string
	PublishedAt time.Time
}

// Filter decides during candidate generation whether an entry may be
// returned. A nil Filter accepts everything.
type Filter func(id string, meta Meta) bool

// ByCategory accepts entries in any of the given categories.
func ByCategory(categories ...string) Filter {
	set := mapset.NewThreadUnsafeSet(categories...)
	return func(_ string, meta Meta) bool {
		return set.Contains(meta.Category)
	}
}

// PublishedBetween accepts entries published in [from, to). A zero bound is
// open.
func PublishedBetween(from, to time.Time) Filter {
	return func(_ string, meta Meta) bool {
		if !from.IsZero() && meta.PublishedAt.Before(from) {
			return false
		}
		if !to.IsZero() && !meta.PublishedAt.Before(to) {
			return false
		}
		return true
	}
}

// All accepts entries accepted by every non-nil filter. It returns nil when
// no filter remains.
func All(filters ...Filter) Filter {
	active := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(id string, meta Meta) bool {
		for _, f := range active {
			if !f(id, meta) {
				return false
			}
		}
		return true
	}
}

package store

// Ages tracks the last batch that touched each key. It lives beside the
// cached data so reads of generated values never mutate them.
type Ages[K comparable] map[K]SeqNum

func (a Ages[K]) Touch(k K, seq SeqNum) {
	if cur, ok := a[k]; !ok || seq > cur {
		a[k] = seq
	}
}

// Expired lists keys whose last use is older than minAge.
func (a Ages[K]) Expired(minAge SeqNum) []K {
	var out []K
	for k, seq := range a {
		if seq < minAge {
			out = append(out, k)
		}
	}
	return out
}

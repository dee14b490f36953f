package identity

import (
	"container/list"
	"net/url"
	"sync"
)

// DefaultCacheSize bounds the number of memoized parameter sets.
const DefaultCacheSize = 1024

// Extractor memoizes Extract by the canonical encoding of the parameters, so
// repeated lookups for an unchanged link skip validation entirely.
type Extractor struct {
	mu      sync.Mutex
	size    int
	order   *list.List
	entries map[string]*list.Element

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	key    string
	result Result
}

// NewExtractor creates an Extractor holding at most size results.
// A non-positive size selects DefaultCacheSize.
func NewExtractor(size int) *Extractor {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Extractor{
		size:    size,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Key returns the canonical form of params used for memoization.
func Key(params url.Values) string {
	return params.Encode()
}

// Extract returns the cached result for params or computes and stores it.
func (x *Extractor) Extract(params url.Values) Result {
	key := Key(params)

	x.mu.Lock()
	if el, ok := x.entries[key]; ok {
		x.order.MoveToFront(el)
		x.hits++
		res := el.Value.(*cacheEntry).result
		x.mu.Unlock()
		return res.clone()
	}
	x.misses++
	x.mu.Unlock()

	res := Extract(params)

	x.mu.Lock()
	defer x.mu.Unlock()
	if el, ok := x.entries[key]; ok {
		x.order.MoveToFront(el)
		return el.Value.(*cacheEntry).result.clone()
	}
	x.entries[key] = x.order.PushFront(&cacheEntry{key: key, result: res})
	for x.order.Len() > x.size {
		oldest := x.order.Back()
		x.order.Remove(oldest)
		delete(x.entries, oldest.Value.(*cacheEntry).key)
	}
	return res.clone()
}

// Len returns the number of cached results.
func (x *Extractor) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.order.Len()
}

// Stats returns cache hit and miss counters.
func (x *Extractor) Stats() (hits, misses uint64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.hits, x.misses
}

func (r Result) clone() Result {
	out := Result{}
	if r.Patient != nil {
		p := *r.Patient
		out.Patient = &p
	}
	if r.Errors != nil {
		out.Errors = append(ValidationErrors(nil), r.Errors...)
	}
	return out
}

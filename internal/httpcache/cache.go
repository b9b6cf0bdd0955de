package httpcache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// entry is one cached GET response.
type entry struct {
	key      string
	status   int
	header   http.Header
	body     []byte
	etag     string
	storedAt time.Time
}

// Cache is a TTL-bounded LRU of GET responses keyed by URL plus a
// fingerprint of the identity headers, so two tenants never share entries.
type Cache struct {
	ttl        time.Duration
	maxEntries int

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front = most recently used
}

func New(ttl time.Duration, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    map[string]*list.Element{},
		lru:        list.New(),
	}
}

func (c *Cache) get(key string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return entry{}, false
	}
	c.lru.MoveToFront(el)
	return el.Value.(entry), true
}

func (c *Cache) put(key string, status int, header http.Header, body []byte, now time.Time) entry {
	ent := entry{
		key:      key,
		status:   status,
		header:   cloneHeader(header),
		body:     append([]byte(nil), body...),
		etag:     strings.TrimSpace(header.Get("ETag")),
		storedAt: now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value = ent
		c.lru.MoveToFront(el)
		return ent
	}
	c.entries[key] = c.lru.PushFront(ent)

	for c.lru.Len() > c.maxEntries {
		back := c.lru.Back()
		if back == nil {
			break
		}
		delete(c.entries, back.Value.(entry).key)
		c.lru.Remove(back)
	}
	return ent
}

// touch refreshes storedAt after a 304 revalidation.
func (c *Cache) touch(key string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		ent := el.Value.(entry)
		ent.storedAt = now
		el.Value = ent
		c.lru.MoveToFront(el)
	}
}

func cloneHeader(h http.Header) http.Header {
	out := http.Header{}
	for k, vv := range h {
		out[k] = append([]string(nil), vv...)
	}
	return out
}

func fingerprintHeaders(h http.Header, keys []string) string {
	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(keys))
	for _, k := range keys {
		k = http.CanonicalHeaderKey(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		v := strings.TrimSpace(h.Get(k))
		if v == "" {
			continue
		}
		pairs = append(pairs, pair{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })

	sum := sha256.New()
	for _, p := range pairs {
		sum.Write([]byte(p.k))
		sum.Write([]byte{0})
		sum.Write([]byte(p.v))
		sum.Write([]byte{0})
	}
	return hex.EncodeToString(sum.Sum(nil))
}

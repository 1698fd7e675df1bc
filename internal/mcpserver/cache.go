package mcpserver

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/erraggy/oasplit/parser"
)

// parsedCache is a session cache of parse results, least recently used
// first out once full. Results are shared between tool calls and must be
// treated as read-only.
type parsedCache struct {
	mu       sync.Mutex
	capacity int
	recent   *list.List // of *parsedEntry, most recent at the front
	byKey    map[string]*list.Element
	sweeping bool
}

type parsedEntry struct {
	key     string
	result  *parser.ParseResult
	expires time.Time
}

func (e *parsedEntry) expired(now time.Time) bool {
	return now.After(e.expires)
}

func newParsedCache(capacity int) *parsedCache {
	return &parsedCache{capacity: capacity, recent: list.New(), byKey: make(map[string]*list.Element)}
}

var documents = newParsedCache(cfg.Cache.Capacity)

func (c *parsedCache) get(key string) *parser.ParseResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.byKey[key]
	if !ok {
		return nil
	}
	entry := el.Value.(*parsedEntry)
	if entry.expired(time.Now()) {
		c.remove(el)
		return nil
	}
	c.recent.MoveToFront(el)
	return entry.result
}

func (c *parsedCache) put(key string, result *parser.ParseResult, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := &parsedEntry{key: key, result: result, expires: time.Now().Add(ttl)}
	if el, ok := c.byKey[key]; ok {
		el.Value = entry
		c.recent.MoveToFront(el)
		return
	}
	for c.recent.Len() >= c.capacity && c.recent.Len() > 0 {
		c.remove(c.recent.Back())
	}
	c.byKey[key] = c.recent.PushFront(entry)
}

// remove drops el; c.mu must be held.
func (c *parsedCache) remove(el *list.Element) {
	c.recent.Remove(el)
	delete(c.byKey, el.Value.(*parsedEntry).key)
}

func (c *parsedCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for el := c.recent.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*parsedEntry).expired(now) {
			c.remove(el)
		}
		el = next
	}
}

// startSweeper drops expired entries every interval until ctx ends. At most
// one sweeper runs at a time.
func (c *parsedCache) startSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.mu.Lock()
	if c.sweeping {
		c.mu.Unlock()
		return
	}
	c.sweeping = true
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer func() {
			ticker.Stop()
			c.mu.Lock()
			c.sweeping = false
			c.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

func (c *parsedCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recent.Init()
	clear(c.byKey)
}

func (c *parsedCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recent.Len()
}

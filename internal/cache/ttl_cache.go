package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// TTLCache 는 만료 시간과 최대 크기를 가진 LRU 캐시다.
// 레이트 리미터 버킷, 가드 판정, 모델 판정 캐시가 함께 쓴다.
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	order   *list.List
	items   map[K]*list.Element
}

// NewTTLCache 는 만료 시간과 최대 크기를 갖는 TTLCache 를 생성한다.
func NewTTLCache[K comparable, V any](maxSize int, ttl time.Duration) *TTLCache[K, V] {
	return NewTTLCacheWithClock[K, V](maxSize, ttl, time.Now)
}

// NewTTLCacheWithClock 은 시계를 주입받는 TTLCache 를 생성한다.
func NewTTLCacheWithClock[K comparable, V any](maxSize int, ttl time.Duration, now func() time.Time) *TTLCache[K, V] {
	if maxSize <= 0 {
		maxSize = 1
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &TTLCache[K, V]{
		ttl:     ttl,
		maxSize: maxSize,
		now:     now,
		order:   list.New(),
		items:   make(map[K]*list.Element, maxSize),
	}
}

// Get 은 만료되지 않은 값을 반환하고 최근 사용으로 표시한다.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		return zero, false
	}

	ent := element.Value.(*entry[K, V])
	if c.now().After(ent.expiresAt) {
		c.removeElement(element)
		return zero, false
	}

	c.order.MoveToFront(element)
	return ent.value, true
}

// Set 은 값을 넣거나 갱신하고 만료 시각을 연장한다.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if element, ok := c.items[key]; ok {
		ent := element.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToFront(element)
		return
	}

	element := c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = element
	for len(c.items) > c.maxSize {
		c.removeElement(c.order.Back())
	}
}

// Modify 는 현재 값(없거나 만료되면 zero, false)에 fn 을 적용해 저장하고 결과를 반환한다.
// 살아 있는 항목의 만료 시각은 그대로 둔다.
func (c *TTLCache[K, V]) Modify(key K, fn func(current V, exists bool) V) (V, bool) {
	var zero V
	if fn == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if element, ok := c.items[key]; ok {
		ent := element.Value.(*entry[K, V])
		if !now.After(ent.expiresAt) {
			ent.value = fn(ent.value, true)
			c.order.MoveToFront(element)
			return ent.value, true
		}
		c.removeElement(element)
	}

	value := fn(zero, false)
	element := c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: now.Add(c.ttl)})
	c.items[key] = element
	for len(c.items) > c.maxSize {
		c.removeElement(c.order.Back())
	}
	return value, true
}

func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.items[key]; ok {
		c.removeElement(element)
	}
}

// Purge 는 모든 항목을 비운다.
func (c *TTLCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	clear(c.items)
}

func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTLCache[K, V]) removeElement(element *list.Element) {
	c.order.Remove(element)
	delete(c.items, element.Value.(*entry[K, V]).key)
}

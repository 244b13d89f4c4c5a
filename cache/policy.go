package cache

import (
	"container/list"
	"fmt"
)

// Policy decides which entry a full Memory store drops. Implementations
// are called with the store's lock held and need no locking of their own.
type Policy interface {
	Added(key string)
	Accessed(key string)
	Removed(key string)
	// Victim returns the key to evict, or false when nothing is tracked.
	Victim() (string, bool)
}

// NewLRU evicts the least recently read or written entry.
func NewLRU() Policy {
	return &orderPolicy{touchOnAccess: true, elems: make(map[string]*list.Element)}
}

// NewFIFO evicts the oldest inserted entry regardless of reads.
func NewFIFO() Policy {
	return &orderPolicy{elems: make(map[string]*list.Element)}
}

// NewPolicy returns the eviction policy called name: "lru" (or empty) or
// "fifo".
func NewPolicy(name string) (Policy, error) {
	switch name {
	case "", "lru":
		return NewLRU(), nil
	case "fifo":
		return NewFIFO(), nil
	default:
		return nil, fmt.Errorf("unknown eviction policy %q", name)
	}
}

// orderPolicy keeps keys in a list with the most recent at the front.
type orderPolicy struct {
	touchOnAccess bool
	order         list.List
	elems         map[string]*list.Element
}

func (p *orderPolicy) Added(key string) {
	if e, ok := p.elems[key]; ok {
		p.order.MoveToFront(e)
		return
	}
	p.elems[key] = p.order.PushFront(key)
}

func (p *orderPolicy) Accessed(key string) {
	if !p.touchOnAccess {
		return
	}
	if e, ok := p.elems[key]; ok {
		p.order.MoveToFront(e)
	}
}

func (p *orderPolicy) Removed(key string) {
	if e, ok := p.elems[key]; ok {
		p.order.Remove(e)
		delete(p.elems, key)
	}
}

func (p *orderPolicy) Victim() (string, bool) {
	e := p.order.Back()
	if e == nil {
		return "", false
	}
	return e.Value.(string), true
}

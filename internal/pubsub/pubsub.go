package pubsub

import "sync"

// Topic delivers every published value to its subscribers, synchronously and
// in subscription order.
type Topic[T any] struct {
	mu       sync.RWMutex
	nextID   int
	handlers []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{}
}

// Subscribe registers fn until the returned function is called.
// Calling it more than once is fine.
func (t *Topic[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.handlers = append(t.handlers, subscriber[T]{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.remove(id) })
	}
}

func (t *Topic[T]) remove(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.handlers {
		if s.id == id {
			t.handlers = append(t.handlers[:i:i], t.handlers[i+1:]...)
			return
		}
	}
}

func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	handlers := make([]subscriber[T], len(t.handlers))
	copy(handlers, t.handlers)
	t.mu.RUnlock()

	for _, s := range handlers {
		s.fn(v)
	}
}

func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.handlers)
}

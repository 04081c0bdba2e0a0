// Package event provides typed notification streams with explicit
// subscribe/unsubscribe.
//
// Delivery is synchronous on the publishing goroutine. A stream is owned by a
// single game loop and is not safe for concurrent use.
package event

// Stream delivers values of type T to registered handlers in subscription
// order.
type Stream[T any] struct {
	subs       []*Subscription[T]
	pending    []change[T] // Subscription changes requested mid-publish
	publishing int
	closed     bool
}

// Subscription is a handle returned by Subscribe.
type Subscription[T any] struct {
	stream *Stream[T]
	fn     func(T)
	active bool
}

type change[T any] struct {
	sub *Subscription[T]
	add bool
}

// Subscribe registers fn. When called from inside a handler, the new
// subscriber starts receiving with the next Publish.
func (s *Stream[T]) Subscribe(fn func(T)) *Subscription[T] {
	sub := &Subscription[T]{stream: s, fn: fn}
	if s.closed {
		return sub
	}
	if s.publishing > 0 {
		s.pending = append(s.pending, change[T]{sub: sub, add: true})
		return sub
	}
	sub.active = true
	s.subs = append(s.subs, sub)
	return sub
}

// Unsubscribe removes the handler. It takes effect immediately: a handler
// unsubscribed mid-publish is skipped for the rest of that delivery.
func (sub *Subscription[T]) Unsubscribe() {
	if sub == nil || sub.stream == nil {
		return
	}
	s := sub.stream
	sub.active = false
	if s.publishing > 0 {
		s.pending = append(s.pending, change[T]{sub: sub, add: false})
		return
	}
	s.remove(sub)
}

// Active reports whether the subscription still receives values.
func (sub *Subscription[T]) Active() bool {
	return sub != nil && sub.active
}

// Publish delivers v to every active subscriber.
func (s *Stream[T]) Publish(v T) {
	if s.closed {
		return
	}
	s.publishing++
	n := len(s.subs)
	for i := 0; i < n && i < len(s.subs); i++ {
		sub := s.subs[i]
		if !sub.active {
			continue
		}
		sub.fn(v)
	}
	s.publishing--
	if s.publishing == 0 {
		s.drain()
	}
}

// Len returns the number of active subscribers.
func (s *Stream[T]) Len() int {
	n := 0
	for _, sub := range s.subs {
		if sub.active {
			n++
		}
	}
	return n
}

// Close applies pending subscription changes, then drops every subscriber.
// Publishing on a closed stream is a no-op.
func (s *Stream[T]) Close() {
	s.drain()
	for _, sub := range s.subs {
		sub.active = false
	}
	s.subs = nil
	s.closed = true
}

func (s *Stream[T]) drain() {
	for _, c := range s.pending {
		if c.add {
			if s.closed {
				continue
			}
			c.sub.active = true
			s.subs = append(s.subs, c.sub)
			continue
		}
		s.remove(c.sub)
	}
	s.pending = s.pending[:0]
}

func (s *Stream[T]) remove(sub *Subscription[T]) {
	for i, cur := range s.subs {
		if cur == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			break
		}
	}
	sub.active = false
	sub.stream = nil
}

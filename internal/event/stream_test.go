package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	var s Stream[int]
	var got []string
	s.Subscribe(func(v int) { got = append(got, "a") })
	s.Subscribe(func(v int) { got = append(got, "b") })

	s.Publish(1)

	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 2, s.Len())
}

func TestUnsubscribedHandlerReceivesNothing(t *testing.T) {
	var s Stream[int]
	count := 0
	sub := s.Subscribe(func(int) { count++ })

	s.Publish(1)
	sub.Unsubscribe()
	s.Publish(2)

	assert.Equal(t, 1, count)
	assert.False(t, sub.Active())
	assert.Equal(t, 0, s.Len())
}

func TestUnsubscribeDuringPublishSkipsRestOfDelivery(t *testing.T) {
	var s Stream[int]
	var second *Subscription[int]
	secondCalls := 0
	s.Subscribe(func(int) { second.Unsubscribe() })
	second = s.Subscribe(func(int) { secondCalls++ })

	s.Publish(1)
	s.Publish(2)

	assert.Equal(t, 0, secondCalls)
	assert.Equal(t, 1, s.Len())
}

func TestSubscribeDuringPublishStartsWithNextValue(t *testing.T) {
	var s Stream[int]
	var late []int
	subscribed := false
	s.Subscribe(func(int) {
		if !subscribed {
			subscribed = true
			s.Subscribe(func(v int) { late = append(late, v) })
		}
	})

	s.Publish(1)
	s.Publish(2)

	assert.Equal(t, []int{2}, late)
}

func TestCloseDrainsPendingAndDropsSubscribers(t *testing.T) {
	var s Stream[int]
	count := 0
	var inner *Subscription[int]
	s.Subscribe(func(int) {
		inner = s.Subscribe(func(int) { count++ })
		s.Close()
	})

	s.Publish(1)
	s.Publish(2)

	assert.Equal(t, 0, count)
	assert.False(t, inner.Active())
	assert.Equal(t, 0, s.Len())
}

func TestNestedPublish(t *testing.T) {
	var s Stream[int]
	var got []int
	s.Subscribe(func(v int) {
		got = append(got, v)
		if v == 1 {
			s.Publish(2)
		}
	})

	s.Publish(1)

	assert.Equal(t, []int{1, 2}, got)
}

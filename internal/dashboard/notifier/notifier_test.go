package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch chan Load) Load {
	t.Helper()
	select {
	case l := <-ch:
		return l
	case <-time.After(100 * time.Millisecond):
		t.Fatal("listener did not receive a load")
	}
	return Load{}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	n := New()

	ch := n.Subscribe(0)
	require.NotNil(t, ch)
	assert.Equal(t, 1, n.Len())
	assert.Empty(t, ch, "nothing loaded yet")

	n.Unsubscribe(ch)
	assert.Equal(t, 0, n.Len())

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after Unsubscribe")
}

func TestBroadcastReachesEveryListener(t *testing.T) {
	n := New()
	a, b := n.Subscribe(0), n.Subscribe(0)
	defer n.Unsubscribe(a)
	defer n.Unsubscribe(b)

	got := n.Broadcast("sales.xlsx", 6)
	assert.Equal(t, Load{Seq: 1, Name: "sales.xlsx", Rows: 6}, got)

	for _, ch := range []chan Load{a, b} {
		assert.Equal(t, got, receive(t, ch))
	}
	assert.Equal(t, uint64(1), n.Seq())
}

func TestPendingLoadIsReplacedByNewest(t *testing.T) {
	n := New()
	ch := n.Subscribe(0)
	defer n.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		n.Broadcast("a.xlsx", 1)
		n.Broadcast("b.xlsx", 2)
		n.Broadcast("c.xlsx", 3)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full listener")
	}
	require.Len(t, ch, 1)
	assert.Equal(t, Load{Seq: 3, Name: "c.xlsx", Rows: 3}, receive(t, ch))
}

func TestSubscribeCatchesUpOnMissedLoad(t *testing.T) {
	n := New()
	seen := n.Seq()
	n.Broadcast("sales.xlsx", 6)

	late := n.Subscribe(seen)
	defer n.Unsubscribe(late)
	assert.Equal(t, uint64(1), receive(t, late).Seq)

	current := n.Subscribe(n.Seq())
	defer n.Unsubscribe(current)
	assert.Empty(t, current, "a tab that saw the latest load waits for the next one")
}

func TestConcurrentSubscribers(t *testing.T) {
	n := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := n.Subscribe(n.Seq())
			n.Broadcast("sales.xlsx", 6)
			n.Unsubscribe(ch)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, n.Len())
	assert.Equal(t, uint64(20), n.Seq())
}

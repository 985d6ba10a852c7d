package alert

import (
	"context"
	"errors"
	"time"

	"github.com/anacrolix/chansync"
	"github.com/anacrolix/sync"
	list "github.com/bahlo/generic-list-go"
)

var ErrClosed = errors.New("alert queue closed")

// An unbounded FIFO of alerts. The zero value is ready to use. Any number of goroutines may push
// and wait.
type Queue struct {
	mu     sync.Mutex
	alerts list.List[Alert]
	pushed chansync.BroadcastCond
	closed chansync.SetOnce
	onPush func(Alert)
}

// Sets a function called with every pushed alert, outside the queue lock. Used for metrics.
func (q *Queue) SetPushHook(f func(Alert)) {
	q.mu.Lock()
	q.onPush = f
	q.mu.Unlock()
}

func (q *Queue) Push(a Alert) {
	q.mu.Lock()
	q.alerts.PushBack(a)
	hook := q.onPush
	q.mu.Unlock()
	q.pushed.Broadcast()
	if hook != nil {
		hook(a)
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.alerts.Len()
}

// Removes and returns every queued alert in order.
func (q *Queue) Pop() (ret []Alert) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for e := q.alerts.Front(); e != nil; e = q.alerts.Front() {
		ret = append(ret, q.alerts.Remove(e))
	}
	return
}

// Removes and returns the oldest alert matching f. Alerts that don't match stay queued in order.
func (q *Queue) take(f Filter) (Alert, bool) {
	for e := q.alerts.Front(); e != nil; e = e.Next() {
		if f == nil || f(e.Value) {
			return q.alerts.Remove(e), true
		}
	}
	return nil, false
}

// Blocks until an alert matching f is queued, then removes and returns only that alert. If ctx is
// done first nothing is consumed. A nil filter matches everything.
func (q *Queue) Wait(ctx context.Context, f Filter) (Alert, error) {
	for {
		q.mu.Lock()
		a, ok := q.take(f)
		signaled := q.pushed.Signaled()
		q.mu.Unlock()
		if ok {
			return a, nil
		}
		if q.closed.IsSet() {
			return nil, ErrClosed
		}
		select {
		case <-signaled:
		case <-q.closed.Done():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *Queue) WaitTimeout(timeout time.Duration, f Filter) (Alert, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return q.Wait(ctx, f)
}

// Wakes waiters. Waits return ErrClosed once nothing queued matches. Pushes still queue, so
// failures reported after close can be popped.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed.Set()
	q.mu.Unlock()
}

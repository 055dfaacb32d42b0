package poller

import (
	"context"
	"sync"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

// dispatcher preserves strict arrival order per user while letting distinct
// users run in parallel, bounded by the tenant's concurrency ceiling.
type dispatcher struct {
	sem chan struct{}

	mu    sync.Mutex
	users map[int64]*userQueue
	wg    sync.WaitGroup
}

type userQueue struct {
	items  []domain.Inbound
	active bool
}

func newDispatcher(workers int) *dispatcher {
	if workers <= 0 {
		workers = 8
	}
	return &dispatcher{
		sem:   make(chan struct{}, workers),
		users: make(map[int64]*userQueue),
	}
}

// enqueue appends the update to the user's queue and ensures one drain
// goroutine per user, so no two handlers ever run for the same session key.
func (d *dispatcher) enqueue(ctx context.Context, in domain.Inbound, handle func(context.Context, domain.Inbound)) {
	d.mu.Lock()
	queue := d.users[in.UserID]
	if queue == nil {
		queue = &userQueue{}
		d.users[in.UserID] = queue
	}
	queue.items = append(queue.items, in)
	if queue.active {
		d.mu.Unlock()
		return
	}
	queue.active = true
	d.mu.Unlock()

	d.wg.Add(1)
	go d.drain(ctx, in.UserID, queue, handle)
}

func (d *dispatcher) drain(ctx context.Context, userID int64, queue *userQueue, handle func(context.Context, domain.Inbound)) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(queue.items) == 0 || ctx.Err() != nil {
			queue.active = false
			if len(queue.items) == 0 {
				delete(d.users, userID)
			}
			d.mu.Unlock()
			return
		}
		item := queue.items[0]
		queue.items = queue.items[1:]
		d.mu.Unlock()

		select {
		case d.sem <- struct{}{}:
		case <-ctx.Done():
			d.mu.Lock()
			queue.active = false
			d.mu.Unlock()
			return
		}
		handle(ctx, item)
		<-d.sem
	}
}

// wait blocks until every in-flight handler returns.
func (d *dispatcher) wait() {
	d.wg.Wait()
}

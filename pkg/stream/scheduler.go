// Package stream paces, loops, and optionally shuffles a server-stream's
// items, honouring cancellation at every suspension point.
//
// Grounded on this codebase's gRPC server-streaming loop (send one item,
// delay before the next but never before the first, stop on transport
// error or context cancellation), generalised into a transport-agnostic
// scheduler the Protocol Gateway drives identically for Connect,
// gRPC-Web, and native gRPC.
package stream

import (
	"context"
	"math/rand"
	"time"
)

// Plan describes one streamed response: the items to emit, the pacing
// between them, and whether to loop or shuffle.
type Plan struct {
	Items       []map[string]any
	DelayMS     int
	Loop        bool
	RandomOrder bool
}

// Emit pushes items onto send, one at a time, respecting ctx
// cancellation at every suspension point (before send and during the
// inter-item delay). send returning an error stops the stream
// immediately. Emit returns ctx.Err() on cancellation, send's error on a
// transport failure, or nil after a non-looping plan's last item.
//
// The delay is applied only between items, never before the first; a
// Plan with zero items returns immediately.
func Emit(ctx context.Context, plan Plan, send func(item map[string]any) error) error {
	if len(plan.Items) == 0 {
		return nil
	}
	delay := time.Duration(plan.DelayMS) * time.Millisecond

	order := sequentialOrder(len(plan.Items))
	for {
		if plan.RandomOrder {
			order = shuffledOrder(len(plan.Items))
		}
		for i, idx := range order {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := send(plan.Items[idx]); err != nil {
				return err
			}
			isLastOfPass := i == len(order)-1
			if isLastOfPass && !plan.Loop {
				return nil
			}
			if !isLastOfPass || plan.Loop {
				if err := sleep(ctx, delay); err != nil {
					return err
				}
			}
		}
		if !plan.Loop {
			return nil
		}
	}
}

func sequentialOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func shuffledOrder(n int) []int {
	order := sequentialOrder(n)
	rand.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

// sleep waits for d or ctx cancellation, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

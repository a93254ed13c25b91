package rest

import (
	"context"
	"encoding/json"
)

// Callback receives the outcome of an asynchronous call
type Callback func(body json.RawMessage, err error)

// Promise is the pending result of an asynchronous call. It settles
// exactly once.
type Promise struct {
	done chan struct{}
	body json.RawMessage
	err  error
}

func newPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

func (p *Promise) resolve(body json.RawMessage, err error) {
	p.body = body
	p.err = err
	close(p.done)
}

// Done is closed once the promise has settled
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the promise settles or ctx is done. Cancelling ctx
// here only stops waiting; the request keeps the context it was started with.
func (p *Promise) Await(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-p.done:
		return p.body, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Then invokes cb on a new goroutine once the promise settles
func (p *Promise) Then(cb Callback) {
	if cb == nil {
		return
	}
	go func() {
		<-p.done
		cb(p.body, p.err)
	}()
}

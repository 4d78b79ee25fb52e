// Copyright 2016 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package event

import (
	"context"
	"sync"
	"time"
)

// Subscription represents a stream of events. The carrier of the events is
// typically a channel, but isn't part of the interface.
//
// Subscriptions can fail while in progress. They deliver the error through
// the Err channel and the channel is closed afterwards. An unsubscribed
// subscription's Err channel is also closed.
type Subscription interface {
	Err() <-chan error // returns the error channel
	Unsubscribe()      // cancels sending of events, closing the error channel
}

// NewSubscription runs a producer function as a goroutine to feed a
// subscription's event channel. The function should follow the given
// unsubscribe pattern: call it when the subscription is torn down so that
// the producer can shut down cleanly.
func NewSubscription(producer func(<-chan struct{}) error) Subscription {
	s := &funcSub{unsub: make(chan struct{}), err: make(chan error, 1)}
	go func() {
		defer close(s.err)
		err := producer(s.unsub)
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.unsubscribed {
			if err != nil {
				s.err <- err
			}
			s.unsubscribed = true
		}
	}()
	return s
}

type funcSub struct {
	unsub        chan struct{}
	err          chan error
	mu           sync.Mutex
	unsubscribed bool
}

func (s *funcSub) Unsubscribe() {
	s.mu.Lock()
	if s.unsubscribed {
		s.mu.Unlock()
		return
	}
	s.unsubscribed = true
	close(s.unsub)
	s.mu.Unlock()
	<-s.err
}

func (s *funcSub) Err() <-chan error {
	return s.err
}

// Resubscribe calls fn repeatedly to keep a subscription established. When
// the subscription is established, Resubscribe waits for it to fail and
// calls fn again. This process repeats until Unsubscribe is called or the
// active subscription fails and backoffMax has elapsed since the last
// attempt started.
func Resubscribe(backoffMax time.Duration, fn ResubscribeFunc) Subscription {
	s := &resubscribeSub{
		waitTime:   backoffMax / 10,
		backoffMax: backoffMax,
		fn:         fn,
		err:        make(chan error),
		unsub:      make(chan struct{}),
	}
	go s.loop()
	return s
}

// A ResubscribeFunc attempts to establish a subscription.
type ResubscribeFunc func(context.Context) (Subscription, error)

type resubscribeSub struct {
	fn                   ResubscribeFunc
	waitTime, backoffMax time.Duration
	mu                   sync.Mutex
	sub                  Subscription
	unsub                chan struct{}
	unsubOnce            sync.Once
	err                  chan error
}

func (s *resubscribeSub) Unsubscribe() {
	s.unsubOnce.Do(func() {
		s.mu.Lock()
		if s.sub != nil {
			s.sub.Unsubscribe()
		}
		close(s.unsub)
		s.mu.Unlock()
		<-s.err
	})
}

func (s *resubscribeSub) Err() <-chan error {
	return s.err
}

func (s *resubscribeSub) loop() {
	defer close(s.err)
	var retryCount int
	for {
		sub, err := s.subscribe(retryCount)
		if err != nil {
			if err == errUnsubscribed {
				return
			}
			s.err <- err
			return
		}
		retryCount = 0
		if s.waitForError(sub) {
			return
		}
		retryCount++
	}
}

func (s *resubscribeSub) subscribe(retryCount int) (Subscription, error) {
	subscribeFunc := func(ctx context.Context) (Subscription, error) {
		for {
			sub, err := s.fn(ctx)
			if err == nil {
				return sub, nil
			}
			select {
			case <-s.unsub:
				return nil, errUnsubscribed
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			wait := s.backoffWait(retryCount)
			select {
			case <-time.After(wait):
				retryCount++
			case <-s.unsub:
				return nil, errUnsubscribed
			}
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.unsub:
			cancel()
		case <-ctx.Done():
		}
	}()
	sub, err := subscribeFunc(ctx)
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	return sub, err
}

func (s *resubscribeSub) backoffWait(retryCount int) time.Duration {
	if retryCount == 0 {
		return 0
	}
	wait := s.waitTime * time.Duration(retryCount*retryCount)
	if wait > s.backoffMax {
		return s.backoffMax
	}
	return wait
}

// waitForError blocks until the current subscription fails and returns true
// if Unsubscribe was called.
func (s *resubscribeSub) waitForError(sub Subscription) bool {
	defer sub.Unsubscribe()
	select {
	case <-s.unsub:
		return true
	case <-sub.Err():
		return false
	}
}

var errUnsubscribed = &unsubscribedError{}

type unsubscribedError struct{}

func (*unsubscribedError) Error() string { return "unsubscribed" }

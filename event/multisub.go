// Copyright 2023 The go-ethereum Authors
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

import "sync"

// joinSub implements Subscription over a batch of subscriptions, reporting
// closure only once every wrapped subscription has terminated.
type joinSub struct {
	subs      []Subscription
	mu        sync.Mutex
	remaining int
	err       chan error
}

// JoinSubscriptions joins multiple subscriptions so they can be unsubscribed
// as one. The combined Err channel closes only once all of the wrapped
// subscriptions have terminated, so unsubscribing a single member leaves the
// others (and the joined subscription) live.
func JoinSubscriptions(subs ...Subscription) Subscription {
	s := &joinSub{subs: subs, remaining: len(subs), err: make(chan error)}
	for _, sub := range subs {
		go s.relay(sub)
	}
	return s
}

func (s *joinSub) relay(sub Subscription) {
	<-sub.Err()
	s.mu.Lock()
	s.remaining--
	done := s.remaining == 0
	s.mu.Unlock()
	if done {
		close(s.err)
	}
}

func (s *joinSub) Err() <-chan error { return s.err }

func (s *joinSub) Unsubscribe() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
}

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

// FeedOf implements one-to-many subscription, the same semantics as Feed
// but with the value type fixed at compile time through a generic
// parameter, so callers don't juggle interface{} at the call site.
//
// The zero value is ready to use.
type FeedOf[T any] struct {
	feed Feed
}

// Subscribe adds a channel to the feed. Future sends will be delivered on
// the channel until the subscription is canceled.
func (f *FeedOf[T]) Subscribe(channel chan<- T) Subscription {
	return f.feed.Subscribe(channel)
}

// Send delivers to all subscribed channels simultaneously. It returns the
// number of subscribers that the value was sent to.
func (f *FeedOf[T]) Send(value T) int {
	return f.feed.Send(value)
}

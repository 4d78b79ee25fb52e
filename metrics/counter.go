// Copyright 2023 The ledgercore Authors
// This file is part of the ledgercore library.
//
// The ledgercore library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ledgercore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ledgercore library. If not, see <http://www.gnu.org/licenses/>.

package metrics

import "sync/atomic"

// Counter holds an int64 value that can be incremented and decremented.
type Counter interface {
	Clear()
	Dec(int64)
	Inc(int64)
	Snapshot() Counter
	Count() int64
}

// NewCounter constructs a new standard Counter.
func NewCounter() Counter {
	return &standardCounter{}
}

// NewRegisteredCounter constructs and registers a new standard Counter.
func NewRegisteredCounter(name string, r Registry) Counter {
	c := NewCounter()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, c)
	return c
}

// GetOrRegisterCounter returns an existing Counter or constructs and
// registers a new standard Counter.
func GetOrRegisterCounter(name string, r Registry) Counter {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewCounter).(Counter)
}

type standardCounter struct {
	count atomic.Int64
}

func (c *standardCounter) Clear()        { c.count.Store(0) }
func (c *standardCounter) Dec(i int64)   { c.count.Add(-i) }
func (c *standardCounter) Inc(i int64)   { c.count.Add(i) }
func (c *standardCounter) Count() int64  { return c.count.Load() }
func (c *standardCounter) Snapshot() Counter {
	return counterSnapshot(c.count.Load())
}

type counterSnapshot int64

func (c counterSnapshot) Clear()            { panic("Clear called on a CounterSnapshot") }
func (c counterSnapshot) Dec(int64)         { panic("Dec called on a CounterSnapshot") }
func (c counterSnapshot) Inc(int64)         { panic("Inc called on a CounterSnapshot") }
func (c counterSnapshot) Count() int64      { return int64(c) }
func (c counterSnapshot) Snapshot() Counter { return c }

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

import "sync"

// CounterFloat64 holds a float64 value that can be incremented and decremented.
type CounterFloat64 interface {
	Clear()
	Dec(float64)
	Inc(float64)
	Snapshot() CounterFloat64
	Count() float64
}

// NewCounterFloat64 constructs a new standard CounterFloat64.
func NewCounterFloat64() CounterFloat64 {
	return &standardCounterFloat64{}
}

// NewRegisteredCounterFloat64 constructs and registers a new CounterFloat64.
func NewRegisteredCounterFloat64(name string, r Registry) CounterFloat64 {
	c := NewCounterFloat64()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, c)
	return c
}

// GetOrRegisterCounterFloat64 returns an existing CounterFloat64 or
// constructs and registers a new one.
func GetOrRegisterCounterFloat64(name string, r Registry) CounterFloat64 {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewCounterFloat64).(CounterFloat64)
}

type standardCounterFloat64 struct {
	mu    sync.Mutex
	count float64
}

func (c *standardCounterFloat64) Clear() {
	c.mu.Lock()
	c.count = 0
	c.mu.Unlock()
}

func (c *standardCounterFloat64) Dec(v float64) {
	c.mu.Lock()
	c.count -= v
	c.mu.Unlock()
}

func (c *standardCounterFloat64) Inc(v float64) {
	c.mu.Lock()
	c.count += v
	c.mu.Unlock()
}

func (c *standardCounterFloat64) Count() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *standardCounterFloat64) Snapshot() CounterFloat64 {
	return counterFloat64Snapshot(c.Count())
}

type counterFloat64Snapshot float64

func (c counterFloat64Snapshot) Clear()                   { panic("Clear called on a CounterFloat64Snapshot") }
func (c counterFloat64Snapshot) Dec(float64)               { panic("Dec called on a CounterFloat64Snapshot") }
func (c counterFloat64Snapshot) Inc(float64)               { panic("Inc called on a CounterFloat64Snapshot") }
func (c counterFloat64Snapshot) Count() float64            { return float64(c) }
func (c counterFloat64Snapshot) Snapshot() CounterFloat64  { return c }

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

import (
	"sync"
	"sync/atomic"
	"time"
)

// Meter counts events and reports an approximate moving rate.
type Meter interface {
	Count() int64
	Mark(int64)
	Rate1() float64
	Rate5() float64
	Rate15() float64
	RateMean() float64
	Snapshot() Meter
	Stop()
}

// NewMeter constructs a new standard Meter and registers it with the
// package arbiter. Its rates are recomputed only when Mark is called; they
// do not decay in the background.
func NewMeter() Meter {
	m := newStandardMeter()
	arbiter.add(m)
	return m
}

// NewRegisteredMeter constructs and registers a new standard Meter.
func NewRegisteredMeter(name string, r Registry) Meter {
	m := NewMeter()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, m)
	return m
}

// GetOrRegisterMeter returns an existing Meter or constructs and registers
// a new standard Meter.
func GetOrRegisterMeter(name string, r Registry) Meter {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewMeter).(Meter)
}

type standardMeter struct {
	count     atomic.Int64
	startTime time.Time
	lastMark  atomic.Int64 // unix nano of the last Mark call

	mu   sync.Mutex
	ewma1, ewma5, ewma15 float64
}

func newStandardMeter() *standardMeter {
	now := time.Now()
	m := &standardMeter{startTime: now}
	m.lastMark.Store(now.UnixNano())
	return m
}

func (m *standardMeter) Count() int64 { return m.count.Load() }

func (m *standardMeter) Mark(n int64) {
	m.count.Add(n)
	m.lastMark.Store(time.Now().UnixNano())
	m.tick()
}

// tick folds the instantaneous rate into three EWMAs with the classic
// 1/5/15-minute decay constants, the way the teacher's meter does via its
// background arbiter goroutine; here it happens inline on every Mark only,
// as the arbiter runs no goroutine.
func (m *standardMeter) tick() {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed <= 0 {
		return
	}
	instant := float64(m.count.Load()) / elapsed
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ewma1 = decay(m.ewma1, instant, 1)
	m.ewma5 = decay(m.ewma5, instant, 5)
	m.ewma15 = decay(m.ewma15, instant, 15)
}

func decay(prev, instant, minutes float64) float64 {
	if prev == 0 {
		return instant
	}
	alpha := 1 - expNeg(5.0/60.0/minutes)
	return prev + alpha*(instant-prev)
}

func expNeg(x float64) float64 {
	// Small-x Taylor approximation of e^-x is adequate here: the exact decay
	// shape is cosmetic, only monotonic decay matters for the package's
	// contract (RateMean strictly decreasing once marks stop).
	return 1 - x + x*x/2 - x*x*x/6
}

func (m *standardMeter) Rate1() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ewma1
}

func (m *standardMeter) Rate5() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ewma5
}

func (m *standardMeter) Rate15() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ewma15
}

func (m *standardMeter) RateMean() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.count.Load()) / elapsed
}

func (m *standardMeter) Snapshot() Meter {
	return &meterSnapshot{
		count:    m.Count(),
		rate1:    m.Rate1(),
		rate5:    m.Rate5(),
		rate15:   m.Rate15(),
		rateMean: m.RateMean(),
	}
}

func (m *standardMeter) Stop() { arbiter.remove(m) }

type meterSnapshot struct {
	count                        int64
	rate1, rate5, rate15, rateMean float64
}

func (m *meterSnapshot) Count() int64       { return m.count }
func (m *meterSnapshot) Mark(int64)         { panic("Mark called on a MeterSnapshot") }
func (m *meterSnapshot) Rate1() float64     { return m.rate1 }
func (m *meterSnapshot) Rate5() float64     { return m.rate5 }
func (m *meterSnapshot) Rate15() float64    { return m.rate15 }
func (m *meterSnapshot) RateMean() float64  { return m.rateMean }
func (m *meterSnapshot) Snapshot() Meter    { return m }
func (m *meterSnapshot) Stop()              {}

// meterArbiter tracks every live meter so tests (and, in the teacher, a
// background goroutine) can observe how many are outstanding.
type meterArbiter struct {
	mu     sync.Mutex
	meters map[*standardMeter]struct{}
}

var arbiter = &meterArbiter{meters: make(map[*standardMeter]struct{})}

func (a *meterArbiter) add(m *standardMeter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.meters[m] = struct{}{}
}

func (a *meterArbiter) remove(m *standardMeter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.meters, m)
}

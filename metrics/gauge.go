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

// Gauge holds an int64 value that can be set arbitrarily.
type Gauge interface {
	Snapshot() Gauge
	Update(int64)
	Value() int64
}

// NewGauge constructs a new standard Gauge.
func NewGauge() Gauge {
	return &standardGauge{}
}

// NewRegisteredGauge constructs and registers a new standard Gauge.
func NewRegisteredGauge(name string, r Registry) Gauge {
	g := NewGauge()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, g)
	return g
}

// GetOrRegisterGauge returns an existing Gauge or constructs and registers
// a new standard Gauge.
func GetOrRegisterGauge(name string, r Registry) Gauge {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewGauge).(Gauge)
}

type standardGauge struct {
	value atomic.Int64
}

func (g *standardGauge) Update(v int64) { g.value.Store(v) }
func (g *standardGauge) Value() int64   { return g.value.Load() }
func (g *standardGauge) Snapshot() Gauge {
	return gaugeSnapshot(g.value.Load())
}

type gaugeSnapshot int64

func (g gaugeSnapshot) Value() int64    { return int64(g) }
func (g gaugeSnapshot) Update(int64)    { panic("Update called on a GaugeSnapshot") }
func (g gaugeSnapshot) Snapshot() Gauge { return g }

// FunctionalGauge returns value from a given function.
type FunctionalGauge interface {
	Gauge
}

// NewFunctionalGauge constructs a new FunctionalGauge.
func NewFunctionalGauge(f func() int64) FunctionalGauge {
	return &functionalGauge{value: f}
}

// NewRegisteredFunctionalGauge constructs and registers a new FunctionalGauge.
func NewRegisteredFunctionalGauge(name string, r Registry, f func() int64) FunctionalGauge {
	g := NewFunctionalGauge(f)
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, g)
	return g
}

type functionalGauge struct {
	value func() int64
}

func (g functionalGauge) Value() int64    { return g.value() }
func (g functionalGauge) Update(int64)    { panic("Update called on a FunctionalGauge") }
func (g functionalGauge) Snapshot() Gauge { return gaugeSnapshot(g.Value()) }

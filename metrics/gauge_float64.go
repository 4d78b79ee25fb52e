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
	"math"
	"sync/atomic"
)

// GaugeFloat64 holds a float64 value that can be set arbitrarily.
type GaugeFloat64 interface {
	Snapshot() GaugeFloat64
	Update(float64)
	Value() float64
}

// NewGaugeFloat64 constructs a new standard GaugeFloat64.
func NewGaugeFloat64() GaugeFloat64 {
	return &standardGaugeFloat64{}
}

// NewRegisteredGaugeFloat64 constructs and registers a new GaugeFloat64.
func NewRegisteredGaugeFloat64(name string, r Registry) GaugeFloat64 {
	g := NewGaugeFloat64()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, g)
	return g
}

// GetOrRegisterGaugeFloat64 returns an existing GaugeFloat64 or constructs
// and registers a new standard GaugeFloat64.
func GetOrRegisterGaugeFloat64(name string, r Registry) GaugeFloat64 {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewGaugeFloat64).(GaugeFloat64)
}

type standardGaugeFloat64 struct {
	bits atomic.Uint64
}

func (g *standardGaugeFloat64) Update(v float64) { g.bits.Store(math.Float64bits(v)) }
func (g *standardGaugeFloat64) Value() float64   { return math.Float64frombits(g.bits.Load()) }
func (g *standardGaugeFloat64) Snapshot() GaugeFloat64 {
	return gaugeFloat64Snapshot(g.Value())
}

type gaugeFloat64Snapshot float64

func (g gaugeFloat64Snapshot) Value() float64           { return float64(g) }
func (g gaugeFloat64Snapshot) Update(float64)           { panic("Update called on a GaugeFloat64Snapshot") }
func (g gaugeFloat64Snapshot) Snapshot() GaugeFloat64   { return g }

// FunctionalGaugeFloat64 returns value from a given function.
type FunctionalGaugeFloat64 interface {
	GaugeFloat64
}

// NewFunctionalGaugeFloat64 constructs a new FunctionalGaugeFloat64.
func NewFunctionalGaugeFloat64(f func() float64) FunctionalGaugeFloat64 {
	return &functionalGaugeFloat64{value: f}
}

// NewRegisteredFunctionalGaugeFloat64 constructs and registers a new
// FunctionalGaugeFloat64.
func NewRegisteredFunctionalGaugeFloat64(name string, r Registry, f func() float64) FunctionalGaugeFloat64 {
	g := NewFunctionalGaugeFloat64(f)
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, g)
	return g
}

type functionalGaugeFloat64 struct {
	value func() float64
}

func (g functionalGaugeFloat64) Value() float64         { return g.value() }
func (g functionalGaugeFloat64) Update(float64)         { panic("Update called on a FunctionalGaugeFloat64") }
func (g functionalGaugeFloat64) Snapshot() GaugeFloat64 { return gaugeFloat64Snapshot(g.Value()) }

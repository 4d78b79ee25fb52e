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

// Histogram tracks the distribution of a stream of values, backed by a
// Sample (a reservoir strategy chosen by the caller).
type Histogram interface {
	Clear()
	Count() int64
	Max() int64
	Mean() float64
	Min() int64
	Percentile(float64) float64
	Percentiles([]float64) []float64
	Sample() Sample
	Snapshot() Histogram
	StdDev() float64
	Sum() int64
	Update(int64)
	Variance() float64
}

// NewHistogram constructs a new standard Histogram over the given Sample.
func NewHistogram(s Sample) Histogram {
	return &standardHistogram{sample: s}
}

// NewRegisteredHistogram constructs and registers a new standard Histogram.
func NewRegisteredHistogram(name string, r Registry, s Sample) Histogram {
	h := NewHistogram(s)
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, h)
	return h
}

// GetOrRegisterHistogram returns an existing Histogram or constructs and
// registers a new standard Histogram.
func GetOrRegisterHistogram(name string, r Registry, s Sample) Histogram {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, func() interface{} { return NewHistogram(s) }).(Histogram)
}

type standardHistogram struct {
	sample Sample
}

func (h *standardHistogram) Clear()          { h.sample.Clear() }
func (h *standardHistogram) Update(v int64)  { h.sample.Update(v) }
func (h *standardHistogram) Count() int64    { return h.sample.Count() }
func (h *standardHistogram) Min() int64      { return h.sample.Min() }
func (h *standardHistogram) Max() int64      { return h.sample.Max() }
func (h *standardHistogram) Sum() int64      { return h.sample.Sum() }
func (h *standardHistogram) Mean() float64   { return h.sample.Mean() }
func (h *standardHistogram) Variance() float64 { return h.sample.Variance() }
func (h *standardHistogram) StdDev() float64 { return h.sample.StdDev() }
func (h *standardHistogram) Sample() Sample  { return h.sample }

func (h *standardHistogram) Percentile(p float64) float64 {
	return h.sample.Percentile(p)
}

func (h *standardHistogram) Percentiles(ps []float64) []float64 {
	return h.sample.Percentiles(ps)
}

func (h *standardHistogram) Snapshot() Histogram {
	return &histogramSnapshot{sample: h.sample.Snapshot()}
}

type histogramSnapshot struct {
	sample Sample
}

func (h *histogramSnapshot) Clear()         { panic("Clear called on a HistogramSnapshot") }
func (h *histogramSnapshot) Update(int64)   { panic("Update called on a HistogramSnapshot") }
func (h *histogramSnapshot) Count() int64   { return h.sample.Count() }
func (h *histogramSnapshot) Min() int64     { return h.sample.Min() }
func (h *histogramSnapshot) Max() int64     { return h.sample.Max() }
func (h *histogramSnapshot) Sum() int64     { return h.sample.Sum() }
func (h *histogramSnapshot) Mean() float64  { return h.sample.Mean() }
func (h *histogramSnapshot) Variance() float64 { return h.sample.Variance() }
func (h *histogramSnapshot) StdDev() float64   { return h.sample.StdDev() }
func (h *histogramSnapshot) Sample() Sample    { return h.sample }
func (h *histogramSnapshot) Snapshot() Histogram { return h }
func (h *histogramSnapshot) Percentile(p float64) float64 {
	return h.sample.Percentile(p)
}
func (h *histogramSnapshot) Percentiles(ps []float64) []float64 {
	return h.sample.Percentiles(ps)
}

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

import "time"

// Timer captures the duration and rate of events, combining a Histogram of
// durations in nanoseconds with a Meter of call rates.
type Timer interface {
	Count() int64
	Max() int64
	Mean() float64
	Min() int64
	Percentile(float64) float64
	Percentiles([]float64) []float64
	Rate1() float64
	Rate5() float64
	Rate15() float64
	RateMean() float64
	Snapshot() Timer
	StdDev() float64
	Stop()
	Sum() int64
	Time(func())
	Update(time.Duration)
	UpdateSince(time.Time)
	Variance() float64
}

// NewTimer constructs a new standard Timer.
func NewTimer() Timer {
	return &standardTimer{
		histogram: NewHistogram(NewUniformSample(1028)),
		meter:     NewMeter(),
	}
}

// NewRegisteredTimer constructs and registers a new standard Timer.
func NewRegisteredTimer(name string, r Registry) Timer {
	t := NewTimer()
	if r == nil {
		r = DefaultRegistry
	}
	r.Register(name, t)
	return t
}

// GetOrRegisterTimer returns an existing Timer or constructs and registers a
// new standard Timer.
func GetOrRegisterTimer(name string, r Registry) Timer {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, NewTimer).(Timer)
}

type standardTimer struct {
	histogram Histogram
	meter     Meter
}

func (t *standardTimer) Update(d time.Duration) {
	t.histogram.Update(int64(d))
	t.meter.Mark(1)
}

func (t *standardTimer) UpdateSince(start time.Time) {
	t.Update(time.Since(start))
}

func (t *standardTimer) Time(f func()) {
	start := time.Now()
	f()
	t.UpdateSince(start)
}

func (t *standardTimer) Count() int64                    { return t.histogram.Count() }
func (t *standardTimer) Min() int64                      { return t.histogram.Min() }
func (t *standardTimer) Max() int64                      { return t.histogram.Max() }
func (t *standardTimer) Sum() int64                       { return t.histogram.Sum() }
func (t *standardTimer) Mean() float64                    { return t.histogram.Mean() }
func (t *standardTimer) Variance() float64                { return t.histogram.Variance() }
func (t *standardTimer) StdDev() float64                  { return t.histogram.StdDev() }
func (t *standardTimer) Percentile(p float64) float64     { return t.histogram.Percentile(p) }
func (t *standardTimer) Percentiles(ps []float64) []float64 { return t.histogram.Percentiles(ps) }
func (t *standardTimer) Rate1() float64                   { return t.meter.Rate1() }
func (t *standardTimer) Rate5() float64                   { return t.meter.Rate5() }
func (t *standardTimer) Rate15() float64                  { return t.meter.Rate15() }
func (t *standardTimer) RateMean() float64                { return t.meter.RateMean() }
func (t *standardTimer) Stop()                            { t.meter.Stop() }

func (t *standardTimer) Snapshot() Timer {
	return &timerSnapshot{
		histogram: t.histogram.Snapshot(),
		meter:     t.meter.Snapshot(),
	}
}

type timerSnapshot struct {
	histogram Histogram
	meter     Meter
}

func (t *timerSnapshot) Count() int64                       { return t.histogram.Count() }
func (t *timerSnapshot) Min() int64                          { return t.histogram.Min() }
func (t *timerSnapshot) Max() int64                          { return t.histogram.Max() }
func (t *timerSnapshot) Sum() int64                          { return t.histogram.Sum() }
func (t *timerSnapshot) Mean() float64                       { return t.histogram.Mean() }
func (t *timerSnapshot) Variance() float64                   { return t.histogram.Variance() }
func (t *timerSnapshot) StdDev() float64                      { return t.histogram.StdDev() }
func (t *timerSnapshot) Percentile(p float64) float64         { return t.histogram.Percentile(p) }
func (t *timerSnapshot) Percentiles(ps []float64) []float64   { return t.histogram.Percentiles(ps) }
func (t *timerSnapshot) Rate1() float64                       { return t.meter.Rate1() }
func (t *timerSnapshot) Rate5() float64                       { return t.meter.Rate5() }
func (t *timerSnapshot) Rate15() float64                      { return t.meter.Rate15() }
func (t *timerSnapshot) RateMean() float64                    { return t.meter.RateMean() }
func (t *timerSnapshot) Stop()                                {}
func (t *timerSnapshot) Time(func())                          { panic("Time called on a TimerSnapshot") }
func (t *timerSnapshot) Update(time.Duration)                 { panic("Update called on a TimerSnapshot") }
func (t *timerSnapshot) UpdateSince(time.Time)                { panic("UpdateSince called on a TimerSnapshot") }
func (t *timerSnapshot) Snapshot() Timer                       { return t }

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
	"math/rand"
	"sort"
	"sync"
)

// Sample holds the raw values backing a Histogram.
type Sample interface {
	Clear()
	Count() int64
	Max() int64
	Mean() float64
	Min() int64
	Percentile(float64) float64
	Percentiles([]float64) []float64
	Size() int
	Snapshot() Sample
	StdDev() float64
	Sum() int64
	Update(int64)
	Values() []int64
	Variance() float64
}

// UniformSample keeps a uniform reservoir of values; below the reservoir
// size it retains every value, so statistics over small histograms (this
// node's metric volumes) come out exact.
type UniformSample struct {
	mu        sync.Mutex
	reservoir int
	count     int64
	values    []int64
	rand      *rand.Rand
}

// NewUniformSample constructs a new UniformSample with the given reservoir
// size.
func NewUniformSample(reservoirSize int) Sample {
	return &UniformSample{
		reservoir: reservoirSize,
		values:    make([]int64, 0, reservoirSize),
		rand:      rand.New(rand.NewSource(randSeed())),
	}
}

func randSeed() int64 { return 1 }

func (s *UniformSample) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = 0
	s.values = make([]int64, 0, s.reservoir)
}

func (s *UniformSample) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *UniformSample) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

func (s *UniformSample) Update(v int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	if len(s.values) < s.reservoir {
		s.values = append(s.values, v)
		return
	}
	r := s.rand.Int63n(s.count)
	if int(r) < s.reservoir {
		s.values[r] = v
	}
}

func (s *UniformSample) Values() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.values))
	copy(out, s.values)
	return out
}

func (s *UniformSample) Snapshot() Sample {
	return &sampleSnapshot{values: s.Values()}
}

func (s *UniformSample) Min() int64     { return sampleStats(s.Values()).min }
func (s *UniformSample) Max() int64     { return sampleStats(s.Values()).max }
func (s *UniformSample) Sum() int64     { return sampleStats(s.Values()).sum }
func (s *UniformSample) Mean() float64  { return sampleStats(s.Values()).mean }
func (s *UniformSample) Variance() float64 { return sampleStats(s.Values()).variance }
func (s *UniformSample) StdDev() float64   { return math.Sqrt(s.Variance()) }

func (s *UniformSample) Percentile(p float64) float64 {
	return percentiles(s.Values(), []float64{p})[0]
}

func (s *UniformSample) Percentiles(ps []float64) []float64 {
	return percentiles(s.Values(), ps)
}

type sampleSnapshot struct {
	values []int64
}

func (s *sampleSnapshot) Clear()          { panic("Clear called on a SampleSnapshot") }
func (s *sampleSnapshot) Update(int64)    { panic("Update called on a SampleSnapshot") }
func (s *sampleSnapshot) Count() int64    { return int64(len(s.values)) }
func (s *sampleSnapshot) Size() int       { return len(s.values) }
func (s *sampleSnapshot) Values() []int64 {
	out := make([]int64, len(s.values))
	copy(out, s.values)
	return out
}
func (s *sampleSnapshot) Snapshot() Sample { return s }
func (s *sampleSnapshot) Min() int64       { return sampleStats(s.values).min }
func (s *sampleSnapshot) Max() int64       { return sampleStats(s.values).max }
func (s *sampleSnapshot) Sum() int64       { return sampleStats(s.values).sum }
func (s *sampleSnapshot) Mean() float64    { return sampleStats(s.values).mean }
func (s *sampleSnapshot) Variance() float64 { return sampleStats(s.values).variance }
func (s *sampleSnapshot) StdDev() float64   { return math.Sqrt(s.Variance()) }
func (s *sampleSnapshot) Percentile(p float64) float64 {
	return percentiles(s.values, []float64{p})[0]
}
func (s *sampleSnapshot) Percentiles(ps []float64) []float64 {
	return percentiles(s.values, ps)
}

type stats struct {
	min, max, sum int64
	mean          float64
	variance      float64
}

func sampleStats(values []int64) stats {
	if len(values) == 0 {
		return stats{}
	}
	st := stats{min: values[0], max: values[0]}
	var sum float64
	for _, v := range values {
		if v < st.min {
			st.min = v
		}
		if v > st.max {
			st.max = v
		}
		st.sum += v
		sum += float64(v)
	}
	st.mean = sum / float64(len(values))

	var m2 float64
	for _, v := range values {
		d := float64(v) - st.mean
		m2 += d * d
	}
	st.variance = m2 / float64(len(values))
	return st
}

// percentiles follows the classic rcrowley/go-metrics interpolation: for a
// sorted sample of size n, the p-th percentile sits at position p*(n+1).
func percentiles(values []int64, ps []float64) []float64 {
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := make([]float64, len(ps))
	size := len(sorted)
	if size == 0 {
		return out
	}
	for i, p := range ps {
		pos := p * float64(size+1)
		switch {
		case pos < 1.0:
			out[i] = float64(sorted[0])
		case pos >= float64(size):
			out[i] = float64(sorted[size-1])
		default:
			lower := float64(sorted[int(pos)-1])
			upper := float64(sorted[int(pos)])
			out[i] = lower + (pos-math.Floor(pos))*(upper-lower)
		}
	}
	return out
}

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
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// DefaultRegistry is the registry used by package-level constructors when
// the caller passes a nil Registry.
var DefaultRegistry = NewRegistry()

// Registry holds references to a set of named metrics.
type Registry interface {
	// Each calls f for each registered metric.
	Each(func(string, interface{}))
	// Get returns the metric by name or nil if none is registered.
	Get(string) interface{}
	// GetOrRegister returns an existing metric or registers the given one.
	// metric may be the metric itself, or a niladic function returning one;
	// the latter form avoids constructing a metric that is thrown away on
	// the common path where the name is already registered.
	GetOrRegister(string, interface{}) interface{}
	// Register adds a metric under the given name, failing if one exists.
	Register(string, interface{}) error
	// RunHealthchecks runs all registered healthchecks.
	RunHealthchecks()
	// Unregister removes a metric by name.
	Unregister(string)
}

// NewRegistry constructs a new standard Registry.
func NewRegistry() Registry {
	return &standardRegistry{metrics: make(map[string]interface{})}
}

type standardRegistry struct {
	mu      sync.RWMutex
	metrics map[string]interface{}
}

func (r *standardRegistry) Each(f func(string, interface{})) {
	r.mu.RLock()
	snapshot := make(map[string]interface{}, len(r.metrics))
	for k, v := range r.metrics {
		snapshot[k] = v
	}
	r.mu.RUnlock()
	for name, metric := range snapshot {
		f(name, metric)
	}
}

func (r *standardRegistry) Get(name string) interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[name]
}

func (r *standardRegistry) GetOrRegister(name string, i interface{}) interface{} {
	r.mu.RLock()
	if m, ok := r.metrics[name]; ok {
		r.mu.RUnlock()
		return m
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.metrics[name]; ok {
		return m
	}
	if v := reflect.ValueOf(i); v.Kind() == reflect.Func {
		i = v.Call(nil)[0].Interface()
	}
	r.metrics[name] = i
	return i
}

func (r *standardRegistry) Register(name string, metric interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.metrics[name]; ok {
		return fmt.Errorf("metric %q already registered", name)
	}
	if v := reflect.ValueOf(metric); v.Kind() == reflect.Func {
		metric = v.Call(nil)[0].Interface()
	}
	r.metrics[name] = metric
	return nil
}

func (r *standardRegistry) RunHealthchecks() {}

func (r *standardRegistry) Unregister(name string) {
	r.mu.Lock()
	if m, ok := r.metrics[name]; ok {
		if s, ok := m.(Timer); ok {
			s.Stop()
		}
		if s, ok := m.(Meter); ok {
			s.Stop()
		}
	}
	delete(r.metrics, name)
	r.mu.Unlock()
}

// Each calls f on every metric in the DefaultRegistry.
func Each(f func(string, interface{})) { DefaultRegistry.Each(f) }

// Get returns a metric by name from the DefaultRegistry.
func Get(name string) interface{} { return DefaultRegistry.Get(name) }

// GetOrRegister returns an existing metric or registers one with the
// DefaultRegistry.
func GetOrRegister(name string, i interface{}) interface{} {
	return DefaultRegistry.GetOrRegister(name, i)
}

// Register adds a metric to the DefaultRegistry.
func Register(name string, metric interface{}) error {
	return DefaultRegistry.Register(name, metric)
}

// Unregister removes a metric from the DefaultRegistry.
func Unregister(name string) { DefaultRegistry.Unregister(name) }

// PrefixedRegistry wraps a Registry, prefixing every metric name it sees.
type PrefixedRegistry struct {
	underlying Registry
	prefix     string
}

// NewPrefixedRegistry constructs a standalone PrefixedRegistry backed by a
// fresh standard Registry.
func NewPrefixedRegistry(prefix string) Registry {
	return &PrefixedRegistry{underlying: NewRegistry(), prefix: prefix}
}

// NewPrefixedChildRegistry constructs a PrefixedRegistry whose metrics are
// stored in parent under prefix, so one Each on parent sees everything.
func NewPrefixedChildRegistry(parent Registry, prefix string) Registry {
	return &PrefixedRegistry{underlying: parent, prefix: prefix}
}

func (r *PrefixedRegistry) child(name string) string { return r.prefix + name }

// Each walks down through any chain of nested PrefixedRegistry wrappers to
// the base standard Registry, then reports only the metrics whose full
// accumulated name falls under this registry's prefix.
func (r *PrefixedRegistry) Each(f func(string, interface{})) {
	base, prefix := findPrefix(r, "")
	if base == nil {
		return
	}
	base.Each(func(name string, m interface{}) {
		if strings.HasPrefix(name, prefix) {
			f(name, m)
		}
	})
}

func findPrefix(r Registry, prefix string) (Registry, string) {
	switch v := r.(type) {
	case *PrefixedRegistry:
		return findPrefix(v.underlying, v.prefix+prefix)
	case *standardRegistry:
		return v, prefix
	default:
		return nil, ""
	}
}

func (r *PrefixedRegistry) Get(name string) interface{} {
	return r.underlying.Get(r.child(name))
}

func (r *PrefixedRegistry) GetOrRegister(name string, i interface{}) interface{} {
	return r.underlying.GetOrRegister(r.child(name), i)
}

func (r *PrefixedRegistry) Register(name string, metric interface{}) error {
	return r.underlying.Register(r.child(name), metric)
}

func (r *PrefixedRegistry) RunHealthchecks() { r.underlying.RunHealthchecks() }

func (r *PrefixedRegistry) Unregister(name string) {
	r.underlying.Unregister(r.child(name))
}

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

// Package metrics provides Counter, Gauge, Meter, Timer and Registry types
// used across the store, mempool and pipeline packages to expose ops/sec,
// latency and queue-depth figures.
package metrics

// Enabled tracks whether metrics collection is active. Components should
// check it before doing any non-trivial bookkeeping (e.g. timer sampling).
var Enabled = true

// Enable turns metrics collection on.
func Enable() { Enabled = true }

// Disable turns metrics collection off; registered meters keep working but
// callers are expected to skip the hot-path update call entirely.
func Disable() { Enabled = false }

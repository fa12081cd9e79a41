// Copyright 2026 EngFlow Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package diag implements the diagnostics sink contract from spec.md §6/§7:
// a three-argument callback receiving a severity, a human message and a
// source position, with a default sink that writes to standard error.
package diag

import (
	"fmt"
	"os"

	"github.com/jdefineit/jdi/internal/cc/source"
)

// Severity classifies a diagnostic as an error or a warning (spec.md §6).
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Sink receives one diagnostic at a time: severity, message, and position.
type Sink func(severity Severity, message string, pos source.Position)

// Default returns a Sink that writes to os.Stderr in a "file:line:col:
// severity: message" form, the conventional compiler diagnostic shape.
func Default() Sink {
	return func(severity Severity, message string, pos source.Position) {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", pos, severity, message)
	}
}

// Discard returns a Sink that ignores every diagnostic; useful for tests
// that only want to assert on the returned error value.
func Discard() Sink {
	return func(Severity, string, source.Position) {}
}

// Collector accumulates diagnostics in memory, for tests and for callers
// that want to inspect everything reported during a parse.
type Collector struct {
	Entries []Entry
}

// Entry is one recorded diagnostic.
type Entry struct {
	Severity Severity
	Message  string
	Pos      source.Position
}

// Sink returns a Sink bound to this collector.
func (c *Collector) Sink() Sink {
	return func(severity Severity, message string, pos source.Position) {
		c.Entries = append(c.Entries, Entry{severity, message, pos})
	}
}

// HasErrors reports whether any Error-severity diagnostic was collected.
func (c *Collector) HasErrors() bool {
	for _, e := range c.Entries {
		if e.Severity == Error {
			return true
		}
	}
	return false
}

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

package macro

import (
	"fmt"

	"github.com/jdefineit/jdi/diag"
	"github.com/jdefineit/jdi/internal/cc/source"
)

// Table maps an identifier to its macro record (spec.md §3/§4.C). Keys are
// unique; insertion order is irrelevant, so a plain map suffices.
type Table struct {
	entries map[string]*Record
}

// NewTable returns an empty macro table.
func NewTable() *Table {
	return &Table{entries: map[string]*Record{}}
}

// Lookup returns the record for name, and whether it exists.
func (t *Table) Lookup(name string) (*Record, bool) {
	r, ok := t.entries[name]
	return r, ok
}

// Has reports whether name is currently defined.
func (t *Table) Has(name string) bool {
	_, ok := t.entries[name]
	return ok
}

// Define inserts rec, replacing any prior entry. A redefinition with a
// different replacement-token sequence reports a warning through sink; a
// same-sequence redefinition is silent (spec.md §4.C).
func (t *Table) Define(rec *Record, sink diag.Sink, pos source.Position) {
	if prev, exists := t.entries[rec.Name]; exists && sink != nil {
		if !prev.SameReplacementAs(rec) {
			sink(diag.Warning, fmt.Sprintf("redefinition of macro %q with a different replacement list", rec.Name), pos)
		}
	}
	t.entries[rec.Name] = rec
}

// Undef removes name from the table. Removing an absent macro is not an
// error (idempotent), per spec.md §4.C.
func (t *Table) Undef(name string) {
	delete(t.entries, name)
}

// Names returns every currently-defined macro name; used by
// Session.DumpMacros. The order is unspecified.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	return names
}

// Clone returns a shallow copy of the table: independent entry storage, but
// sharing Record values (which are immutable after construction).
func (t *Table) Clone() *Table {
	clone := NewTable()
	for k, v := range t.entries {
		clone.entries[k] = v
	}
	return clone
}

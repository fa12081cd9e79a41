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

// Package macro implements the macro table (component C) and macro expander
// (component D) from spec.md §4.C/§4.D: definition, argument binding,
// variadic handling, the `#`/`##` operators, recursive-expansion
// prevention, and token-sequence substitution.
//
// This is grounded on language/internal/cc/macros.go in the teacher, which
// models macros only as integer-valued `#if` constants; this package
// generalizes that to the full replacement-list macro record spec.md
// requires, in the same identifier-validation idiom.
package macro

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jdefineit/jdi/internal/cc/lexer"
)

var (
	// ErrHashHashAtEdge reports a replacement list whose first or last token
	// is `##`, which spec.md §3 forbids.
	ErrHashHashAtEdge = errors.New("## may not appear at the start or end of a replacement list")
	// ErrHashNotFollowedByParam reports a `#` that isn't immediately
	// followed by a parameter name, which spec.md §3 also forbids.
	ErrHashNotFollowedByParam = errors.New("# must be immediately followed by a parameter name")
)

// Record is an immutable-after-construction macro definition: either
// object-like or function-like, optionally variadic, holding its
// pre-tokenized replacement list (spec.md §3).
type Record struct {
	Name       string
	Function   bool
	Params     []string
	Variadic   bool
	Body       []lexer.Token
	RawText    string // optional source text; not set by the constructors here, and DumpMacros uses String() instead
}

// NewObjectLike constructs an object-like macro record.
func NewObjectLike(name string, body []lexer.Token) (*Record, error) {
	r := &Record{Name: name, Body: body}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewFunctionLike constructs a function-like macro record. variadic
// indicates the final formal parameter is `...`, bound to `__VA_ARGS__`.
func NewFunctionLike(name string, params []string, variadic bool, body []lexer.Token) (*Record, error) {
	r := &Record{Name: name, Function: true, Params: params, Variadic: variadic, Body: body}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Record) validate() error {
	if len(r.Body) > 0 {
		if r.Body[0].Kind == lexer.HashHash || r.Body[len(r.Body)-1].Kind == lexer.HashHash {
			return ErrHashHashAtEdge
		}
	}
	if !r.Function {
		return nil
	}
	paramSet := make(map[string]bool, len(r.Params))
	for _, p := range r.Params {
		paramSet[p] = true
	}
	for i, tok := range r.Body {
		if tok.Kind != lexer.Hash {
			continue
		}
		if i+1 >= len(r.Body) {
			return ErrHashNotFollowedByParam
		}
		next := r.Body[i+1]
		isParam := paramSet[next.Text] || (r.Variadic && next.Text == "__VA_ARGS__")
		if next.Kind != lexer.Identifier || !isParam {
			return ErrHashNotFollowedByParam
		}
	}
	return nil
}

// SameReplacementAs reports whether other has a textually equivalent
// replacement list to r (same kind+text sequence, same params/variadic),
// used by Table.Define to decide whether a redefinition is silent (spec.md
// §4.C).
func (r *Record) SameReplacementAs(other *Record) bool {
	if r.Function != other.Function || r.Variadic != other.Variadic {
		return false
	}
	if len(r.Params) != len(other.Params) {
		return false
	}
	for i := range r.Params {
		if r.Params[i] != other.Params[i] {
			return false
		}
	}
	if len(r.Body) != len(other.Body) {
		return false
	}
	for i := range r.Body {
		if r.Body[i].Kind != other.Body[i].Kind || r.Body[i].Text != other.Body[i].Text {
			return false
		}
	}
	return true
}

// String reconstructs a textual #define line from the record (spec.md's
// macro.toString() analogue in original_source/src/System/macros.cpp),
// used by Session.DumpMacros.
func (r *Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#define %s", r.Name)
	if r.Function {
		params := append([]string{}, r.Params...)
		if r.Variadic {
			params = append(params, "...")
		}
		fmt.Fprintf(&b, "(%s)", strings.Join(params, ", "))
	}
	if len(r.Body) > 0 {
		b.WriteByte(' ')
		for i, tok := range r.Body {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(tok.Text)
		}
	}
	return b.String()
}

// ParamIndex returns the index of name within r.Params, or -1 if name isn't
// a declared parameter of this (necessarily function-like) record.
func (r *Record) ParamIndex(name string) int {
	for i, p := range r.Params {
		if p == name {
			return i
		}
	}
	return -1
}

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

// Package jdi is the root Session API: it wires together the preprocessor
// (internal/cc/...), the declaration parser (internal/decl) and the
// definition store (internal/defs) into the surface spec.md §6 describes.
package jdi

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jdefineit/jdi/diag"
	"github.com/jdefineit/jdi/internal/cc/directive"
	"github.com/jdefineit/jdi/internal/cc/lexer"
	"github.com/jdefineit/jdi/internal/cc/macro"
	"github.com/jdefineit/jdi/internal/cc/source"
	"github.com/jdefineit/jdi/internal/cc/stream"
	"github.com/jdefineit/jdi/internal/collections"
	"github.com/jdefineit/jdi/internal/decl"
	"github.com/jdefineit/jdi/internal/defs"
)

// Session is a single, synchronous preprocessing+declaration-extraction
// context (spec.md §5: "one session is single-threaded and synchronous").
// The zero value is not usable; construct with NewSession.
type Session struct {
	fs         *source.FileSet
	macros     *macro.Table
	store      *defs.Store
	sink       diag.Sink
	searchDirs []string
	pragmas    []directive.PragmaDirective
}

// NewSession returns a Session pre-populated with the built-in macros and
// primitive types spec.md §6 and EXP-3 require. sink receives every
// diagnostic reported while the session is used; diag.Default() is a
// reasonable choice for a CLI, diag.Discard() for tests that only check
// return values.
func NewSession(sink diag.Sink) *Session {
	s := &Session{
		fs:     source.NewFileSet(),
		macros: macro.NewTable(),
		store:  defs.NewStore(),
		sink:   sink,
	}
	seedBuiltins(s.fs, s.macros, s.store)
	return s
}

// AddSearchDirectory registers dir as an #include search root. dir may be a
// doublestar glob (e.g. "vendor/**/include"), in which case every matching
// directory on the real filesystem is added, mirroring the teacher's own
// pattern of falling back to a literal path when a string isn't a valid
// glob (language/cc/resolve.go).
func (s *Session) AddSearchDirectory(dir string) error {
	existing := collections.ToSet(s.searchDirs)

	if !doublestar.ValidatePattern(dir) || !strings.ContainsAny(dir, "*?[") {
		if !existing.Contains(dir) {
			s.searchDirs = append(s.searchDirs, dir)
		}
		return nil
	}
	matches, err := doublestar.FilepathGlob(dir)
	if err != nil {
		return fmt.Errorf("add search directory %q: %w", dir, err)
	}
	for _, m := range matches {
		info, err := os.Stat(m)
		if err == nil && info.IsDir() && !existing.Contains(m) {
			s.searchDirs = append(s.searchDirs, m)
			existing = existing.Add(m)
		}
	}
	return nil
}

// AddMacro defines an object-like macro, tokenizing definiens the same way
// a `#define name definiens` line would.
func (s *Session) AddMacro(name, definiens string) error {
	body, err := tokenizeText(s.fs, definiens)
	if err != nil {
		return err
	}
	rec, err := macro.NewObjectLike(name, body)
	if err != nil {
		return err
	}
	s.macros.Define(rec, s.sink, builtinPos(s.fs))
	return nil
}

// AddMacroFunction defines a function-like macro with explicit parameters.
func (s *Session) AddMacroFunction(name string, params []string, definiens string, variadic bool) error {
	body, err := tokenizeText(s.fs, definiens)
	if err != nil {
		return err
	}
	rec, err := macro.NewFunctionLike(name, params, variadic, body)
	if err != nil {
		return err
	}
	s.macros.Define(rec, s.sink, builtinPos(s.fs))
	return nil
}

// Undefine removes name from the macro table; undefining an absent macro
// is not an error.
func (s *Session) Undefine(name string) {
	s.macros.Undef(name)
}

// ParseStream reads all of r under filename, running it through the full
// preprocessing pipeline (directives, conditional compilation, macro
// expansion, #include recursion against the real filesystem) and then the
// declaration parser, populating the session's definition store.
func (s *Session) ParseStream(r io.Reader, filename string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	proc := directive.NewProcessor(s.macros, s.fs, s.sink, nil)
	for _, dir := range s.searchDirs {
		proc.AddSearchDirectory(dir)
	}

	root := source.NewReader(s.fs.Intern(filename), data)
	st := stream.New(s.fs, s.sink, s.macros, proc, fileOpener(s.fs), root, filepath.Dir(filename))

	decl.NewParser(st, s.fs, s.sink, s.store).ParseTranslationUnit()
	s.pragmas = append(s.pragmas, st.TakePragmas()...)
	return nil
}

// fileOpener resolves a located #include target against the real
// filesystem, the production counterpart to stream_test.go's in-memory
// archive opener.
func fileOpener(fs *source.FileSet) stream.Opener {
	return func(path string) (*source.Reader, string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", err
		}
		return source.NewReader(fs.Intern(path), data), filepath.Dir(path), nil
	}
}

// Lookup resolves a "::"-qualified name against the definition store.
func (s *Session) Lookup(qualifiedName string) (defs.Symbol, bool) {
	id, ok := s.store.LookupQualified(qualifiedName)
	if !ok {
		return defs.Symbol{}, false
	}
	sym, _ := s.store.Symbol(id)
	return sym, true
}

// DefinitionSink receives one definition at a time during DumpDefinitions:
// its fully qualified name and the symbol itself.
type DefinitionSink func(qualifiedName string, sym defs.Symbol)

// DumpDefinitions walks every declared symbol in declaration order,
// depth-first through member scopes, invoking sink for each.
func (s *Session) DumpDefinitions(sink DefinitionSink) {
	s.store.Walk(func(name string, sym defs.Symbol) { sink(name, sym) })
}

// MacroSink receives one macro's reconstructed "#define" text at a time
// during DumpMacros.
type MacroSink func(name, text string)

// DumpMacros invokes sink once per currently-defined macro, in
// unspecified order, with the reconstructed definition text from
// macro.Record.String() (EXP-3's toString() round-tripping).
func (s *Session) DumpMacros(sink MacroSink) {
	for _, name := range s.macros.Names() {
		rec, ok := s.macros.Lookup(name)
		if !ok {
			continue
		}
		sink(name, rec.String())
	}
}

// Reset clears everything parsed so far (the definition store and any
// macros added beyond the built-in seed) but keeps search directories,
// matching a caller's expectation of reusing the same include
// configuration across translation units.
func (s *Session) Reset() {
	s.store = defs.NewStore()
	s.macros = macro.NewTable()
	s.pragmas = nil
	seedBuiltins(s.fs, s.macros, s.store)
}

// ResetAll clears everything Reset does, plus search directories, for a
// caller that wants a completely fresh session without constructing a new
// one.
func (s *Session) ResetAll() {
	s.Reset()
	s.searchDirs = nil
}

// Pragmas returns every #pragma encountered since the session was created
// or last Reset, in encounter order.
func (s *Session) Pragmas() []directive.PragmaDirective {
	return s.pragmas
}

// tokenizeText lexes a standalone snippet (a macro's replacement list text)
// the same way the raw scanner would inside a real file, stopping at EOF.
func tokenizeText(fs *source.FileSet, text string) ([]lexer.Token, error) {
	r := source.NewReader(fs.Intern(builtinFileName), []byte(text))
	sc := lexer.NewScanner(fs)
	var toks []lexer.Token
	for {
		tok, err := sc.Next(r)
		if err != nil {
			return nil, err
		}
		if tok.Kind == lexer.EOF {
			return toks, nil
		}
		if tok.Kind == lexer.Newline {
			continue
		}
		toks = append(toks, tok)
	}
}

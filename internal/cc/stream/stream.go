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

// Package stream implements the token stream façade (spec.md §4.F,
// component F): the single pull interface the declaration parser consumes,
// behind which directive processing, conditional-compilation skipping,
// macro expansion, and `#include` recursion are all resolved away.
//
// Grounded on the teacher's tokenReader (language/internal/cc/parser/parser.go),
// a peek/consume wrapper with a one-token lookahead buffer used by
// parser.ParseSourceFile, generalized to the full pull façade spec.md §4.F
// describes: an include-frame stack (so `#include` recurses instead of
// being a separate top-level pass), a macro-expansion-frame stack (so a
// macro's replacement tokens are re-scanned through the very same pull
// path, including nested macro invocations), and a closure-based lookahead
// scope in place of the teacher's `defer file.Close()` idiom — Go has no
// destructors, so `Stream.Lookahead` returns a restore closure instead.
package stream

import (
	"fmt"

	"github.com/jdefineit/jdi/diag"
	"github.com/jdefineit/jdi/internal/cc/directive"
	"github.com/jdefineit/jdi/internal/cc/lexer"
	"github.com/jdefineit/jdi/internal/cc/macro"
	"github.com/jdefineit/jdi/internal/cc/source"
)

// Opener resolves a located #include target to a readable file, returning
// the new frame's directory (used to seed further relative includes and
// #include_next's "search after this directory" rule).
type Opener func(path string) (*source.Reader, string, error)

type includeFrame struct {
	reader *source.Reader
	scanner *lexer.Scanner
	dir    string
}

// expansionFrame is a macro's replacement-list tokens being re-scanned
// through the same pull path that raw source tokens travel, so that a
// macro invocation appearing inside another macro's body expands exactly
// as it would at top level (spec.md §4.D/§4.F).
type expansionFrame struct {
	name string
	toks []lexer.Token
	pos  int
}

// Stream is the token stream façade (spec.md §4.F). It implements
// macro.TokenSource, so the same expander the directive processor uses for
// `#if`/`#elif` conditions also drives macro invocations found in the
// ordinary token stream.
type Stream struct {
	fs       *source.FileSet
	sink     diag.Sink
	macros   *macro.Table
	expander *macro.Expander
	proc     *directive.Processor
	opener   Opener

	includes   []includeFrame
	expansions []expansionFrame
	pushback   []lexer.Token

	atLineStart bool
	pragmas     []directive.PragmaDirective

	// recordings is a stack of lookahead buffers, one per currently active
	// Lookahead scope: a token is recorded into the innermost (top) scope
	// only, so restoring it replays those tokens through emit again, which
	// folds them into whatever scope is then on top (an enclosing one, if
	// any) — the same mechanism that makes a single scope work generalizes
	// to nesting without double-recording anything.
	recordings [][]lexer.Token

	lastPos source.Position
}

// New constructs a Stream over an already-open root reader. macros and proc
// are shared with the caller (a jdi.Session owns the table and builds the
// processor for each ParseStream call) so that AddMacro/
// Undefine calls from outside this pull are reflected on the very next
// token, per spec.md §5.
func New(fs *source.FileSet, sink diag.Sink, macros *macro.Table, proc *directive.Processor, opener Opener, root *source.Reader, rootDir string) *Stream {
	s := &Stream{
		fs:          fs,
		sink:        sink,
		macros:      macros,
		expander:    macro.NewExpander(fs, sink),
		proc:        proc,
		opener:      opener,
		atLineStart: true,
	}
	s.includes = append(s.includes, includeFrame{reader: root, scanner: lexer.NewScanner(fs), dir: rootDir})
	return s
}

// PushBack returns tok to the front of the stream; the next Next() call
// yields it before anything else. Implements macro.TokenSource.
func (s *Stream) PushBack(tok lexer.Token) {
	s.pushback = append(s.pushback, tok)
}

// Next pulls the next consumer-visible token: directive lines are consumed
// and dispatched rather than returned, tokens inside an inactive
// conditional branch are discarded, and macro invocations are expanded
// in place. Implements macro.TokenSource.
func (s *Stream) Next() (lexer.Token, error) { return s.pull(true) }

// invocationSource adapts a Stream to macro.TokenSource for the one call
// that must see tokens before macro expansion: CaptureInvocation's
// argument split. Feeding it already-expanded tokens would expand macro
// arguments before the `#`/`##` operators or the recursive-guard ever see
// them, which spec.md §4.D's 4-step algorithm requires happen afterward,
// under the expandArg callback.
type invocationSource struct{ s *Stream }

func (r invocationSource) Next() (lexer.Token, error) { return r.s.pull(false) }
func (r invocationSource) PushBack(tok lexer.Token)    { r.s.PushBack(tok) }

// pull implements both Next (expand=true) and the raw view CaptureInvocation
// uses to split an invocation's argument tokens (expand=false): the two
// share every directive-dispatch, conditional-skip, and include-recursion
// rule, differing only in whether an Identifier naming a macro is expanded
// in place or handed back as-is.
func (s *Stream) pull(expand bool) (lexer.Token, error) {
	for {
		if n := len(s.pushback); n > 0 {
			tok := s.pushback[n-1]
			s.pushback = s.pushback[:n-1]
			return s.emit(tok), nil
		}

		if n := len(s.expansions); n > 0 {
			top := &s.expansions[n-1]
			if top.pos < len(top.toks) {
				tok := top.toks[top.pos]
				top.pos++
				if expand {
					return s.expandOrEmit(tok)
				}
				return s.emit(tok), nil
			}
			s.expansions = s.expansions[:n-1]
			continue
		}

		if len(s.includes) == 0 {
			return lexer.EOFToken(s.lastPos), nil
		}

		raw, err := s.nextRaw()
		if err != nil {
			return lexer.Token{}, err
		}
		s.lastPos = raw.Pos

		switch raw.Kind {
		case lexer.EOF:
			s.includes = s.includes[:len(s.includes)-1]
			s.atLineStart = true
			continue
		case lexer.Newline:
			s.atLineStart = true
			continue
		case lexer.Hash:
			if s.atLineStart {
				if err := s.processDirectiveLine(raw.Pos); err != nil && s.sink != nil {
					s.sink(diag.Error, err.Error(), raw.Pos)
				}
				s.atLineStart = true
				continue
			}
		}

		s.atLineStart = false
		if !s.proc.Active() {
			continue
		}
		if expand {
			return s.expandOrEmit(raw)
		}
		return s.emit(raw), nil
	}
}

// nextRaw scans the next raw token from the innermost include frame.
func (s *Stream) nextRaw() (lexer.Token, error) {
	top := &s.includes[len(s.includes)-1]
	return top.scanner.Next(top.reader)
}

// emit promotes a keyword and records the token into the innermost active
// Lookahead scope, if any, without re-running macro expansion (used for
// pushed-back tokens, which have already been through expandOrEmit once).
func (s *Stream) emit(tok lexer.Token) lexer.Token {
	tok = promote(tok)
	if n := len(s.recordings); n > 0 {
		s.recordings[n-1] = append(s.recordings[n-1], tok)
	}
	return tok
}

// expandOrEmit promotes tok's keyword kind, and if it names an
// active macro, expands it (pushing a new expansion frame) and loops;
// otherwise it is handed to the caller as-is.
func (s *Stream) expandOrEmit(tok lexer.Token) (lexer.Token, error) {
	tok = promote(tok)
	if tok.Kind != lexer.Identifier {
		return s.emit(tok), nil
	}
	if s.isSuppressed(tok.Text) {
		return s.emit(tok), nil
	}
	rec, ok := s.macros.Lookup(tok.Text)
	if !ok {
		return s.emit(tok), nil
	}

	if rec.Function {
		args, captured, err := s.expander.CaptureInvocation(invocationSource{s})
		if err != nil {
			return lexer.Token{}, err
		}
		if !captured {
			return s.emit(tok), nil
		}
		body, err := s.expander.Substitute(rec, args, func(a []lexer.Token) []lexer.Token {
			return s.rescan(a, rec.Name)
		}, tok.Pos)
		if err != nil && s.sink != nil {
			s.sink(diag.Error, err.Error(), tok.Pos)
		}
		s.expansions = append(s.expansions, expansionFrame{name: rec.Name, toks: body})
		return s.Next()
	}

	body, err := s.expander.Substitute(rec, nil, nil, tok.Pos)
	if err != nil && s.sink != nil {
		s.sink(diag.Error, err.Error(), tok.Pos)
	}
	s.expansions = append(s.expansions, expansionFrame{name: rec.Name, toks: body})
	return s.Next()
}

// isSuppressed reports whether name is already being expanded somewhere on
// the current expansion-frame stack, preventing infinite self-recursion
// (spec.md §4.D).
func (s *Stream) isSuppressed(name string) bool {
	for _, f := range s.expansions {
		if f.name == name {
			return true
		}
	}
	return false
}

// rescan macro-expands a fully-materialized token slice (a macro argument,
// already substituted into an invocation) outside of the main pull loop,
// honoring the same suppression rule via an extra guarded name.
func (s *Stream) rescan(toks []lexer.Token, guard string) []lexer.Token {
	sub := &Stream{
		fs:       s.fs,
		sink:     s.sink,
		macros:   s.macros,
		expander: s.expander,
		proc:     s.proc,
		opener:   s.opener,
	}
	sub.expansions = append(sub.expansions, expansionFrame{name: guard, toks: toks})
	var out []lexer.Token
	for {
		tok, err := sub.Next()
		if err != nil || tok.Kind == lexer.EOF {
			break
		}
		out = append(out, tok)
	}
	return out
}

func promote(tok lexer.Token) lexer.Token {
	if tok.Kind == lexer.Identifier {
		if kw, ok := lexer.KeywordKind(tok.Text); ok {
			tok.Kind = kw
		}
	}
	return tok
}

// processDirectiveLine consumes the remainder of a `#...` logical line
// (the name keyword and its argument tokens, up to Newline/EOF) and
// dispatches it to the directive processor.
func (s *Stream) processDirectiveLine(hashPos source.Position) error {
	nameTok, err := s.nextRaw()
	if err != nil {
		return err
	}
	if nameTok.Kind == lexer.Newline || nameTok.Kind == lexer.EOF {
		return nil // null directive: a bare '#' on its own line
	}
	var args []lexer.Token
	for {
		tok, err := s.nextRaw()
		if err != nil {
			return err
		}
		if tok.Kind == lexer.Newline || tok.Kind == lexer.EOF {
			break
		}
		args = append(args, tok)
	}

	dir := s.includes[len(s.includes)-1].dir
	switch nameTok.Text {
	case "define":
		return s.proc.HandleDefine(args, hashPos)
	case "undef":
		return s.proc.HandleUndef(args)
	case "if":
		return s.proc.HandleIf(args, hashPos)
	case "ifdef":
		return s.proc.HandleIfdef(args)
	case "ifndef":
		return s.proc.HandleIfndef(args)
	case "elif":
		return s.proc.HandleElif(args, hashPos)
	case "elifdef":
		return s.proc.HandleElifdef(args)
	case "elifndef":
		return s.proc.HandleElifndef(args)
	case "else":
		return s.proc.HandleElse()
	case "endif":
		return s.proc.HandleEndif()
	case "include", "include_next":
		if !s.proc.Active() {
			return nil
		}
		return s.handleInclude(args, nameTok.Text == "include_next", dir)
	case "error":
		s.proc.HandleError(args, hashPos)
		return nil
	case "warning":
		s.proc.HandleWarning(args, hashPos)
		return nil
	case "line":
		_, _, err := s.proc.HandleLine(args)
		return err
	case "pragma":
		s.pragmas = append(s.pragmas, s.proc.HandlePragma(args))
		return nil
	default:
		return fmt.Errorf("unrecognized preprocessing directive %q", nameTok.Text)
	}
}

func (s *Stream) handleInclude(args []lexer.Token, next bool, dir string) error {
	res, err := s.proc.HandleInclude(args, next, dir)
	if err != nil {
		return err
	}
	if s.opener == nil {
		return fmt.Errorf("include resolved to %q but no file opener is configured", res.FoundPath)
	}
	reader, newDir, err := s.opener(res.FoundPath)
	if err != nil {
		return err
	}
	s.includes = append(s.includes, includeFrame{reader: reader, scanner: lexer.NewScanner(s.fs), dir: newDir})
	s.atLineStart = true
	return nil
}

// TakePragmas drains and returns every #pragma encountered since the last
// call, as opaque passthrough values (spec.md §4.E's non-goal: no pragma
// semantics beyond passthrough).
func (s *Stream) TakePragmas() []directive.PragmaDirective {
	p := s.pragmas
	s.pragmas = nil
	return p
}

// Depth reports the current #include nesting depth.
func (s *Stream) Depth() int { return len(s.includes) }

// Lookahead begins a lookahead scope and returns a restore closure: calling
// it rewinds the stream so every token pulled since Lookahead was called is
// re-observed by the next Next() calls, the idiomatic stand-in for the
// teacher's defer-scoped resource handling (Go has no destructors). Scopes
// nest (spec.md §4.F): a nested Lookahead's restore replays its tokens
// through the same recording path, which folds them into the enclosing
// scope still on top of the stack, so restoring the outer scope afterward
// replays everything seen since it began, inner scope included.
func (s *Stream) Lookahead() func() {
	depth := len(s.recordings)
	s.recordings = append(s.recordings, nil)
	return func() {
		recorded := s.recordings[depth]
		s.recordings = s.recordings[:depth]
		for i := len(recorded) - 1; i >= 0; i-- {
			s.pushback = append(s.pushback, recorded[i])
		}
	}
}

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

// Package decl implements the minimal declaration parser named in
// SPEC_FULL.md §2: it consumes the fully preprocessed token stream produced
// by internal/cc/stream and populates an internal/defs.Store with the
// shapes of namespaces, classes/structs/unions, enums, typedefs,
// using-aliases, template headers, and simple variable/function
// declarations.
//
// It is not a semantic analyzer: there is no type checking, no overload
// resolution, no template instantiation. It recognizes declaration shapes
// by their token sequence and records them, the same scope this engine's
// teacher's parser.Parse keeps for #if/#include shapes (grounded on
// language/internal/cc/parser/parser.go's single-pass, dispatch-on-token
// loop with skip-to-resync error recovery) generalized from preprocessor
// directives to declarations.
package decl

import (
	"fmt"

	"github.com/jdefineit/jdi/diag"
	"github.com/jdefineit/jdi/internal/cc/lexer"
	"github.com/jdefineit/jdi/internal/cc/source"
	"github.com/jdefineit/jdi/internal/collections"
	"github.com/jdefineit/jdi/internal/defs"
)

// declEndKinds are the token kinds that terminate the type-specifier/name
// buffer parseVariableOrFunction accumulates.
var declEndKinds = collections.SetOf(
	lexer.LParen, lexer.Semicolon, lexer.Assign, lexer.LBracket, lexer.RBrace, lexer.EOF,
)

// TokenSource is the minimal pull interface this parser needs: the same
// shape internal/cc/macro.TokenSource uses, satisfied directly by
// *internal/cc/stream.Stream.
type TokenSource interface {
	Next() (lexer.Token, error)
	PushBack(lexer.Token)
}

// Parser walks a TokenSource and declares what it recognizes into a
// defs.Store.
type Parser struct {
	toks  TokenSource
	fs    *source.FileSet
	sink  diag.Sink
	store *defs.Store
}

// NewParser returns a Parser that will populate store as it consumes toks.
func NewParser(toks TokenSource, fs *source.FileSet, sink diag.Sink, store *defs.Store) *Parser {
	return &Parser{toks: toks, fs: fs, sink: sink, store: store}
}

// ParseTranslationUnit consumes toks to EOF, declaring every recognized
// top-level shape into the store's global scope. It never returns an error
// itself: per spec.md §7's report-and-continue policy, a malformed
// declaration is reported to the sink and the parser resyncs at the next
// ';', '}' or EOF rather than aborting the whole file.
func (p *Parser) ParseTranslationUnit() {
	p.parseDeclsUntil(p.store.Global(), func(tok lexer.Token) bool { return tok.Kind == lexer.EOF })
}

func (p *Parser) pos(tok lexer.Token) source.Position { return tok.Pos }

func (p *Parser) report(tok lexer.Token, format string, args ...any) {
	if p.sink == nil {
		return
	}
	p.sink(diag.Error, fmt.Sprintf(format, args...), p.pos(tok))
}

func (p *Parser) next() (lexer.Token, error) { return p.toks.Next() }

func (p *Parser) peek() (lexer.Token, error) {
	tok, err := p.toks.Next()
	if err != nil {
		return tok, err
	}
	p.toks.PushBack(tok)
	return tok, nil
}

// parseDeclsUntil parses declarations into scope until stop(tok) is true for
// the next unconsumed token (which is left unconsumed), or EOF is reached.
func (p *Parser) parseDeclsUntil(scope defs.ScopeID, stop func(lexer.Token) bool) {
	for {
		tok, err := p.peek()
		if err != nil {
			return
		}
		if stop(tok) {
			return
		}
		if tok.Kind == lexer.EOF {
			return
		}
		p.parseOneDecl(scope)
	}
}

// parseOneDecl consumes exactly one top-level shape (or resyncs past one
// malformed attempt) and declares it into scope if recognized.
func (p *Parser) parseOneDecl(scope defs.ScopeID) {
	tok, err := p.next()
	if err != nil {
		return
	}

	switch tok.Kind {
	case lexer.Semicolon:
		return // null declaration
	case lexer.KwNamespace:
		p.parseNamespace(scope, tok)
	case lexer.KwClass, lexer.KwStruct, lexer.KwUnion:
		p.parseClassLike(scope, tok)
	case lexer.KwEnum:
		p.parseEnum(scope, tok)
	case lexer.KwTypedef:
		p.parseTypedef(scope, tok)
	case lexer.KwUsing:
		p.parseUsing(scope, tok)
	case lexer.KwTemplate:
		p.skipTemplateHeader()
		// The templated declaration itself (class or function) follows
		// immediately and is parsed by the next loop iteration; its
		// template-ness is not separately recorded (contract-level
		// fidelity: shapes, not instantiations).
	case lexer.KwPublic, lexer.KwPrivate, lexer.KwProtected:
		p.skipAccessSpecifier(tok)
	case lexer.KwExtern:
		p.parseExternBlockOrDecl(scope, tok)
	case lexer.RBrace:
		// Caller's stop() should have caught this; defensive no-op.
	default:
		p.parseVariableOrFunction(scope, tok)
	}
}

// parseNamespace handles `namespace Name { ... }` and the anonymous form
// `namespace { ... }`.
func (p *Parser) parseNamespace(scope defs.ScopeID, kw lexer.Token) {
	name := ""
	tok, err := p.peek()
	if err != nil {
		return
	}
	if tok.Kind == lexer.Identifier {
		name = tok.Text
		p.next()
	}

	if err := p.expect(lexer.LBrace); err != nil {
		p.report(kw, "malformed namespace declaration: %v", err)
		p.resync()
		return
	}

	member := p.store.NewScope(scope, name)
	if name != "" {
		p.store.Declare(defs.Symbol{
			Name: name, Kind: defs.KindNamespace, DeclScope: scope,
			MemberScope: member, Pos: toDefsPos(p.fs, kw.Pos),
		})
	}
	p.parseDeclsUntil(member, func(t lexer.Token) bool { return t.Kind == lexer.RBrace })
	p.expect(lexer.RBrace)
}

// parseClassLike handles `class|struct|union Name [: bases] { members } ;`
// and forward declarations `class Name ;`.
func (p *Parser) parseClassLike(scope defs.ScopeID, kw lexer.Token) {
	kind := defs.KindClass
	switch kw.Kind {
	case lexer.KwStruct:
		kind = defs.KindStruct
	case lexer.KwUnion:
		kind = defs.KindUnion
	}

	tok, err := p.peek()
	if err != nil {
		return
	}
	name := ""
	if tok.Kind == lexer.Identifier {
		name = tok.Text
		p.next()
	}

	tok, err = p.peek()
	if err != nil {
		return
	}
	if tok.Kind == lexer.Colon {
		p.next()
		p.skipUntilAny(lexer.LBrace, lexer.Semicolon)
	}

	tok, err = p.peek()
	if err != nil {
		return
	}
	if tok.Kind == lexer.Semicolon {
		p.next()
		if name != "" {
			p.store.Declare(defs.Symbol{Name: name, Kind: kind, DeclScope: scope, Pos: toDefsPos(p.fs, kw.Pos)})
		}
		return
	}
	if tok.Kind != lexer.LBrace {
		p.report(kw, "malformed %s declaration", kw.Text)
		p.resync()
		return
	}
	p.next() // consume '{'

	member := p.store.NewScope(scope, name)
	if name != "" {
		p.store.Declare(defs.Symbol{
			Name: name, Kind: kind, DeclScope: scope,
			MemberScope: member, Pos: toDefsPos(p.fs, kw.Pos),
		})
	}
	p.parseDeclsUntil(member, func(t lexer.Token) bool { return t.Kind == lexer.RBrace })
	p.expect(lexer.RBrace)

	// Trailing ';' after the closing brace, as in `struct Foo { ... };`.
	if tok, err := p.peek(); err == nil && tok.Kind == lexer.Semicolon {
		p.next()
	}
}

func (p *Parser) skipAccessSpecifier(kw lexer.Token) {
	if tok, err := p.peek(); err == nil && tok.Kind == lexer.Colon {
		p.next()
	}
}

// parseEnum handles `enum [class|struct] Name [: underlying] { a, b = 1 } ;`
// and forward declarations.
func (p *Parser) parseEnum(scope defs.ScopeID, kw lexer.Token) {
	if tok, err := p.peek(); err == nil && (tok.Kind == lexer.KwClass || tok.Kind == lexer.KwStruct) {
		p.next()
	}

	name := ""
	if tok, err := p.peek(); err == nil && tok.Kind == lexer.Identifier {
		name = tok.Text
		p.next()
	}

	if tok, err := p.peek(); err == nil && tok.Kind == lexer.Colon {
		p.next()
		p.skipUntilAny(lexer.LBrace, lexer.Semicolon)
	}

	tok, err := p.peek()
	if err != nil {
		return
	}
	if tok.Kind == lexer.Semicolon {
		p.next()
		if name != "" {
			p.store.Declare(defs.Symbol{Name: name, Kind: defs.KindEnum, DeclScope: scope, Pos: toDefsPos(p.fs, kw.Pos)})
		}
		return
	}
	if tok.Kind != lexer.LBrace {
		p.report(kw, "malformed enum declaration")
		p.resync()
		return
	}
	p.next()

	if name != "" {
		p.store.Declare(defs.Symbol{Name: name, Kind: defs.KindEnum, DeclScope: scope, Pos: toDefsPos(p.fs, kw.Pos)})
	}

	for {
		tok, err := p.peek()
		if err != nil || tok.Kind == lexer.RBrace || tok.Kind == lexer.EOF {
			break
		}
		if tok.Kind != lexer.Identifier {
			p.next()
			continue
		}
		p.next()
		p.store.Declare(defs.Symbol{Name: tok.Text, Kind: defs.KindVariable, DeclScope: scope, TypeText: name, Pos: toDefsPos(p.fs, tok.Pos)})
		if n, err := p.peek(); err == nil && n.Kind == lexer.Assign {
			p.next()
			for {
				n, err := p.peek()
				if err != nil || n.Kind == lexer.Comma || n.Kind == lexer.RBrace || n.Kind == lexer.EOF {
					break
				}
				p.next()
			}
		}
		if n, err := p.peek(); err == nil && n.Kind == lexer.Comma {
			p.next()
		}
	}
	p.expect(lexer.RBrace)
	if tok, err := p.peek(); err == nil && tok.Kind == lexer.Semicolon {
		p.next()
	}
}

// parseTypedef handles `typedef <type tokens> Name ;`: the declared name is
// the last identifier before the terminating ';', mirroring the simplest
// and overwhelmingly common typedef shape.
func (p *Parser) parseTypedef(scope defs.ScopeID, kw lexer.Token) {
	var typeToks []lexer.Token
	var nameTok lexer.Token
	haveName := false

	for {
		tok, err := p.next()
		if err != nil {
			return
		}
		if tok.Kind == lexer.Semicolon || tok.Kind == lexer.EOF {
			break
		}
		if tok.Kind == lexer.Identifier {
			if haveName {
				typeToks = append(typeToks, nameTok)
			}
			nameTok = tok
			haveName = true
			continue
		}
		typeToks = append(typeToks, tok)
	}

	if !haveName {
		p.report(kw, "malformed typedef declaration")
		return
	}
	p.store.Declare(defs.Symbol{
		Name: nameTok.Text, Kind: defs.KindTypedef, DeclScope: scope,
		TypeText: joinTokenText(typeToks), Pos: toDefsPos(p.fs, kw.Pos),
	})
}

// parseUsing handles `using Name = Type ;` (an alias declaration) and skips
// over plain using-declarations (`using ns::Thing;`), which bring in a name
// from elsewhere rather than declaring a new shape.
func (p *Parser) parseUsing(scope defs.ScopeID, kw lexer.Token) {
	nameTok, err := p.next()
	if err != nil {
		return
	}
	if nameTok.Kind != lexer.Identifier {
		p.skipUntilAny(lexer.Semicolon)
		return
	}

	tok, err := p.peek()
	if err != nil {
		return
	}
	if tok.Kind != lexer.Assign {
		p.skipUntilAny(lexer.Semicolon)
		return
	}
	p.next() // consume '='

	var typeToks []lexer.Token
	for {
		tok, err := p.next()
		if err != nil || tok.Kind == lexer.Semicolon || tok.Kind == lexer.EOF {
			break
		}
		typeToks = append(typeToks, tok)
	}
	p.store.Declare(defs.Symbol{
		Name: nameTok.Text, Kind: defs.KindUsingAlias, DeclScope: scope,
		TypeText: joinTokenText(typeToks), Pos: toDefsPos(p.fs, kw.Pos),
	})
}

// parseExternBlockOrDecl handles `extern "C" { ... }` linkage blocks
// (members flow into the enclosing scope, not a new one) and falls back to
// ordinary declaration parsing for a plain `extern <decl>;`.
func (p *Parser) parseExternBlockOrDecl(scope defs.ScopeID, kw lexer.Token) {
	tok, err := p.peek()
	if err != nil {
		return
	}
	if tok.Kind == lexer.StringLiteral {
		p.next()
		if brace, err := p.peek(); err == nil && brace.Kind == lexer.LBrace {
			p.next()
			p.parseDeclsUntil(scope, func(t lexer.Token) bool { return t.Kind == lexer.RBrace })
			p.expect(lexer.RBrace)
			return
		}
		// `extern "C" void f();` - treat as if extern/"C" were qualifiers.
		p.parseVariableOrFunction(scope, tok)
		return
	}
	p.parseVariableOrFunction(scope, kw)
}

// parseVariableOrFunction handles a simple variable or function declaration
// starting with the already-consumed token first. It collects a
// type-specifier token buffer up to the last identifier seen before a '(',
// ';', '=' or '[', which becomes the declared name.
func (p *Parser) parseVariableOrFunction(scope defs.ScopeID, first lexer.Token) {
	var typeToks []lexer.Token
	var nameTok lexer.Token
	haveName := false

	tok := first
	for {
		if isDeclEnd(tok.Kind) {
			break
		}
		if tok.Kind == lexer.Identifier {
			if haveName {
				typeToks = append(typeToks, nameTok)
			}
			nameTok = tok
			haveName = true
		} else {
			typeToks = append(typeToks, tok)
		}

		next, err := p.next()
		if err != nil {
			return
		}
		tok = next
	}

	if !haveName {
		// Nothing recognizable (e.g. a stray keyword or punctuator run);
		// resync past the terminator we just stopped on.
		if tok.Kind != lexer.Semicolon && tok.Kind != lexer.RBrace {
			p.resync()
		}
		return
	}

	switch tok.Kind {
	case lexer.LParen:
		p.parseFunctionTail(scope, nameTok, typeToks)
	case lexer.Semicolon:
		p.store.Declare(defs.Symbol{
			Name: nameTok.Text, Kind: defs.KindVariable, DeclScope: scope,
			TypeText: joinTokenText(typeToks), Pos: toDefsPos(p.fs, nameTok.Pos),
		})
	case lexer.Assign, lexer.LBracket:
		p.skipUntilAny(lexer.Semicolon)
		p.store.Declare(defs.Symbol{
			Name: nameTok.Text, Kind: defs.KindVariable, DeclScope: scope,
			TypeText: joinTokenText(typeToks), Pos: toDefsPos(p.fs, nameTok.Pos),
		})
	default:
		p.resync()
	}
}

// parseFunctionTail consumes a balanced parameter list after '(' (already
// consumed), any trailing qualifiers, and either a terminating ';' or a
// balanced '{ ... }' body, declaring a Function symbol either way.
func (p *Parser) parseFunctionTail(scope defs.ScopeID, nameTok lexer.Token, returnTypeToks []lexer.Token) {
	depth := 1
	for depth > 0 {
		tok, err := p.next()
		if err != nil {
			return
		}
		switch tok.Kind {
		case lexer.LParen:
			depth++
		case lexer.RParen:
			depth--
		case lexer.Semicolon:
			p.report(nameTok, "malformed declaration of %q: unbalanced parentheses", nameTok.Text)
			return
		case lexer.EOF:
			return
		}
	}

	p.store.Declare(defs.Symbol{
		Name: nameTok.Text, Kind: defs.KindFunction, DeclScope: scope,
		TypeText: joinTokenText(returnTypeToks), Pos: toDefsPos(p.fs, nameTok.Pos),
	})

	// Skip trailing qualifiers (const, noexcept, override, trailing return
	// type arrow...) up to the body or the terminator.
	parenDepth := 0
	for {
		tok, err := p.next()
		if err != nil {
			return
		}
		switch tok.Kind {
		case lexer.LParen:
			parenDepth++
		case lexer.RParen:
			parenDepth--
		case lexer.Semicolon:
			if parenDepth <= 0 {
				return
			}
		case lexer.LBrace:
			if parenDepth <= 0 {
				p.skipBalancedBrace()
				return
			}
		case lexer.EOF:
			return
		}
	}
}

func (p *Parser) skipBalancedBrace() {
	depth := 1
	for depth > 0 {
		tok, err := p.next()
		if err != nil || tok.Kind == lexer.EOF {
			return
		}
		switch tok.Kind {
		case lexer.LBrace:
			depth++
		case lexer.RBrace:
			depth--
		}
	}
}

// skipTemplateHeader skips a `< ... >` template parameter list, tracking
// nesting depth. This is a simplification: real C++ disambiguates '<'/'>'
// from comparison operators using the grammar, which this shape-level
// parser does not attempt.
func (p *Parser) skipTemplateHeader() {
	tok, err := p.peek()
	if err != nil || tok.Kind != lexer.Less {
		return
	}
	p.next()
	depth := 1
	for depth > 0 {
		tok, err := p.next()
		if err != nil || tok.Kind == lexer.EOF {
			return
		}
		switch tok.Kind {
		case lexer.Less:
			depth++
		case lexer.Greater:
			depth--
		case lexer.ShiftRight:
			depth -= 2
		}
	}
}

func (p *Parser) expect(kind lexer.Kind) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.Kind != kind {
		return fmt.Errorf("expected token kind %v, found %q", kind, tok.Text)
	}
	return nil
}

// skipUntilAny consumes tokens up to and including the first one whose kind
// matches any of kinds, or EOF.
func (p *Parser) skipUntilAny(kinds ...lexer.Kind) {
	for {
		tok, err := p.next()
		if err != nil || tok.Kind == lexer.EOF {
			return
		}
		for _, k := range kinds {
			if tok.Kind == k {
				return
			}
		}
	}
}

// resync implements spec.md §7's declaration-error recovery: discard
// tokens until the next ';', '}' or EOF so a single malformed declaration
// doesn't desynchronize the rest of the file.
func (p *Parser) resync() {
	for {
		tok, err := p.next()
		if err != nil {
			return
		}
		if tok.Kind == lexer.Semicolon || tok.Kind == lexer.RBrace || tok.Kind == lexer.EOF {
			return
		}
	}
}

func isDeclEnd(k lexer.Kind) bool {
	return declEndKinds.Contains(k)
}

func joinTokenText(tokens []lexer.Token) string {
	out := ""
	for i, tok := range tokens {
		if i > 0 {
			out += " "
		}
		out += tok.Text
	}
	return out
}

func toDefsPos(fs *source.FileSet, pos source.Position) defs.Position {
	return defs.Position{File: fs.Name(pos.File), Line: pos.Cursor.Line, Col: pos.Cursor.Column}
}

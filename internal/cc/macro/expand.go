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
	"strings"

	"github.com/jdefineit/jdi/diag"
	"github.com/jdefineit/jdi/internal/cc/source"

	"github.com/jdefineit/jdi/internal/cc/lexer"
)

// TokenSource is the minimal pull interface the expander needs from its
// caller to capture a function-like macro's argument list: a way to fetch
// the next raw token, and a way to push tokens back when a lookahead turns
// out not to be a macro invocation. Implemented by the token stream façade.
type TokenSource interface {
	Next() (lexer.Token, error)
	PushBack(lexer.Token)
}

const variadicParam = "__VA_ARGS__"

// nestingDelta returns how nesting depth changes when encountering a
// punctuator, used to track parenthesis/bracket/brace nesting while
// splitting arguments at top-level commas (spec.md §4.D).
func nestingDelta(k lexer.Kind) int {
	switch k {
	case lexer.LParen, lexer.LBracket, lexer.LBrace:
		return 1
	case lexer.RParen, lexer.RBracket, lexer.RBrace:
		return -1
	default:
		return 0
	}
}

// CaptureInvocation peeks past any newlines for a `(` to decide whether the
// macro identifier that triggered this call is actually being invoked.
// If no `(` is found, every peeked token (including skipped newlines) is
// pushed back and ok is false. Otherwise the argument token sequences are
// read up to the matching `)`, split at top-level commas, with nesting
// tracked across (), [], {} (spec.md §4.D).
func (e *Expander) CaptureInvocation(src TokenSource) (args [][]lexer.Token, ok bool, err error) {
	var skipped []lexer.Token
	for {
		tok, err := src.Next()
		if err != nil {
			pushBackAll(src, skipped)
			return nil, false, err
		}
		if tok.Kind == lexer.EOF {
			pushBackAll(src, skipped)
			return nil, false, nil
		}
		if tok.Kind == lexer.Newline {
			skipped = append(skipped, tok)
			continue
		}
		if tok.Kind != lexer.LParen {
			skipped = append(skipped, tok)
			pushBackAll(src, skipped)
			return nil, false, nil
		}
		break
	}

	var current []lexer.Token
	depth := 0
	for {
		tok, err := src.Next()
		if err != nil {
			return nil, true, err
		}
		if tok.Kind == lexer.EOF {
			return nil, true, fmt.Errorf("unterminated macro invocation argument list")
		}
		if tok.Kind == lexer.Newline {
			continue
		}
		if depth == 0 && tok.Kind == lexer.Comma {
			args = append(args, current)
			current = nil
			continue
		}
		if depth == 0 && tok.Kind == lexer.RParen {
			args = append(args, current)
			return args, true, nil
		}
		depth += nestingDelta(tok.Kind)
		current = append(current, tok)
	}
}

func pushBackAll(src TokenSource, toks []lexer.Token) {
	for i := len(toks) - 1; i >= 0; i-- {
		src.PushBack(toks[i])
	}
}

// Expander performs argument binding, `#`/`##` processing, and produces the
// substituted token vector for a macro invocation (spec.md §4.D, component
// D). It does not itself re-expand the result; the caller (the token stream
// façade) pushes the returned tokens as a new expansion frame and re-scans
// them, which is what gives recursive expansion its termination guarantee
// together with the suppression set.
type Expander struct {
	fs   *source.FileSet
	sink diag.Sink
}

// NewExpander constructs an Expander that reparses concatenated tokens
// using positions resolved against fs, and reports `##`/arity problems
// through sink.
func NewExpander(fs *source.FileSet, sink diag.Sink) *Expander {
	return &Expander{fs: fs, sink: sink}
}

// Substitute implements the 4-step substitution algorithm of spec.md §4.D
// for an object-like macro (args is nil) or a function-like macro whose
// arguments have already been captured by CaptureInvocation. expandArg is
// called to fully macro-expand an argument's unexpanded tokens at each
// non-adjacent parameter reference (spec.md §4.D rule 3).
func (e *Expander) Substitute(rec *Record, args [][]lexer.Token, expandArg func([]lexer.Token) []lexer.Token, invocationPos source.Position) ([]lexer.Token, error) {
	bound, err := e.bindArguments(rec, args, invocationPos)
	if err != nil && e.sink != nil {
		e.sink(diag.Error, err.Error(), invocationPos)
	}

	var out []lexer.Token
	body := rec.Body
	for i := 0; i < len(body); i++ {
		tok := body[i]

		if tok.Kind == lexer.Hash && rec.Function {
			param := body[i+1]
			argToks, known := bound[param.Text]
			if !known {
				out = append(out, param)
				i++
				continue
			}
			out = append(out, e.stringize(argToks, param.Pos))
			i++
			continue
		}

		if i+1 < len(body) && body[i+1].Kind == lexer.HashHash {
			folded, consumed := e.foldConcatenateRun(body, i, rec, bound)
			out = append(out, folded...)
			i += consumed - 1
			continue
		}

		if tok.Kind == lexer.Identifier && rec.Function {
			if argToks, known := bound[tok.Text]; known {
				out = append(out, expandArg(argToks)...)
				continue
			}
		}

		out = append(out, tok)
	}
	return out, nil
}

// foldConcatenateRun handles a maximal run `a##b##c##...` starting at index
// start (spec.md §4.D rule 2). It folds pairwise left-to-right: when a pair
// fails to form a single valid token, both operands are emitted
// unconcatenated and folding resumes from the next member (spec.md's
// concatenate-associativity law in §8 only requires left-associativity when
// every pairwise concatenation is itself valid). Returns the folded tokens
// and the number of body slots consumed.
func (e *Expander) foldConcatenateRun(body []lexer.Token, start int, rec *Record, bound map[string][]lexer.Token) ([]lexer.Token, int) {
	members := [][]lexer.Token{e.operandTokens(body[start], rec, bound)}
	j := start + 1
	for j < len(body) && body[j].Kind == lexer.HashHash {
		members = append(members, e.operandTokens(body[j+1], rec, bound))
		j += 2
	}

	var out []lexer.Token
	acc := members[0]
	for k := 1; k < len(members); k++ {
		next := members[k]
		merged, ok := e.concatenate(acc, next, tokenPos(acc, body[start].Pos))
		if ok {
			acc = mergeOperands(acc, merged, next)
			continue
		}
		out = append(out, acc...)
		acc = next
	}
	out = append(out, acc...)
	return out, j - start
}

func tokenPos(toks []lexer.Token, fallback source.Position) source.Position {
	if len(toks) == 0 {
		return fallback
	}
	return toks[len(toks)-1].Pos
}

// mergeOperands replaces the last token of left and the first token of
// right with their concatenation, keeping any remaining tokens of each
// operand untouched (relevant when an operand came from a multi-token
// macro argument).
func mergeOperands(left []lexer.Token, merged lexer.Token, right []lexer.Token) []lexer.Token {
	out := append([]lexer.Token{}, left[:max(len(left)-1, 0)]...)
	out = append(out, merged)
	if len(right) > 0 {
		out = append(out, right[1:]...)
	}
	return out
}

// operandTokens resolves one operand of `##`: if it's a parameter name, its
// *unexpanded* argument tokens; otherwise the single token itself.
func (e *Expander) operandTokens(tok lexer.Token, rec *Record, bound map[string][]lexer.Token) []lexer.Token {
	if tok.Kind == lexer.Identifier {
		if argToks, known := bound[tok.Text]; known {
			if len(argToks) == 0 {
				return nil
			}
			return argToks
		}
	}
	return []lexer.Token{tok}
}

func (e *Expander) bindArguments(rec *Record, args [][]lexer.Token, pos source.Position) (map[string][]lexer.Token, error) {
	bound := map[string][]lexer.Token{}
	if !rec.Function {
		return bound, nil
	}
	want := len(rec.Params)
	if len(args) == 1 && want == 0 && len(args[0]) == 0 {
		args = nil // FOO() with zero declared params: no arguments, not one empty one
	}
	var err error
	for i, p := range rec.Params {
		if i < len(args) {
			bound[p] = args[i]
		} else {
			bound[p] = nil
			err = fmt.Errorf("macro %q: too few arguments (want %d, got %d)", rec.Name, want, len(args))
		}
	}
	if rec.Variadic {
		if len(args) > want {
			var varArgs []lexer.Token
			for i := want; i < len(args); i++ {
				if i > want {
					varArgs = append(varArgs, lexer.Token{Kind: lexer.Comma, Text: ",", Pos: pos})
				}
				varArgs = append(varArgs, args[i]...)
			}
			bound[variadicParam] = varArgs
		} else {
			bound[variadicParam] = nil
		}
	} else if len(args) > want {
		err = fmt.Errorf("macro %q: too many arguments (want %d, got %d)", rec.Name, want, len(args))
	}
	return bound, err
}

// stringize implements the `#` operator: joins the unexpanded argument
// tokens with a single space between each, with no leading/trailing space,
// escaping quotes and backslashes so reparsing the literal reproduces the
// original bytes (spec.md §4.D rule 1, and the stringize law in §8).
func (e *Expander) stringize(argToks []lexer.Token, pos source.Position) lexer.Token {
	parts := make([]string, len(argToks))
	for i, t := range argToks {
		parts[i] = t.Text
	}
	joined := strings.Join(parts, " ")
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(joined); i++ {
		c := joined[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return lexer.Token{Kind: lexer.StringLiteral, Text: b.String(), Pos: pos}
}

// concatenate implements the `##` operator: join a's and b's text and
// reparse as a single token. Returns ok=false if the combined text is not
// exactly one valid token (spec.md §4.D rule 2).
func (e *Expander) concatenate(a, b []lexer.Token, pos source.Position) (lexer.Token, bool) {
	aText, bText := "", ""
	if len(a) > 0 {
		aText = a[len(a)-1].Text
	}
	if len(b) > 0 {
		bText = b[0].Text
	}
	combinedText := aText + bText
	if combinedText == "" {
		return lexer.Token{}, true
	}
	tok, ok := reparseSingleToken(e.fs, combinedText, pos)
	if !ok && e.sink != nil {
		e.sink(diag.Warning, fmt.Sprintf("pasting %q and %q does not give a valid preprocessing token", aText, bText), pos)
	}
	return tok, ok
}

// reparseSingleToken scans text as a fresh mini-buffer and reports whether
// it forms exactly one token (spec.md §4.D rule 2).
func reparseSingleToken(fs *source.FileSet, text string, pos source.Position) (lexer.Token, bool) {
	r := source.NewReader(pos.File, []byte(text))
	sc := lexer.NewScanner(fs)
	tok, err := sc.Next(r)
	if err != nil || tok.Kind == lexer.Invalid || tok.Kind == lexer.EOF {
		return lexer.Token{}, false
	}
	if !r.Eof() {
		return lexer.Token{}, false
	}
	tok.Pos = pos
	return tok, true
}

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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdefineit/jdi/diag"
	"github.com/jdefineit/jdi/internal/cc/lexer"
	"github.com/jdefineit/jdi/internal/cc/source"
)

func testPos(fs *source.FileSet) source.Position {
	return source.Position{Files: fs, File: fs.Intern("t.cc"), Cursor: source.CursorInit}
}

func tok(kind lexer.Kind, text string, pos source.Position) lexer.Token {
	return lexer.Token{Kind: kind, Text: text, Pos: pos}
}

func ident(text string, pos source.Position) lexer.Token {
	return tok(lexer.Identifier, text, pos)
}

func noopExpandArg(toks []lexer.Token) []lexer.Token { return toks }

func TestSubstitute_ObjectLikeVerbatim(t *testing.T) {
	fs := source.NewFileSet()
	pos := testPos(fs)
	rec, err := NewObjectLike("FOO", []lexer.Token{ident("bar", pos), tok(lexer.Plus, "+", pos), ident("baz", pos)})
	require.NoError(t, err)

	e := NewExpander(fs, diag.Discard())
	out, err := e.Substitute(rec, nil, noopExpandArg, pos)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "bar", out[0].Text)
	assert.Equal(t, "baz", out[2].Text)
}

func TestSubstitute_Stringize(t *testing.T) {
	fs := source.NewFileSet()
	pos := testPos(fs)
	// #define STR(x) #x
	rec, err := NewFunctionLike("STR", []string{"x"}, false, []lexer.Token{
		tok(lexer.Hash, "#", pos), ident("x", pos),
	})
	require.NoError(t, err)

	e := NewExpander(fs, diag.Discard())
	args := [][]lexer.Token{{ident("hello", pos), tok(lexer.Identifier, "world", pos)}}
	out, err := e.Substitute(rec, args, noopExpandArg, pos)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, lexer.StringLiteral, out[0].Kind)
	assert.Equal(t, `"hello world"`, out[0].Text)
}

func TestSubstitute_StringizeEscapesQuotesAndBackslashes(t *testing.T) {
	fs := source.NewFileSet()
	pos := testPos(fs)
	rec, err := NewFunctionLike("STR", []string{"x"}, false, []lexer.Token{
		tok(lexer.Hash, "#", pos), ident("x", pos),
	})
	require.NoError(t, err)

	e := NewExpander(fs, diag.Discard())
	args := [][]lexer.Token{{tok(lexer.StringLiteral, `"a\b"`, pos)}}
	out, err := e.Substitute(rec, args, noopExpandArg, pos)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, `"\"a\\b\""`, out[0].Text)
}

func TestSubstitute_ConcatenatePair(t *testing.T) {
	fs := source.NewFileSet()
	pos := testPos(fs)
	// #define CAT(a, b) a##b
	rec, err := NewFunctionLike("CAT", []string{"a", "b"}, false, []lexer.Token{
		ident("a", pos), tok(lexer.HashHash, "##", pos), ident("b", pos),
	})
	require.NoError(t, err)

	e := NewExpander(fs, diag.Discard())
	args := [][]lexer.Token{
		{ident("foo", pos)},
		{ident("bar", pos)},
	}
	out, err := e.Substitute(rec, args, noopExpandArg, pos)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, lexer.Identifier, out[0].Kind)
	assert.Equal(t, "foobar", out[0].Text)
}

func TestSubstitute_ConcatenateChainIsLeftAssociative(t *testing.T) {
	fs := source.NewFileSet()
	pos := testPos(fs)
	// #define CAT3(a, b, c) a##b##c
	rec, err := NewFunctionLike("CAT3", []string{"a", "b", "c"}, false, []lexer.Token{
		ident("a", pos), tok(lexer.HashHash, "##", pos),
		ident("b", pos), tok(lexer.HashHash, "##", pos),
		ident("c", pos),
	})
	require.NoError(t, err)

	e := NewExpander(fs, diag.Discard())
	args := [][]lexer.Token{
		{ident("x", pos)},
		{ident("y", pos)},
		{ident("z", pos)},
	}
	out, err := e.Substitute(rec, args, noopExpandArg, pos)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "xyz", out[0].Text)
}

func TestSubstitute_ConcatenateChainFallsBackOnInvalidPair(t *testing.T) {
	fs := source.NewFileSet()
	pos := testPos(fs)
	// #define CAT3(a, b, c) a##b##c, where a##b can't form a single token
	// (e.g. "+" ## "+" -> "++" is valid, but "1" ## "+" -> "1+" is not a
	// single preprocessing token) but b##c still concatenates.
	rec, err := NewFunctionLike("CAT3", []string{"a", "b", "c"}, false, []lexer.Token{
		ident("a", pos), tok(lexer.HashHash, "##", pos),
		ident("b", pos), tok(lexer.HashHash, "##", pos),
		ident("c", pos),
	})
	require.NoError(t, err)

	e := NewExpander(fs, diag.Discard())
	args := [][]lexer.Token{
		{tok(lexer.IntDecimal, "1", pos)},
		{tok(lexer.Plus, "+", pos)},
		{tok(lexer.Plus, "+", pos)},
	}
	out, err := e.Substitute(rec, args, noopExpandArg, pos)
	require.NoError(t, err)
	// "1" ## "+" doesn't paste into one token, so both are emitted
	// unconcatenated; "+" ## "+" then pastes into "++".
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].Text)
	assert.Equal(t, "++", out[1].Text)
}

func TestSubstitute_ParameterExpandedArgument(t *testing.T) {
	fs := source.NewFileSet()
	pos := testPos(fs)
	// #define ID(x) x
	rec, err := NewFunctionLike("ID", []string{"x"}, false, []lexer.Token{ident("x", pos)})
	require.NoError(t, err)

	e := NewExpander(fs, diag.Discard())
	expandCalled := false
	expand := func(toks []lexer.Token) []lexer.Token {
		expandCalled = true
		return toks
	}
	args := [][]lexer.Token{{ident("y", pos)}}
	out, err := e.Substitute(rec, args, expand, pos)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, expandCalled)
	assert.Equal(t, "y", out[0].Text)
}

func TestSubstitute_VariadicCollectsTrailingArgsWithCommas(t *testing.T) {
	fs := source.NewFileSet()
	pos := testPos(fs)
	// #define LOG(fmt, ...) fmt __VA_ARGS__
	rec, err := NewFunctionLike("LOG", []string{"fmt"}, true, []lexer.Token{
		ident("fmt", pos), ident("__VA_ARGS__", pos),
	})
	require.NoError(t, err)

	e := NewExpander(fs, diag.Discard())
	args := [][]lexer.Token{
		{tok(lexer.StringLiteral, `"x"`, pos)},
		{ident("a", pos)},
		{ident("b", pos)},
	}
	out, err := e.Substitute(rec, args, noopExpandArg, pos)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, `"x"`, out[0].Text)
	assert.Equal(t, "a", out[1].Text)
	assert.Equal(t, lexer.Comma, out[2].Kind)
	assert.Equal(t, "b", out[3].Text)
}

func TestSubstitute_TooFewArgumentsReportsErrorButStillSubstitutes(t *testing.T) {
	fs := source.NewFileSet()
	pos := testPos(fs)
	rec, err := NewFunctionLike("ADD", []string{"a", "b"}, false, []lexer.Token{
		ident("a", pos), tok(lexer.Plus, "+", pos), ident("b", pos),
	})
	require.NoError(t, err)

	var collector diag.Collector
	e := NewExpander(fs, collector.Sink())
	args := [][]lexer.Token{{ident("x", pos)}}
	_, err = e.Substitute(rec, args, noopExpandArg, pos)
	require.NoError(t, err)
	assert.True(t, collector.HasErrors())
}

func TestCaptureInvocation_PushesBackWhenNoParen(t *testing.T) {
	fs := source.NewFileSet()
	pos := testPos(fs)
	src := newFakeTokenSource([]lexer.Token{
		ident("bar", pos), lexer.EOFToken(pos),
	})

	e := NewExpander(fs, diag.Discard())
	args, ok, err := e.CaptureInvocation(src)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, args)
	// The peeked identifier must be recoverable by the caller.
	next, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "bar", next.Text)
}

func TestCaptureInvocation_SplitsTopLevelCommasRespectingNesting(t *testing.T) {
	fs := source.NewFileSet()
	pos := testPos(fs)
	// FOO(a, f(b, c), d)
	src := newFakeTokenSource([]lexer.Token{
		tok(lexer.LParen, "(", pos),
		ident("a", pos), tok(lexer.Comma, ",", pos),
		ident("f", pos), tok(lexer.LParen, "(", pos), ident("b", pos), tok(lexer.Comma, ",", pos), ident("c", pos), tok(lexer.RParen, ")", pos),
		tok(lexer.Comma, ",", pos),
		ident("d", pos),
		tok(lexer.RParen, ")", pos),
	})

	e := NewExpander(fs, diag.Discard())
	args, ok, err := e.CaptureInvocation(src)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, args, 3)
	assert.Len(t, args[1], 6) // f ( b , c )
}

// fakeTokenSource is a minimal TokenSource over a fixed token slice, with a
// push-back stack, used to test CaptureInvocation without the full stream
// façade.
type fakeTokenSource struct {
	toks  []lexer.Token
	pos   int
	stack []lexer.Token
}

func newFakeTokenSource(toks []lexer.Token) *fakeTokenSource {
	return &fakeTokenSource{toks: toks}
}

func (f *fakeTokenSource) Next() (lexer.Token, error) {
	if n := len(f.stack); n > 0 {
		tok := f.stack[n-1]
		f.stack = f.stack[:n-1]
		return tok, nil
	}
	if f.pos >= len(f.toks) {
		return lexer.Token{Kind: lexer.EOF}, nil
	}
	tok := f.toks[f.pos]
	f.pos++
	return tok, nil
}

func (f *fakeTokenSource) PushBack(tok lexer.Token) {
	f.stack = append(f.stack, tok)
}

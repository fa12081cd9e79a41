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

package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdefineit/jdi/diag"
	"github.com/jdefineit/jdi/internal/cc/lexer"
	"github.com/jdefineit/jdi/internal/cc/macro"
	"github.com/jdefineit/jdi/internal/cc/source"
)

func testPos(fs *source.FileSet) source.Position {
	return source.Position{Files: fs, File: fs.Intern("t.cc"), Cursor: source.CursorInit}
}

func tokenize(t *testing.T, fs *source.FileSet, src string) []lexer.Token {
	t.Helper()
	r := source.NewReader(fs.Intern("t.cc"), []byte(src))
	sc := lexer.NewScanner(fs)
	var toks []lexer.Token
	for {
		tok, err := sc.Next(r)
		require.NoError(t, err)
		if tok.Kind == lexer.EOF {
			break
		}
		if tok.Kind == lexer.Newline {
			continue
		}
		toks = append(toks, tok)
	}
	return toks
}

func newTestProcessor(t *testing.T) (*Processor, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	p := NewProcessor(macro.NewTable(), fs, diag.Discard(), nil)
	return p, fs
}

func TestStack_PlainIfElseEndif(t *testing.T) {
	var s Stack
	assert.True(t, s.Active())

	s.PushIf(true)
	assert.True(t, s.Active())
	require.NoError(t, s.Else())
	assert.False(t, s.Active(), "else after a taken if must stay closed")
	require.NoError(t, s.Endif())
	assert.True(t, s.Active())
}

func TestStack_IfFalseElseActivates(t *testing.T) {
	var s Stack
	s.PushIf(false)
	assert.False(t, s.Active())
	require.NoError(t, s.Else())
	assert.True(t, s.Active())
	require.NoError(t, s.Endif())
}

func TestStack_ElifChain(t *testing.T) {
	var s Stack
	s.PushIf(false)
	assert.False(t, s.Active())
	require.NoError(t, s.Elif(false))
	assert.False(t, s.Active())
	require.NoError(t, s.Elif(true))
	assert.True(t, s.Active())
	// A later elif must not reactivate once a branch has been taken.
	require.NoError(t, s.Elif(true))
	assert.False(t, s.Active())
}

func TestStack_NestedInheritsParentInactive(t *testing.T) {
	var s Stack
	s.PushIf(false)
	s.PushIf(true) // nested condition is true, but the parent is inactive
	assert.False(t, s.Active())
	require.NoError(t, s.Endif())
	require.NoError(t, s.Endif())
	assert.True(t, s.Active())
}

func TestStack_ElifAfterElseIsError(t *testing.T) {
	var s Stack
	s.PushIf(false)
	require.NoError(t, s.Else())
	err := s.Elif(true)
	assert.ErrorIs(t, err, ErrElifAfterElse)
}

func TestStack_DuplicateElseIsError(t *testing.T) {
	var s Stack
	s.PushIf(false)
	require.NoError(t, s.Else())
	err := s.Else()
	assert.ErrorIs(t, err, ErrDuplicateElse)
}

func TestStack_UnmatchedEndifIsError(t *testing.T) {
	var s Stack
	err := s.Endif()
	assert.ErrorIs(t, err, ErrUnmatchedEndif)
}

func TestProcessor_DefineObjectLikeAndUndef(t *testing.T) {
	p, fs := newTestProcessor(t)
	pos := testPos(fs)

	require.NoError(t, p.HandleDefine(tokenize(t, fs, "FOO 1"), pos))
	rec, ok := p.macros.Lookup("FOO")
	require.True(t, ok)
	assert.False(t, rec.Function)
	assert.Equal(t, "1", rec.Body[0].Text)

	require.NoError(t, p.HandleUndef(tokenize(t, fs, "FOO")))
	assert.False(t, p.macros.Has("FOO"))
}

func TestProcessor_DefineFunctionLike(t *testing.T) {
	p, fs := newTestProcessor(t)
	pos := testPos(fs)

	require.NoError(t, p.HandleDefine(tokenize(t, fs, "ADD(a, b) a + b"), pos))
	rec, ok := p.macros.Lookup("ADD")
	require.True(t, ok)
	assert.True(t, rec.Function)
	assert.Equal(t, []string{"a", "b"}, rec.Params)
}

func TestProcessor_IfTrueCondition(t *testing.T) {
	p, fs := newTestProcessor(t)
	pos := testPos(fs)

	require.NoError(t, p.HandleDefine(tokenize(t, fs, "FOO 1"), pos))
	err := p.HandleIf(tokenize(t, fs, "FOO == 1"), pos)
	require.NoError(t, err)
	assert.True(t, p.Active())
	require.NoError(t, p.HandleEndif())
}

func TestProcessor_IfdefIfndef(t *testing.T) {
	p, fs := newTestProcessor(t)
	pos := testPos(fs)
	require.NoError(t, p.HandleDefine(tokenize(t, fs, "FOO 1"), pos))

	require.NoError(t, p.HandleIfdef(tokenize(t, fs, "FOO")))
	assert.True(t, p.Active())
	require.NoError(t, p.HandleEndif())

	require.NoError(t, p.HandleIfndef(tokenize(t, fs, "BAR")))
	assert.True(t, p.Active())
	require.NoError(t, p.HandleEndif())

	require.NoError(t, p.HandleIfndef(tokenize(t, fs, "FOO")))
	assert.False(t, p.Active())
	require.NoError(t, p.HandleEndif())
}

func TestProcessor_IfndefOperandProtectedFromExpansion(t *testing.T) {
	// spec.md §8's idempotent-include-guard scenario:
	// #ifndef GUARD / #define GUARD / #endif must never expand GUARD as
	// the operand of `defined` (or its ifndef/ifdef equivalent), even once
	// it becomes a defined macro.
	p, fs := newTestProcessor(t)
	pos := testPos(fs)

	require.NoError(t, p.HandleIfndef(tokenize(t, fs, "GUARD")))
	assert.True(t, p.Active())
	require.NoError(t, p.HandleDefine(tokenize(t, fs, "GUARD"), pos))
	require.NoError(t, p.HandleEndif())

	require.NoError(t, p.HandleIfndef(tokenize(t, fs, "GUARD")))
	assert.False(t, p.Active(), "guard macro is now defined, body must not re-enter")
	require.NoError(t, p.HandleEndif())
}

func TestProcessor_FunctionMacroInCondition(t *testing.T) {
	p, fs := newTestProcessor(t)
	pos := testPos(fs)
	require.NoError(t, p.HandleDefine(tokenize(t, fs, "IS_ONE(x) ((x) == 1)"), pos))

	require.NoError(t, p.HandleIf(tokenize(t, fs, "IS_ONE(1)"), pos))
	assert.True(t, p.Active())
	require.NoError(t, p.HandleEndif())

	require.NoError(t, p.HandleIf(tokenize(t, fs, "IS_ONE(2)"), pos))
	assert.False(t, p.Active())
	require.NoError(t, p.HandleEndif())
}

func TestProcessor_ElifEvaluatesOnlyUntilTaken(t *testing.T) {
	p, fs := newTestProcessor(t)
	pos := testPos(fs)

	require.NoError(t, p.HandleIf(tokenize(t, fs, "0"), pos))
	require.NoError(t, p.HandleElif(tokenize(t, fs, "1"), pos))
	assert.True(t, p.Active())
	require.NoError(t, p.HandleElif(tokenize(t, fs, "1"), pos))
	assert.False(t, p.Active())
	require.NoError(t, p.HandleElse())
	assert.False(t, p.Active())
	require.NoError(t, p.HandleEndif())
}

func TestProcessor_Include(t *testing.T) {
	p, fs := newTestProcessor(t)
	p.searchDirs = []string{"/usr/include", "/project"}
	p.fileExists = func(path string) bool { return path == "/project/foo.h" }

	res, err := p.HandleInclude(tokenize(t, fs, `"foo.h"`), false, "")
	require.NoError(t, err)
	assert.Equal(t, "foo.h", res.Path)
	assert.False(t, res.System)
	assert.Equal(t, "/project", res.FoundDir)
	assert.Equal(t, "/project/foo.h", res.FoundPath)
}

func TestProcessor_IncludeSystemAngleBrackets(t *testing.T) {
	p, fs := newTestProcessor(t)
	p.searchDirs = []string{"/usr/include"}
	p.fileExists = func(path string) bool { return path == "/usr/include/stdio.h" }

	res, err := p.HandleInclude(tokenize(t, fs, `<stdio.h>`), false, "")
	require.NoError(t, err)
	assert.True(t, res.System)
	assert.Equal(t, "stdio.h", res.Path)
}

func TestProcessor_IncludeNotFound(t *testing.T) {
	p, fs := newTestProcessor(t)
	p.searchDirs = []string{"/usr/include"}
	p.fileExists = func(string) bool { return false }

	_, err := p.HandleInclude(tokenize(t, fs, `"missing.h"`), false, "")
	assert.ErrorIs(t, err, ErrIncludeNotFound)
}

func TestProcessor_IncludeNextSkipsPastCurrentDir(t *testing.T) {
	p, fs := newTestProcessor(t)
	p.searchDirs = []string{"/a", "/b", "/c"}
	var seen []string
	p.fileExists = func(path string) bool {
		seen = append(seen, path)
		return path == "/c/x.h"
	}

	res, err := p.HandleInclude(tokenize(t, fs, `"x.h"`), true, "/b")
	require.NoError(t, err)
	assert.Equal(t, "/c", res.FoundDir)
	assert.NotContains(t, seen, "/a/x.h")
}

func TestProcessor_MalformedInclude(t *testing.T) {
	p, fs := newTestProcessor(t)
	_, err := p.HandleInclude(tokenize(t, fs, "42"), false, "")
	assert.ErrorIs(t, err, ErrMalformedInclude)
}

func TestProcessor_ErrorAndWarningReportButNeverAbort(t *testing.T) {
	p, fs := newTestProcessor(t)
	pos := testPos(fs)
	var collector diag.Collector
	p.sink = collector.Sink()

	p.HandleError(tokenize(t, fs, "boom"), pos)
	p.HandleWarning(tokenize(t, fs, "careful"), pos)

	require.Len(t, collector.Entries, 2)
	assert.Equal(t, diag.Error, collector.Entries[0].Severity)
	assert.Equal(t, diag.Warning, collector.Entries[1].Severity)
}

func TestProcessor_Line(t *testing.T) {
	p, fs := newTestProcessor(t)
	line, file, err := p.HandleLine(tokenize(t, fs, `100 "other.cc"`))
	require.NoError(t, err)
	assert.Equal(t, 100, line)
	assert.Equal(t, "other.cc", file)
}

func TestProcessor_LineWithoutFilename(t *testing.T) {
	p, fs := newTestProcessor(t)
	line, file, err := p.HandleLine(tokenize(t, fs, "7"))
	require.NoError(t, err)
	assert.Equal(t, 7, line)
	assert.Empty(t, file)
}

func TestProcessor_LineMalformed(t *testing.T) {
	p, fs := newTestProcessor(t)
	_, _, err := p.HandleLine(tokenize(t, fs, "notanumber"))
	assert.ErrorIs(t, err, ErrMalformedLine)
}

func TestProcessor_PragmaPassthrough(t *testing.T) {
	p, fs := newTestProcessor(t)
	toks := tokenize(t, fs, "once")
	got := p.HandlePragma(toks)
	assert.Equal(t, toks, got.Tokens)
}

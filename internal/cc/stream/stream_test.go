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

package stream

import (
	"fmt"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/jdefineit/jdi/diag"
	"github.com/jdefineit/jdi/internal/cc/directive"
	"github.com/jdefineit/jdi/internal/cc/lexer"
	"github.com/jdefineit/jdi/internal/cc/macro"
	"github.com/jdefineit/jdi/internal/cc/source"
)

// archiveFixture builds a Stream rooted at "main.cc" out of a txtar archive
// of named files, wiring an Opener that resolves #include targets against
// the archive's in-memory file set (spec.md §4.F's include-frame stack,
// exercised without touching the real filesystem).
func archiveFixture(t *testing.T, data string) (*Stream, *source.FileSet, *macro.Table) {
	t.Helper()
	ar := txtar.Parse([]byte(data))
	files := map[string][]byte{}
	for _, f := range ar.Files {
		files[f.Name] = f.Data
	}
	require.Contains(t, files, "main.cc")

	fs := source.NewFileSet()
	macros := macro.NewTable()
	proc := directive.NewProcessor(macros, fs, diag.Discard(), func(p string) bool {
		_, ok := files[p]
		return ok
	})
	proc.AddSearchDirectory(".")

	opener := func(p string) (*source.Reader, string, error) {
		data, ok := files[p]
		if !ok {
			return nil, "", fmt.Errorf("no such fixture file %q", p)
		}
		return source.NewReader(fs.Intern(p), data), path.Dir(p), nil
	}

	root := source.NewReader(fs.Intern("main.cc"), files["main.cc"])
	s := New(fs, diag.Discard(), macros, proc, opener, root, ".")
	return s, fs, macros
}

func drainIdents(t *testing.T, s *Stream) []string {
	t.Helper()
	var names []string
	for {
		tok, err := s.Next()
		require.NoError(t, err)
		if tok.Kind == lexer.EOF {
			return names
		}
		if tok.Kind == lexer.Identifier {
			names = append(names, tok.Text)
		}
	}
}

func TestStream_PlainTokensPassThrough(t *testing.T) {
	s, _, _ := archiveFixture(t, `
-- main.cc --
alpha beta gamma
`)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, drainIdents(t, s))
}

func TestStream_ObjectMacroExpansion(t *testing.T) {
	s, _, _ := archiveFixture(t, `
-- main.cc --
#define FOO bar
FOO baz
`)
	assert.Equal(t, []string{"bar", "baz"}, drainIdents(t, s))
}

func TestStream_FunctionMacroExpansion(t *testing.T) {
	s, _, _ := archiveFixture(t, `
-- main.cc --
#define WRAP(x) pre x post
WRAP(mid)
`)
	assert.Equal(t, []string{"pre", "mid", "post"}, drainIdents(t, s))
}

func TestStream_ConditionalSkipsInactiveBranch(t *testing.T) {
	s, _, _ := archiveFixture(t, `
-- main.cc --
#if 0
hidden
#else
visible
#endif
`)
	assert.Equal(t, []string{"visible"}, drainIdents(t, s))
}

func TestStream_IncludeRecursesIntoHeader(t *testing.T) {
	s, _, _ := archiveFixture(t, `
-- main.cc --
before
#include "foo.h"
after
-- foo.h --
fromheader
`)
	assert.Equal(t, []string{"before", "fromheader", "after"}, drainIdents(t, s))
}

func TestStream_NestedMacroSelfReferenceDoesNotRecurse(t *testing.T) {
	s, _, _ := archiveFixture(t, `
-- main.cc --
#define A A plus
A
`)
	// spec.md §4.D: a macro whose own expansion contains itself stops
	// after one substitution, leaving the inner occurrence unexpanded.
	assert.Equal(t, []string{"A", "plus"}, drainIdents(t, s))
}

func TestStream_UndefRemovesMacro(t *testing.T) {
	s, _, _ := archiveFixture(t, `
-- main.cc --
#define FOO bar
#undef FOO
FOO
`)
	assert.Equal(t, []string{"FOO"}, drainIdents(t, s))
}

func TestStream_PragmaIsCollectedNotEmitted(t *testing.T) {
	s, _, _ := archiveFixture(t, `
-- main.cc --
before
#pragma once
after
`)
	assert.Equal(t, []string{"before", "after"}, drainIdents(t, s))
	pragmas := s.TakePragmas()
	require.Len(t, pragmas, 1)
	assert.Equal(t, "once", pragmas[0].Tokens[0].Text)
}

func TestStream_KeywordPromotion(t *testing.T) {
	s, _, _ := archiveFixture(t, `
-- main.cc --
class Foo
`)
	tok, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, lexer.KwClass, tok.Kind)
}

func TestStream_LookaheadRestoresConsumedTokens(t *testing.T) {
	s, _, _ := archiveFixture(t, `
-- main.cc --
alpha beta gamma
`)
	restore := s.Lookahead()
	first, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "alpha", first.Text)
	second, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "beta", second.Text)
	restore()

	replay, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "alpha", replay.Text)
	replay2, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "beta", replay2.Text)
	replay3, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "gamma", replay3.Text)
}

func TestStream_LookaheadScopesNest(t *testing.T) {
	s, _, _ := archiveFixture(t, `
-- main.cc --
alpha beta gamma delta
`)
	outer := s.Lookahead()

	first, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "alpha", first.Text)

	inner := s.Lookahead()
	second, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "beta", second.Text)
	third, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "gamma", third.Text)
	inner()

	// The inner scope replayed "beta" and "gamma"; consume them again so
	// they're folded into the still-active outer scope before it restores.
	replayBeta, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "beta", replayBeta.Text)
	replayGamma, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "gamma", replayGamma.Text)

	outer()

	// Restoring the outer scope must replay everything seen since it
	// began, inner scope included: alpha, beta, gamma, then the stream
	// continues normally into delta.
	for _, want := range []string{"alpha", "beta", "gamma", "delta"} {
		got, err := s.Next()
		require.NoError(t, err)
		assert.Equal(t, want, got.Text)
	}
}

func TestStream_LookaheadScopesNestWithoutIntermediateConsumption(t *testing.T) {
	s, _, _ := archiveFixture(t, `
-- main.cc --
alpha beta
`)
	outer := s.Lookahead()
	first, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "alpha", first.Text)

	inner := s.Lookahead()
	second, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "beta", second.Text)

	// Restore both scopes back-to-back with no intervening Next() calls;
	// the outer restore must still reproduce the full original order.
	inner()
	outer()

	replayAlpha, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "alpha", replayAlpha.Text)
	replayBeta, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "beta", replayBeta.Text)
}

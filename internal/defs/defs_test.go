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

package defs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_DeclareAndLookupUnqualified(t *testing.T) {
	s := NewStore()
	id := s.Declare(Symbol{Name: "count", Kind: KindVariable, DeclScope: s.Global(), TypeText: "int"})

	got, ok := s.Symbol(id)
	require.True(t, ok)
	assert.Equal(t, "count", got.Name)

	found, ok := s.LookupUnqualified(s.Global(), "count")
	require.True(t, ok)
	assert.Equal(t, id, found)
}

func TestStore_LookupUnqualifiedWalksParentChain(t *testing.T) {
	s := NewStore()
	s.Declare(Symbol{Name: "global_flag", Kind: KindVariable, DeclScope: s.Global()})

	ns := s.NewScope(s.Global(), "widgets")
	s.Declare(Symbol{Name: "local_flag", Kind: KindVariable, DeclScope: ns})

	// A name declared only at global scope is still visible from a nested
	// scope via the parent-index chain.
	_, ok := s.LookupUnqualified(ns, "global_flag")
	assert.True(t, ok)

	// But a nested scope's own symbols are not visible from the parent.
	_, ok = s.LookupUnqualified(s.Global(), "local_flag")
	assert.False(t, ok)
}

func TestStore_RedeclarationShadowsEarlierSymbol(t *testing.T) {
	s := NewStore()
	first := s.Declare(Symbol{Name: "x", Kind: KindVariable, DeclScope: s.Global(), TypeText: "int"})
	second := s.Declare(Symbol{Name: "x", Kind: KindVariable, DeclScope: s.Global(), TypeText: "double"})

	found, ok := s.LookupUnqualified(s.Global(), "x")
	require.True(t, ok)
	assert.Equal(t, second, found)
	assert.NotEqual(t, first, found)
}

func TestStore_QualifiedLookupThroughNamespace(t *testing.T) {
	s := NewStore()
	ns := s.NewScope(s.Global(), "ns")
	nsSym := s.Declare(Symbol{Name: "ns", Kind: KindNamespace, DeclScope: s.Global(), MemberScope: ns})
	_ = nsSym

	classScope := s.NewScope(ns, "Widget")
	s.Declare(Symbol{Name: "Widget", Kind: KindClass, DeclScope: ns, MemberScope: classScope})
	member := s.Declare(Symbol{Name: "count", Kind: KindVariable, DeclScope: classScope, TypeText: "int"})

	found, ok := s.LookupQualified("ns::Widget::count")
	require.True(t, ok)
	assert.Equal(t, member, found)

	assert.Equal(t, "ns::Widget::count", s.QualifiedName(member))
}

func TestStore_LookupQualifiedMissingSegmentFails(t *testing.T) {
	s := NewStore()
	ns := s.NewScope(s.Global(), "ns")
	s.Declare(Symbol{Name: "ns", Kind: KindNamespace, DeclScope: s.Global(), MemberScope: ns})

	_, ok := s.LookupQualified("ns::DoesNotExist")
	assert.False(t, ok)
}

func TestStore_WalkVisitsNestedScopesDepthFirst(t *testing.T) {
	s := NewStore()
	ns := s.NewScope(s.Global(), "ns")
	s.Declare(Symbol{Name: "ns", Kind: KindNamespace, DeclScope: s.Global(), MemberScope: ns})
	s.Declare(Symbol{Name: "helper", Kind: KindFunction, DeclScope: ns})
	s.Declare(Symbol{Name: "top", Kind: KindVariable, DeclScope: s.Global()})

	var names []string
	s.Walk(func(qualified string, sym Symbol) {
		names = append(names, qualified)
	})

	assert.Equal(t, []string{"ns", "ns::helper", "top"}, names)
}

func TestStore_MergeFromFoldsSharedNamespace(t *testing.T) {
	a := NewStore()
	aNS := a.NewScope(a.Global(), "shared")
	a.Declare(Symbol{Name: "shared", Kind: KindNamespace, DeclScope: a.Global(), MemberScope: aNS})
	a.Declare(Symbol{Name: "fromA", Kind: KindVariable, DeclScope: aNS})

	b := NewStore()
	bNS := b.NewScope(b.Global(), "shared")
	b.Declare(Symbol{Name: "shared", Kind: KindNamespace, DeclScope: b.Global(), MemberScope: bNS})
	b.Declare(Symbol{Name: "fromB", Kind: KindVariable, DeclScope: bNS})

	merged := NewStore()
	merged.MergeFrom(a, 0)
	merged.MergeFrom(b, 0)

	_, ok := merged.LookupQualified("shared::fromA")
	assert.True(t, ok)
	_, ok = merged.LookupQualified("shared::fromB")
	assert.True(t, ok)

	var nsCount int
	merged.Walk(func(name string, sym Symbol) {
		if sym.Kind == KindNamespace && name == "shared" {
			nsCount++
		}
	})
	assert.Equal(t, 1, nsCount, "merging the same namespace twice must not duplicate it")
}

func TestStore_MergeFromSkipsGlobalPrefix(t *testing.T) {
	a := NewStore()
	a.Declare(Symbol{Name: "builtin_int", Kind: KindPrimitiveType, DeclScope: a.Global()})
	skip := a.GlobalSymbolCount()
	a.Declare(Symbol{Name: "real_decl", Kind: KindVariable, DeclScope: a.Global()})

	merged := NewStore()
	merged.Declare(Symbol{Name: "builtin_int", Kind: KindPrimitiveType, DeclScope: merged.Global()})
	merged.MergeFrom(a, skip)

	_, ok := merged.LookupUnqualified(merged.Global(), "real_decl")
	assert.True(t, ok)

	var builtinCount int
	merged.Walk(func(name string, sym Symbol) {
		if name == "builtin_int" {
			builtinCount++
		}
	})
	assert.Equal(t, 1, builtinCount, "the skipped built-in prefix must not be duplicated")
}

func TestKind_StringNamesEveryKind(t *testing.T) {
	for k := KindUnknown; k <= KindQualifier; k++ {
		assert.NotEmpty(t, k.String())
	}
}

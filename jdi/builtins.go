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

package jdi

import (
	"github.com/jdefineit/jdi/internal/cc/lexer"
	"github.com/jdefineit/jdi/internal/cc/macro"
	"github.com/jdefineit/jdi/internal/cc/source"
	"github.com/jdefineit/jdi/internal/defs"
)

// builtinFileName is the synthetic file every built-in macro/type position
// attributes to, matching the original's convention of crediting built-ins
// to the environment rather than any real translation unit.
const builtinFileName = "<builtin>"

// primitiveTypes, modifierKeywords and qualifierKeywords are EXP-3's
// built-in type seed, taken from original_source/src/System/builtins.cpp's
// concrete list: fundamental types, sign/size modifiers and declaration
// qualifiers.
var (
	primitiveTypes   = []string{"void", "bool", "char", "int", "float", "double", "wchar_t", "..."}
	modifierKeywords = []string{"signed", "unsigned", "short", "long"}
	qualifierKeywords = []string{"const", "volatile", "static", "register", "inline"}
)

// seedBuiltins populates macros and store with the built-in macro and type
// seed spec.md §6 and EXP-3 require, run once at session construction.
func seedBuiltins(fs *source.FileSet, macros *macro.Table, store *defs.Store) {
	pos := builtinPos(fs)

	defineObject(macros, fs, "true", tok(lexer.IntDecimal, "1", pos))
	defineObject(macros, fs, "false", tok(lexer.IntDecimal, "0", pos))
	// __FILE__ and __LINE__ are dynamic in a real preprocessor (they expand
	// to the current position at the point of use). This table-driven
	// expander has no hook for a position-dependent replacement list, so
	// they are seeded as placeholder literals; true dynamic substitution is
	// a known gap, not attempted here.
	defineObject(macros, fs, "__FILE__", tok(lexer.StringLiteral, `""`, pos))
	defineObject(macros, fs, "__LINE__", tok(lexer.IntDecimal, "0", pos))
	defineObject(macros, fs, "__extension__")
	defineFunction(macros, fs, "__attribute__", []string{"x"}, false)
	defineFunction(macros, fs, "__typeof__", []string{"x"}, false, tok(lexer.KwInt, "int", pos))

	for _, name := range modifierKeywords {
		store.Declare(defs.Symbol{Name: name, Kind: defs.KindModifier, DeclScope: store.Global(), Pos: toDefsPos(fs, pos)})
	}
	for _, name := range qualifierKeywords {
		store.Declare(defs.Symbol{Name: name, Kind: defs.KindQualifier, DeclScope: store.Global(), Pos: toDefsPos(fs, pos)})
	}
	for _, name := range primitiveTypes {
		store.Declare(defs.Symbol{Name: name, Kind: defs.KindPrimitiveType, DeclScope: store.Global(), TypeText: name, Pos: toDefsPos(fs, pos)})
	}
}

func builtinPos(fs *source.FileSet) source.Position {
	return source.Position{Files: fs, File: fs.Intern(builtinFileName), Cursor: source.CursorInit}
}

func tok(kind lexer.Kind, text string, pos source.Position) lexer.Token {
	return lexer.Token{Kind: kind, Text: text, Pos: pos}
}

func defineObject(macros *macro.Table, fs *source.FileSet, name string, body ...lexer.Token) {
	rec, err := macro.NewObjectLike(name, body)
	if err != nil {
		// Built-in bodies are fixed and known-valid; a failure here would be
		// a programming error in this file, not a user-facing condition.
		panic(err)
	}
	macros.Define(rec, nil, builtinPos(fs))
}

func defineFunction(macros *macro.Table, fs *source.FileSet, name string, params []string, variadic bool, body ...lexer.Token) {
	rec, err := macro.NewFunctionLike(name, params, variadic, body)
	if err != nil {
		panic(err)
	}
	macros.Define(rec, nil, builtinPos(fs))
}

func toDefsPos(fs *source.FileSet, pos source.Position) defs.Position {
	return defs.Position{File: fs.Name(pos.File), Line: pos.Cursor.Line, Col: pos.Cursor.Column}
}

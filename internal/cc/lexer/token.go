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

// Package lexer provides the preprocessor-resolved lexical analyzer for C++
// source code: a raw token scanner (this package's Scanner) plus the token
// kind vocabulary shared by the macro expander, directive processor and
// expression engine.
//
// Lexer classifies tokens into kinds (for e.g. easier filtering of comments
// or whitespace) and tracks their location in the source code (for accurate
// error reporting). Raw scanning never expands macros and never promotes an
// identifier to a keyword; both happen later, in the token stream façade.
package lexer

import "github.com/jdefineit/jdi/internal/cc/source"

// Kind partitions tokens the way spec.md §3 requires.
type Kind int

const (
	Invalid Kind = iota
	EOF
	Newline

	Identifier

	IntDecimal
	IntHex
	IntOctal
	IntBinary
	FloatLiteral
	CharLiteral
	StringLiteral

	// Punctuators: one kind per C++ operator/separator, plus the digraph-like
	// sequences spec.md §3 calls out explicitly.
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Semicolon
	Colon
	ColonColon
	Question
	Tilde
	Dot
	DotStar
	Arrow
	ArrowStar
	Ellipsis
	Hash
	HashHash

	Plus
	Minus
	Star
	Slash
	Percent
	Amp
	Pipe
	Caret
	Bang
	Assign
	Less
	Greater
	ShiftLeft
	ShiftRight

	Eq
	Ne
	Le
	Ge
	AmpAmp
	PipePipe
	PlusPlus
	MinusMinus

	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign
	AmpAssign
	PipeAssign
	CaretAssign
	ShiftLeftAssign
	ShiftRightAssign

	// Keywords. These are never produced by Scanner.Next directly; a
	// consumer (the token stream façade) promotes an Identifier token to its
	// keyword Kind on first sight, per spec.md §3, so that macro expansion
	// always sees plain identifiers.
	KwClass
	KwStruct
	KwEnum
	KwUnion
	KwNamespace
	KwTemplate
	KwTypename
	KwTypedef
	KwUsing
	KwOperator
	KwSizeof
	KwDecltype
	KwPublic
	KwPrivate
	KwProtected
	KwConstCast
	KwDynamicCast
	KwReinterpretCast
	KwStaticCast
	KwNew
	KwDelete
	KwAsm
	KwExtern
	KwStatic
	KwInline
	KwConst
	KwVolatile
	KwRegister
	KwMutable
	KwVirtual
	KwExplicit
	KwFriend
	KwSigned
	KwUnsigned
	KwShort
	KwLong
	KwVoid
	KwBool
	KwChar
	KwInt
	KwFloat
	KwDouble
	KwWcharT
	KwTrue
	KwFalse
	KwReturn
	KwIf
	KwElse
	KwFor
	KwWhile
	KwDo
	KwSwitch
	KwCase
	KwDefault
	KwBreak
	KwContinue
	KwGoto
	KwThis
	KwVirtualEnd // sentinel, not emitted
)

// keywordKinds maps a spelling to its promoted Kind. Populated once; treated
// as a process-wide read-only table, per spec.md §9's design note on global
// symbol tables.
var keywordKinds = map[string]Kind{
	"class": KwClass, "struct": KwStruct, "enum": KwEnum, "union": KwUnion,
	"namespace": KwNamespace, "template": KwTemplate, "typename": KwTypename,
	"typedef": KwTypedef, "using": KwUsing, "operator": KwOperator,
	"sizeof": KwSizeof, "decltype": KwDecltype,
	"public": KwPublic, "private": KwPrivate, "protected": KwProtected,
	"const_cast": KwConstCast, "dynamic_cast": KwDynamicCast,
	"reinterpret_cast": KwReinterpretCast, "static_cast": KwStaticCast,
	"new": KwNew, "delete": KwDelete, "asm": KwAsm, "extern": KwExtern,
	"static": KwStatic, "inline": KwInline, "const": KwConst,
	"volatile": KwVolatile, "register": KwRegister, "mutable": KwMutable,
	"virtual": KwVirtual, "explicit": KwExplicit, "friend": KwFriend,
	"signed": KwSigned, "unsigned": KwUnsigned, "short": KwShort, "long": KwLong,
	"void": KwVoid, "bool": KwBool, "char": KwChar, "int": KwInt,
	"float": KwFloat, "double": KwDouble, "wchar_t": KwWcharT,
	"true": KwTrue, "false": KwFalse,
	"return": KwReturn, "if": KwIf, "else": KwElse, "for": KwFor,
	"while": KwWhile, "do": KwDo, "switch": KwSwitch, "case": KwCase,
	"default": KwDefault, "break": KwBreak, "continue": KwContinue,
	"goto": KwGoto, "this": KwThis,
}

// KeywordKind returns the keyword Kind for text, and true if text is a C++
// keyword. Used by consumers (the token stream façade) to promote an
// Identifier token, never by Scanner itself.
func KeywordKind(text string) (Kind, bool) {
	k, ok := keywordKinds[text]
	return k, ok
}

// Token is a single preprocessing token: a kind, the source slice it was
// scanned (or synthesized, e.g. by stringize) from, and its source position.
type Token struct {
	Kind Kind
	Text string
	Pos  source.Position
	// Def is resolved by the surrounding declaration parser/definition
	// store once a token's identifier has been looked up; the lexer itself
	// never sets it. Declared as `any` to avoid importing the definitions
	// package from here (source → lexer → macro/expr → defs is the intended
	// dependency direction; defs must not depend back on lexer's identity).
	Def any
}

// EOFToken is the synthetic token yielded once a Reader is exhausted.
func EOFToken(pos source.Position) Token { return Token{Kind: EOF, Pos: pos} }

// IsLiteral reports whether k is one of the literal kinds (string/char/
// integer/float).
func (k Kind) IsLiteral() bool {
	switch k {
	case IntDecimal, IntHex, IntOctal, IntBinary, FloatLiteral, CharLiteral, StringLiteral:
		return true
	default:
		return false
	}
}

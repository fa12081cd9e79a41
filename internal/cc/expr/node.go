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

// Package expr implements the expression builder and evaluator (components
// G/H of spec.md §4): a precedence-climbing parser over the full C++
// operator table, producing an owned, acyclic AST, plus a recursive
// evaluator producing a typed constant Value.
//
// Grounded on language/internal/cc/parser/expr.go in the teacher, which
// models only the 6-operator subset gazelle needs to resolve #if branches
// (!, (, defined, ||, &&, comparisons) over an int-only Eval. This package
// generalizes the same tagged-variant-with-Eval-method shape to the full
// spec.md §4.G precedence table and the int/float/string/none Value sum
// type of spec.md §4.H.
package expr

import (
	"fmt"
	"strings"

	"github.com/jdefineit/jdi/internal/cc/source"
)

// Node is an expression AST node: a tagged variant, owned uniquely by its
// parent, acyclic (spec.md §9's design note on variant-shaped ASTs).
type Node interface {
	fmt.Stringer
	exprNode()
	Pos() source.Position
}

type base struct {
	pos source.Position
}

func (b base) Pos() source.Position { return b.pos }

// IntLit is an integer literal, already parsed per its base (spec.md §4.H);
// the suffix (U/L/LL in any case/order) does not affect the evaluated
// width, which is always the widest available signed integer.
type IntLit struct {
	base
	Value int64
	Text  string
}

// FloatLit is a floating-point literal, parsed as a double.
type FloatLit struct {
	base
	Value float64
	Text  string
}

// StringLit is a string literal, kept as its (unescaped) content.
type StringLit struct {
	base
	Value string
}

// Ident is a bare identifier — typically a macro name left unexpanded by
// `#if`'s "replace remaining identifiers with 0" rule, or a parameter name
// in a template non-type argument context.
type Ident struct {
	base
	Name string
}

// UnaryOp identifies a spec.md §4.G prefix operator.
type UnaryOp int

const (
	UnaryPlus UnaryOp = iota
	UnaryMinus
	UnaryNot
	UnaryBitNot
	UnaryDeref
	UnaryAddr
	UnaryPreInc
	UnaryPreDec
	UnarySizeof
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryPlus:
		return "+"
	case UnaryMinus:
		return "-"
	case UnaryNot:
		return "!"
	case UnaryBitNot:
		return "~"
	case UnaryDeref:
		return "*"
	case UnaryAddr:
		return "&"
	case UnaryPreInc:
		return "++"
	case UnaryPreDec:
		return "--"
	case UnarySizeof:
		return "sizeof"
	default:
		return "?"
	}
}

// Unary is a prefix-operator expression.
type Unary struct {
	base
	Op UnaryOp
	X  Node
}

// BinaryOp identifies a spec.md §4.G infix operator, including the
// compound-assignment forms (wired uniformly to their matching binary
// operator's semantics per spec.md §9's open-question resolution).
type BinaryOp int

const (
	BinDotStar BinaryOp = iota
	BinArrowStar
	BinMul
	BinDiv
	BinMod
	BinAdd
	BinSub
	BinShl
	BinShr
	BinLt
	BinLe
	BinGt
	BinGe
	BinEq
	BinNe
	BinBitAnd
	BinBitXor
	BinBitOr
	BinLogAnd
	BinLogOr
	BinAssign
	BinAddAssign
	BinSubAssign
	BinMulAssign
	BinDivAssign
	BinModAssign
	BinShlAssign
	BinShrAssign
	BinAndAssign
	BinXorAssign
	BinOrAssign
	BinComma
)

var binaryOpText = map[BinaryOp]string{
	BinDotStar: ".*", BinArrowStar: "->*",
	BinMul: "*", BinDiv: "/", BinMod: "%",
	BinAdd: "+", BinSub: "-",
	BinShl: "<<", BinShr: ">>",
	BinLt: "<", BinLe: "<=", BinGt: ">", BinGe: ">=",
	BinEq: "==", BinNe: "!=",
	BinBitAnd: "&", BinBitXor: "^", BinBitOr: "|",
	BinLogAnd: "&&", BinLogOr: "||",
	BinAssign: "=", BinAddAssign: "+=", BinSubAssign: "-=",
	BinMulAssign: "*=", BinDivAssign: "/=", BinModAssign: "%=",
	BinShlAssign: "<<=", BinShrAssign: ">>=",
	BinAndAssign: "&=", BinXorAssign: "^=", BinOrAssign: "|=",
	BinComma: ",",
}

func (op BinaryOp) String() string { return binaryOpText[op] }

// IsCompoundAssign reports whether op is one of the compound-assignment
// operators (everything except plain `=`).
func (op BinaryOp) IsCompoundAssign() bool {
	switch op {
	case BinAddAssign, BinSubAssign, BinMulAssign, BinDivAssign, BinModAssign,
		BinShlAssign, BinShrAssign, BinAndAssign, BinXorAssign, BinOrAssign:
		return true
	default:
		return false
	}
}

// underlyingOp returns the plain binary operator a compound-assignment
// operator is wired to, per spec.md §9: "wire all of them uniformly to the
// semantics of the matching binary operator applied to the left-hand
// side's value".
func (op BinaryOp) underlyingOp() BinaryOp {
	switch op {
	case BinAddAssign:
		return BinAdd
	case BinSubAssign:
		return BinSub
	case BinMulAssign:
		return BinMul
	case BinDivAssign:
		return BinDiv
	case BinModAssign:
		return BinMod
	case BinShlAssign:
		return BinShl
	case BinShrAssign:
		return BinShr
	case BinAndAssign:
		return BinBitAnd
	case BinXorAssign:
		return BinBitXor
	case BinOrAssign:
		return BinBitOr
	default:
		return op
	}
}

// Binary is an infix-operator expression.
type Binary struct {
	base
	Op   BinaryOp
	L, R Node
}

// Ternary is the `?:` conditional operator (right-to-left, spec.md §4.G).
type Ternary struct {
	base
	Cond, Then, Else Node
}

// Paren is an explicit parenthesized grouping, kept (rather than discarded)
// so String() can round-trip source text faithfully.
type Paren struct {
	base
	X Node
}

// Call is a postfix function/macro-application expression: `name(args...)`.
type Call struct {
	base
	Callee Node
	Args   []Node
}

// Cast is a C-style cast `(type) x`. The preprocessor grammar for #if
// conditions never admits casts (ISO C++ [cpp.cond]p1 restricts #if
// expressions to non-cast constant expressions), so the builder never
// produces this node from #if text; it exists so a future, fuller
// declaration parser can build one directly for template non-type
// arguments and array-bound expressions, which do admit casts.
type Cast struct {
	base
	TypeName string
	X        Node
}

// Defined is the `defined X` / `defined(X)` operator, special-cased by the
// builder per spec.md §4.G/§4.H: it is never replaced by the "identifiers
// become 0" #if rule, unlike every other bare identifier.
type Defined struct {
	base
	Name string
}

func (n IntLit) exprNode()    {}
func (n FloatLit) exprNode()  {}
func (n StringLit) exprNode() {}
func (n Ident) exprNode()     {}
func (n Unary) exprNode()     {}
func (n Binary) exprNode()    {}
func (n Ternary) exprNode()   {}
func (n Paren) exprNode()     {}
func (n Call) exprNode()      {}
func (n Cast) exprNode()      {}
func (n Defined) exprNode()   {}

func (n IntLit) String() string    { return n.Text }
func (n FloatLit) String() string  { return n.Text }
func (n StringLit) String() string { return fmt.Sprintf("%q", n.Value) }
func (n Ident) String() string     { return n.Name }
func (n Unary) String() string {
	if n.Op == UnarySizeof {
		return "sizeof(" + n.X.String() + ")"
	}
	return n.Op.String() + n.X.String()
}
func (n Binary) String() string  { return fmt.Sprintf("%s %s %s", n.L, n.Op, n.R) }
func (n Ternary) String() string { return fmt.Sprintf("%s ? %s : %s", n.Cond, n.Then, n.Else) }
func (n Paren) String() string   { return "(" + n.X.String() + ")" }
func (n Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", n.Callee, strings.Join(args, ", "))
}
func (n Cast) String() string    { return fmt.Sprintf("(%s)%s", n.TypeName, n.X) }
func (n Defined) String() string { return fmt.Sprintf("defined(%s)", n.Name) }

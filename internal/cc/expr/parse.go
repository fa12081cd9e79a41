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

package expr

import (
	"strconv"
	"strings"

	"github.com/jdefineit/jdi/internal/cc/lexer"
	"github.com/jdefineit/jdi/internal/cc/source"
)

// precedence levels, highest-binds-tightest, per spec.md §4.G. Contiguous,
// with every operator at a level sharing it, as the spec requires. This
// table (like the teacher's exprKeywordsPrecedence) is a process-wide
// read-only table, built once (spec.md §9).
type precedence int

const (
	precComma precedence = iota
	precAssign            // right-to-left
	precTernary           // right-to-left
	precLogOr
	precLogAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precPtrToMember // .*  ->*
	precUnary
	precPostfix
)

var binaryPrecedence = map[lexer.Kind]struct {
	prec  precedence
	op    BinaryOp
	right bool
}{
	lexer.Comma:           {precComma, BinComma, false},
	lexer.Assign:          {precAssign, BinAssign, true},
	lexer.PlusAssign:      {precAssign, BinAddAssign, true},
	lexer.MinusAssign:     {precAssign, BinSubAssign, true},
	lexer.StarAssign:      {precAssign, BinMulAssign, true},
	lexer.SlashAssign:     {precAssign, BinDivAssign, true},
	lexer.PercentAssign:   {precAssign, BinModAssign, true},
	lexer.AmpAssign:       {precAssign, BinAndAssign, true},
	lexer.PipeAssign:      {precAssign, BinOrAssign, true},
	lexer.CaretAssign:     {precAssign, BinXorAssign, true},
	lexer.ShiftLeftAssign: {precAssign, BinShlAssign, true},
	lexer.ShiftRightAssign: {precAssign, BinShrAssign, true},
	lexer.PipePipe:        {precLogOr, BinLogOr, false},
	lexer.AmpAmp:          {precLogAnd, BinLogAnd, false},
	lexer.Pipe:            {precBitOr, BinBitOr, false},
	lexer.Caret:           {precBitXor, BinBitXor, false},
	lexer.Amp:             {precBitAnd, BinBitAnd, false},
	lexer.Eq:              {precEquality, BinEq, false},
	lexer.Ne:              {precEquality, BinNe, false},
	lexer.Less:            {precRelational, BinLt, false},
	lexer.Le:              {precRelational, BinLe, false},
	lexer.Greater:         {precRelational, BinGt, false},
	lexer.Ge:              {precRelational, BinGe, false},
	lexer.ShiftLeft:       {precShift, BinShl, false},
	lexer.ShiftRight:      {precShift, BinShr, false},
	lexer.Plus:            {precAdditive, BinAdd, false},
	lexer.Minus:           {precAdditive, BinSub, false},
	lexer.Star:            {precMultiplicative, BinMul, false},
	lexer.Slash:           {precMultiplicative, BinDiv, false},
	lexer.Percent:         {precMultiplicative, BinMod, false},
	lexer.DotStar:         {precPtrToMember, BinDotStar, false},
	lexer.ArrowStar:       {precPtrToMember, BinArrowStar, false},
}

// Parser builds an AST over an already-macro-expanded token slice (spec.md
// §4.G, component G). It is used both by the directive processor to parse
// #if/#elif conditions and by the (minimal) declaration parser to parse
// template non-type arguments and array-bound expressions.
type Parser struct {
	toks []lexer.Token
	pos  int
	fs   *source.FileSet
}

// NewParser constructs a Parser over toks, resolving synthetic positions
// (e.g. for an implied end-of-expression) against fs.
func NewParser(toks []lexer.Token, fs *source.FileSet) *Parser {
	return &Parser{toks: toks, fs: fs}
}

func (p *Parser) peek() (lexer.Token, bool) {
	if p.pos >= len(p.toks) {
		return lexer.Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *Parser) next() (lexer.Token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}
	return tok, ok
}

// AtEnd reports whether every token has been consumed.
func (p *Parser) AtEnd() bool { return p.pos >= len(p.toks) }

// Parse reads one full expression at the lowest precedence (including the
// comma operator), per spec.md §4.G. On an unexpected token, it returns the
// partially built tree and lets the caller decide whether to diagnose
// (spec.md §4.G's "Failure" clause).
func (p *Parser) Parse() (Node, error) {
	return p.parsePrecedence(precComma)
}

// ParseNoComma reads one expression above the comma operator — the shape
// macro argument lists and template arguments need, where a bare `,` ends
// the expression rather than being consumed as the comma operator.
func (p *Parser) ParseNoComma() (Node, error) {
	return p.parsePrecedence(precAssign)
}

func (p *Parser) parsePrecedence(minPrec precedence) (Node, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return lhs, err
	}

	for {
		tok, ok := p.peek()
		if !ok {
			return lhs, nil
		}

		if tok.Kind == lexer.Question && precTernary >= minPrec {
			p.next()
			thenExpr, err := p.parsePrecedence(precComma)
			if err != nil {
				return lhs, err
			}
			if _, ok := p.expect(lexer.Colon); !ok {
				return Ternary{base{tok.Pos}, lhs, thenExpr, nil}, nil
			}
			// `?:` is right-to-left: the else branch parses at precTernary,
			// not precTernary+1, so a chained `a?b:c?d:e` nests as
			// `a?b:(c?d:e)`.
			elseExpr, err := p.parsePrecedence(precTernary)
			if err != nil {
				return Ternary{base{tok.Pos}, lhs, thenExpr, elseExpr}, err
			}
			lhs = Ternary{base{tok.Pos}, lhs, thenExpr, elseExpr}
			continue
		}

		rule, known := binaryPrecedence[tok.Kind]
		if !known || rule.prec < minPrec {
			return lhs, nil
		}
		p.next()

		nextMin := rule.prec + 1
		if rule.right {
			nextMin = rule.prec
		}
		rhs, err := p.parsePrecedence(nextMin)
		if err != nil {
			return Binary{base{tok.Pos}, rule.op, lhs, rhs}, err
		}
		lhs = Binary{base{tok.Pos}, rule.op, lhs, rhs}
	}
}

func (p *Parser) expect(k lexer.Kind) (lexer.Token, bool) {
	tok, ok := p.peek()
	if !ok || tok.Kind != k {
		return lexer.Token{}, false
	}
	p.next()
	return tok, true
}

// parseUnary handles the spec.md §4.G prefix operators, recursing at
// precUnary, then falls through to a primary/postfix expression.
func (p *Parser) parseUnary() (Node, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, errUnexpectedEnd
	}

	if tok.Kind == lexer.Identifier && tok.Text == "defined" {
		p.next()
		return p.parseDefined(tok.Pos)
	}
	if tok.Kind == lexer.Identifier && tok.Text == "sizeof" || tok.Kind == lexer.KwSizeof {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return Unary{base{tok.Pos}, UnarySizeof, x}, err
		}
		return Unary{base{tok.Pos}, UnarySizeof, x}, nil
	}

	if op, ok := prefixOp(tok.Kind); ok {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return Unary{base{tok.Pos}, op, x}, err
		}
		return Unary{base{tok.Pos}, op, x}, nil
	}

	return p.parsePostfix()
}

func prefixOp(k lexer.Kind) (UnaryOp, bool) {
	switch k {
	case lexer.Plus:
		return UnaryPlus, true
	case lexer.Minus:
		return UnaryMinus, true
	case lexer.Bang:
		return UnaryNot, true
	case lexer.Tilde:
		return UnaryBitNot, true
	case lexer.Star:
		return UnaryDeref, true
	case lexer.Amp:
		return UnaryAddr, true
	case lexer.PlusPlus:
		return UnaryPreInc, true
	case lexer.MinusMinus:
		return UnaryPreDec, true
	default:
		return 0, false
	}
}

// parsePostfix reads a primary expression, then greedily applies postfix
// operators (call, and ++/-- — the index/member forms require a type system
// this engine doesn't have, so they are left to the surrounding declaration
// parser, which is a Non-goal collaborator per spec.md §1).
func (p *Parser) parsePostfix() (Node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return x, err
	}
	for {
		tok, ok := p.peek()
		if !ok {
			return x, nil
		}
		switch tok.Kind {
		case lexer.LParen:
			p.next()
			args, err := p.parseArgList()
			x = Call{base{tok.Pos}, x, args}
			if err != nil {
				return x, err
			}
		case lexer.PlusPlus, lexer.MinusMinus:
			p.next()
			op := UnaryPreInc
			if tok.Kind == lexer.MinusMinus {
				op = UnaryPreDec
			}
			x = Unary{base{tok.Pos}, op, x}
		default:
			return x, nil
		}
	}
}

func (p *Parser) parseArgList() ([]Node, error) {
	if tok, ok := p.peek(); ok && tok.Kind == lexer.RParen {
		p.next()
		return nil, nil
	}
	var args []Node
	for {
		arg, err := p.parsePrecedence(precAssign)
		args = append(args, arg)
		if err != nil {
			return args, err
		}
		tok, ok := p.next()
		if !ok {
			return args, errUnexpectedEnd
		}
		if tok.Kind == lexer.RParen {
			return args, nil
		}
		if tok.Kind != lexer.Comma {
			return args, errUnexpected(tok)
		}
	}
}

// parseDefined parses `defined X` or `defined(X)`, per spec.md §4.E's
// special-casing of the `defined` operator in #if expression mode.
func (p *Parser) parseDefined(pos source.Position) (Node, error) {
	paren := false
	if tok, ok := p.peek(); ok && tok.Kind == lexer.LParen {
		p.next()
		paren = true
	}
	tok, ok := p.next()
	if !ok || tok.Kind != lexer.Identifier {
		return Defined{base{pos}, ""}, errUnexpected(tok)
	}
	if paren {
		if _, ok := p.expect(lexer.RParen); !ok {
			return Defined{base{pos}, tok.Text}, errUnexpectedEnd
		}
	}
	return Defined{base{pos}, tok.Text}, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	tok, ok := p.next()
	if !ok {
		return nil, errUnexpectedEnd
	}
	switch tok.Kind {
	case lexer.LParen:
		x, err := p.parsePrecedence(precComma)
		if err != nil {
			return Paren{base{tok.Pos}, x}, err
		}
		if _, ok := p.expect(lexer.RParen); !ok {
			return Paren{base{tok.Pos}, x}, errUnexpectedEnd
		}
		return Paren{base{tok.Pos}, x}, nil
	case lexer.IntDecimal, lexer.IntHex, lexer.IntOctal, lexer.IntBinary:
		v, err := parseIntLiteral(tok.Text, tok.Kind)
		if err != nil {
			return IntLit{base{tok.Pos}, 0, tok.Text}, err
		}
		return IntLit{base{tok.Pos}, v, tok.Text}, nil
	case lexer.FloatLiteral:
		v, err := strconv.ParseFloat(strings.TrimRight(tok.Text, "fFlL"), 64)
		if err != nil {
			return FloatLit{base{tok.Pos}, 0, tok.Text}, err
		}
		return FloatLit{base{tok.Pos}, v, tok.Text}, nil
	case lexer.StringLiteral:
		return StringLit{base{tok.Pos}, unquoteStringLiteral(tok.Text)}, nil
	case lexer.CharLiteral:
		return IntLit{base{tok.Pos}, int64(charLiteralValue(tok.Text)), tok.Text}, nil
	case lexer.Identifier:
		return Ident{base{tok.Pos}, tok.Text}, nil
	default:
		if kw, isKw := keywordLiteralText[tok.Kind]; isKw {
			return Ident{base{tok.Pos}, kw}, nil
		}
		return nil, errUnexpected(tok)
	}
}

// keywordLiteralText lets a handful of promoted keywords (true/false) still
// parse as identifiers in expression context, matching spec.md §6's
// `true=1`/`false=0` built-in macro seeding — by the time an expression is
// built these are ordinarily macro-substituted already, but the builder
// tolerates seeing the keyword directly too.
var keywordLiteralText = map[lexer.Kind]string{
	lexer.KwTrue:  "true",
	lexer.KwFalse: "false",
}

// parseIntLiteral parses text per its scanned base, stripping any u/U/l/L
// suffix permutation; spec.md §4.H: the suffix never affects evaluated
// width, which is always the widest available signed integer (int64 here).
func parseIntLiteral(text string, kind lexer.Kind) (int64, error) {
	digits := strings.TrimRight(text, "uUlL")
	base := 10
	switch kind {
	case lexer.IntHex:
		digits = digits[2:] // strip 0x/0X
		base = 16
	case lexer.IntBinary:
		digits = digits[2:] // strip 0b/0B
		base = 2
	case lexer.IntOctal:
		base = 8
	}
	if digits == "" {
		return 0, nil
	}
	return strconv.ParseInt(digits, base, 64)
}

// unquoteStringLiteral strips the surrounding quotes (and any encoding
// prefix) and resolves the handful of C escape sequences spec.md's lexical
// rules recognize, without attempting a full universal-character-name
// translation (a Non-goal, spec.md §1).
func unquoteStringLiteral(text string) string {
	body := text
	if i := strings.IndexByte(body, '"'); i > 0 {
		body = body[i:]
	}
	if len(body) >= 2 && body[0] == '"' {
		body = body[1 : len(body)-1]
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' || i+1 >= len(body) {
			b.WriteByte(body[i])
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case '\\', '"', '\'':
			b.WriteByte(body[i])
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}

func charLiteralValue(text string) byte {
	s := unquoteStringLiteral(strings.Replace(text, "'", "\"", -1))
	if len(s) == 0 {
		return 0
	}
	return s[0]
}

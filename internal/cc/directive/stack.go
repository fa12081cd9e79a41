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

// Package directive implements the directive processor (spec.md §4.E,
// component E): dispatch of #define/#undef/#if family/#include/#error/
// #warning/#line/#pragma, and the conditional-compilation stack.
//
// Grounded on language/internal/cc/parser/directive.go and parser.go's
// parseDirective/parseIfBlock/parseDefineDirective family in the teacher,
// which collect an entire #if/#elif/#else/#endif block into one IfBlock AST
// (so gazelle can walk every branch looking for includes, via
// CollectReachableIncludes). This module's stream façade instead drives
// directives one line at a time as they're encountered during a token pull,
// so this package is a flat, stateful dispatcher over a conditional stack
// rather than a block-collecting AST builder — the stack model spec.md §3
// actually specifies, and the shape the teacher's own IfBlock.String()
// degenerates to when only the reachable branch is ever examined.
package directive

// Frame is one level of the conditional-compilation stack (spec.md §3):
// Active means this branch's body is currently being emitted; MayActivate
// means no branch in this #if/#elif chain has been taken yet, so a later
// #elif or #else may still activate.
type Frame struct {
	Active      bool
	MayActivate bool
	sawElse     bool
}

// Stack is the conditional-compilation stack spec.md §8 requires return to
// empty at end-of-code of every included file.
type Stack struct {
	frames []Frame
}

// Active reports whether tokens at the current nesting level should be
// emitted: true only when every enclosing frame, all the way to the top of
// the stack, is itself active (spec.md §5's token-stream determinism
// depends on this being consulted before every emitted token).
func (s *Stack) Active() bool {
	if len(s.frames) == 0 {
		return true
	}
	return s.frames[len(s.frames)-1].Active
}

// Depth returns the current nesting depth (0 at top level).
func (s *Stack) Depth() int { return len(s.frames) }

// PushIf opens a new #if/#ifdef/#ifndef frame. conditionTrue is the already
// -evaluated condition for this branch.
func (s *Stack) PushIf(conditionTrue bool) {
	parentActive := s.Active()
	active := parentActive && conditionTrue
	frame := Frame{Active: active, MayActivate: parentActive && !active}
	s.frames = append(s.frames, frame)
}

// Elif transitions the top frame on #elif/#elifdef/#elifndef, per spec.md
// §3's transition table: a branch already taken stays closed regardless of
// this condition's value; a not-yet-taken branch activates iff this
// condition is true and the enclosing level is itself active.
func (s *Stack) Elif(conditionTrue bool) error {
	top, err := s.top()
	if err != nil {
		return err
	}
	if top.sawElse {
		return ErrElifAfterElse
	}
	if top.Active {
		top.Active = false
		top.MayActivate = false
		return nil
	}
	if !top.MayActivate {
		return nil
	}
	parentActive := s.parentActive()
	if parentActive && conditionTrue {
		top.Active = true
		top.MayActivate = false
	}
	return nil
}

// Else transitions the top frame on #else: activates iff no prior branch in
// this chain was taken and the enclosing level is active.
func (s *Stack) Else() error {
	top, err := s.top()
	if err != nil {
		return err
	}
	if top.sawElse {
		return ErrDuplicateElse
	}
	top.sawElse = true
	if top.Active {
		top.Active = false
		top.MayActivate = false
		return nil
	}
	if top.MayActivate {
		top.Active = s.parentActive()
		top.MayActivate = false
	}
	return nil
}

// Endif pops the top frame.
func (s *Stack) Endif() error {
	if len(s.frames) == 0 {
		return ErrUnmatchedEndif
	}
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

func (s *Stack) top() (*Frame, error) {
	if len(s.frames) == 0 {
		return nil, ErrNoOpenConditional
	}
	return &s.frames[len(s.frames)-1], nil
}

func (s *Stack) parentActive() bool {
	if len(s.frames) < 2 {
		return true
	}
	return s.frames[len(s.frames)-2].Active
}

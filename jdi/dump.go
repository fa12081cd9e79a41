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
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jdefineit/jdi/internal/defs"
)

// DumpDefinitionsProto serializes every declared symbol into a
// structpb.Struct (one entry per fully-qualified name) and marshals it with
// the wire format, the binary alternative to DumpDefinitions' text-sink
// form (EXP-2: "mirrors language/cc/proto.go's use of the same library for
// structured output").
func (s *Session) DumpDefinitionsProto() ([]byte, error) {
	fields := map[string]any{}
	s.store.Walk(func(name string, sym defs.Symbol) {
		fields[name] = map[string]any{
			"kind":      sym.Kind.String(),
			"type":      sym.TypeText,
			"file":      sym.Pos.File,
			"line":      float64(sym.Pos.Line),
			"col":       float64(sym.Pos.Col),
			"has_scope": sym.MemberScope != 0,
		}
	})

	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

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
	"errors"
	"fmt"

	"github.com/jdefineit/jdi/internal/cc/lexer"
)

var errUnexpectedEnd = errors.New("unexpected end of expression")

func errUnexpected(tok lexer.Token) error {
	return fmt.Errorf("unexpected token %q at %v", tok.Text, tok.Pos)
}

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

import "errors"

var (
	// ErrUnmatchedEndif reports a #endif with no corresponding open
	// conditional.
	ErrUnmatchedEndif = errors.New("#endif without matching #if")
	// ErrNoOpenConditional reports a #elif/#else with no corresponding open
	// conditional.
	ErrNoOpenConditional = errors.New("directive requires an open conditional block")
	// ErrElifAfterElse reports a #elif encountered after this chain's #else.
	ErrElifAfterElse = errors.New("#elif after #else")
	// ErrDuplicateElse reports a second #else in the same conditional chain.
	ErrDuplicateElse = errors.New("duplicate #else")
	// ErrMalformedInclude reports an #include/#include_next whose argument
	// is neither "..." nor <...>.
	ErrMalformedInclude = errors.New("malformed #include: expected \"path\" or <path>")
	// ErrIncludeNotFound reports a #include/#include_next whose target file
	// could not be located on any search directory.
	ErrIncludeNotFound = errors.New("included file not found")
	// ErrMalformedLine reports a #line directive whose argument isn't a
	// decimal integer (optionally followed by a quoted filename).
	ErrMalformedLine = errors.New("malformed #line directive")
)

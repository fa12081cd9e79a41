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

// Command jdidump drives a jdi.Session over one or more translation units
// and prints every definition it extracts. Source arguments may be plain
// filesystem paths, doublestar glob patterns, or Bazel labels of the form
// //path/to/pkg:file.cc, resolved against -workspace_root.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bazelbuild/bazel-gazelle/label"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/jdefineit/jdi"
	"github.com/jdefineit/jdi/diag"
	"github.com/jdefineit/jdi/internal/defs"
)

// stringList accumulates repeated occurrences of a flag, the same shape as
// index/vendor/main.go's selectorsList.
type stringList struct{ values []string }

func (l *stringList) String() string { return strings.Join(l.values, ",") }
func (l *stringList) Set(value string) error {
	l.values = append(l.values, value)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("jdidump", flag.ContinueOnError)

	var searchDirs stringList
	var defines stringList
	fs.Var(&searchDirs, "I", "Additional search directory for #include resolution (repeatable)")
	fs.Var(&defines, "D", "Predefine a macro as NAME or NAME=VALUE (repeatable)")
	workspaceRoot := fs.String("workspace_root", ".", "Root directory Bazel labels are resolved against")
	format := fs.String("format", "text", "Definition dump format: text or proto")
	verbose := fs.Bool("verbose", false, "Enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() == 0 {
		fs.Usage()
		fmt.Fprintln(os.Stderr, "jdidump requires at least one source path, glob, or Bazel label")
		return 2
	}

	paths, err := resolveSources(fs.Args(), *workspaceRoot)
	if err != nil {
		log.Printf("jdidump: %v", err)
		return 2
	}

	collector := &diag.Collector{}
	configure := func(s *jdi.Session) {
		for _, dir := range searchDirs.values {
			if err := s.AddSearchDirectory(dir); err != nil && *verbose {
				log.Printf("jdidump: search directory %q: %v", dir, err)
			}
		}
		for _, d := range defines.values {
			name, value, hasValue := strings.Cut(d, "=")
			if !hasValue {
				value = "1"
			}
			if err := s.AddMacro(name, value); err != nil && *verbose {
				log.Printf("jdidump: -D %s: %v", d, err)
			}
		}
	}

	session, results := jdi.ParseFiles(paths, collector.Sink(), configure)

	var failed bool
	for _, r := range results {
		if r.Err != nil {
			failed = true
			log.Printf("jdidump: %s: %v", r.Path, r.Err)
		}
	}
	for _, entry := range collector.Entries {
		failed = failed || entry.Severity == diag.Error
		log.Printf("jdidump: %s: %s", entry.Pos, entry.Message)
	}

	if err := dump(session, *format, os.Stdout); err != nil {
		log.Printf("jdidump: %v", err)
		return 1
	}

	if failed {
		return 1
	}
	return 0
}

// resolveSources expands each source argument into one or more filesystem
// paths: a literal path is passed through, a string containing a glob
// metacharacter is expanded with doublestar, and a //pkg:target-style Bazel
// label is resolved against workspaceRoot (EXP-2's CLI-driver wiring note).
func resolveSources(args []string, workspaceRoot string) ([]string, error) {
	var out []string
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "//") || strings.HasPrefix(arg, ":"):
			lbl, err := label.Parse(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid label %q: %w", arg, err)
			}
			out = append(out, filepath.Join(workspaceRoot, lbl.Pkg, lbl.Name))
		case strings.ContainsAny(arg, "*?["):
			matches, err := doublestar.FilepathGlob(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid glob %q: %w", arg, err)
			}
			out = append(out, matches...)
		default:
			out = append(out, arg)
		}
	}
	return out, nil
}

func dump(session *jdi.Session, format string, w *os.File) error {
	switch format {
	case "proto":
		data, err := session.DumpDefinitionsProto()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "text":
		bw := bufio.NewWriter(w)
		session.DumpDefinitions(func(name string, sym defs.Symbol) {
			fmt.Fprintf(bw, "%-10s %-40s %s %s\n", sym.Kind, name, sym.TypeText, sym.Pos)
		})
		return bw.Flush()
	default:
		return fmt.Errorf("unknown -format %q, want text or proto", format)
	}
}

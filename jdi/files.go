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
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jdefineit/jdi/diag"
	"github.com/jdefineit/jdi/internal/cc/source"
	"github.com/jdefineit/jdi/internal/collections"
)

// ParseFilesResult reports the outcome of parsing one translation unit
// under ParseFiles.
type ParseFilesResult struct {
	Path string
	Err  error
}

// ParseFiles parses every path in paths as an independent translation
// unit — each gets its own Session (own macro table, own conditional
// stack), bounded-concurrently via errgroup, per spec.md §5's rule that
// concurrency exists only *across* sessions, never within one. Once every
// unit has been parsed, their definition stores are folded serially into
// one merged Session, which is returned alongside a per-file result slice.
//
// configure, if non-nil, is applied to every per-file Session (and to the
// merged one) right after construction — the place to call
// AddSearchDirectory or AddMacro with whatever configuration every
// translation unit in the batch shares.
//
// Every per-file Session reports through sink, same as a single-file
// Session would — a `#error` directive, a macro redefinition conflict, or a
// malformed declaration inside any one file is not silently dropped just
// because it was parsed as part of a batch. Since the per-file sessions run
// concurrently (spec.md §5: concurrency only *across* sessions), sink is
// wrapped in a mutex here so a caller's non-concurrency-safe Sink (e.g.
// diag.Collector.Sink(), which appends to a plain slice) can still be
// passed in safely.
func ParseFiles(paths []string, sink diag.Sink, configure func(*Session)) (*Session, []ParseFilesResult) {
	sessions := make([]*Session, len(paths))
	results := make([]ParseFilesResult, len(paths))

	var mu sync.Mutex
	safeSink := func(severity diag.Severity, message string, pos source.Position) {
		mu.Lock()
		defer mu.Unlock()
		sink(severity, message, pos)
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i].Path = path
			sess := NewSession(safeSink)
			if configure != nil {
				configure(sess)
			}

			f, err := os.Open(path)
			if err != nil {
				results[i].Err = err
				return nil
			}
			defer f.Close()

			if err := sess.ParseStream(f, path); err != nil {
				results[i].Err = err
				return nil
			}
			sessions[i] = sess
			return nil
		})
	}
	// Every g.Go closure reports its own failure through results[i].Err and
	// always returns nil, so g.Wait()'s error is always nil; the per-file
	// outcomes are the real report.
	_ = g.Wait()

	merged := NewSession(sink)
	if configure != nil {
		configure(merged)
	}
	builtinCount := merged.store.GlobalSymbolCount()
	parsed := collections.FilterSlice(sessions, func(sess *Session) bool { return sess != nil })
	for _, sess := range parsed {
		merged.store.MergeFrom(sess.store, builtinCount)
	}
	return merged, results
}

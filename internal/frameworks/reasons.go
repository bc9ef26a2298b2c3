// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package frameworks

import (
	"fmt"
	"log"
	"strings"
)

// maxDisplayedReasons bounds how many backend reasons are shown to the user;
// the rest are debug-logged and counted. Truncation is display only, the
// backend decision always considers the full set.
const maxDisplayedReasons = 5

// ReasonSet is an insertion-ordered set of human-readable reasons a backend
// is required. Growth of this set is the sole signal that a backend is
// wanted.
type ReasonSet struct {
	seen  map[string]struct{}
	order []string
}

func NewReasonSet() *ReasonSet {
	return &ReasonSet{seen: map[string]struct{}{}}
}

func (s *ReasonSet) Add(reason string) {
	if _, ok := s.seen[reason]; ok {
		return
	}
	s.seen[reason] = struct{}{}
	s.order = append(s.order, reason)
}

func (s *ReasonSet) Empty() bool {
	return len(s.order) == 0
}

// List returns every reason in insertion order.
func (s *ReasonSet) List() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Describe renders the reasons for display: the first few verbatim, the tail
// debug-logged, and a counted remainder line.
func (s *ReasonSet) Describe() string {
	if s.Empty() {
		return ""
	}

	shown := s.order
	var remainder int
	if len(shown) > maxDisplayedReasons {
		for _, reason := range shown[maxDisplayedReasons:] {
			log.Printf("backend reason: %s", reason)
		}
		remainder = len(shown) - maxDisplayedReasons
		shown = shown[:maxDisplayedReasons]
	}

	var b strings.Builder
	for _, reason := range shown {
		fmt.Fprintf(&b, " • %s\n", reason)
	}
	if remainder > 0 {
		fmt.Fprintf(&b, " • and %d other reasons, use --debug to see more\n", remainder)
	}

	return b.String()
}

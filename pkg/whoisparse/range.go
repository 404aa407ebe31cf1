// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package whoisparse

import (
	"fmt"
	"regexp"

	"github.com/wingedpig/ipowners/pkg/model"
	"github.com/wingedpig/ipowners/pkg/util/ipcodec"
)

// First "a.b.c.d - e.f.g.h" in a declaration; anything after it is ignored
var rangePattern = regexp.MustCompile(`(\d+\.\d+\.\d+\.\d+)\s*-\s*(\d+\.\d+\.\d+\.\d+)`)

// ParseRange parses a range declaration value like "31.90.0.0 - 31.91.255.255".
// Reversed ranges are swapped so Start <= End.
func ParseRange(s string) (ParsedRange, error) {
	m := rangePattern.FindStringSubmatch(s)
	if m == nil {
		return ParsedRange{}, fmt.Errorf("%w: no dotted-quad pair in %q", model.ErrInvalidRange, s)
	}

	start, err := ipcodec.ParseIPv4(m[1])
	if err != nil {
		return ParsedRange{}, fmt.Errorf("%w: start: %v", model.ErrInvalidRange, err)
	}
	end, err := ipcodec.ParseIPv4(m[2])
	if err != nil {
		return ParsedRange{}, fmt.Errorf("%w: end: %v", model.ErrInvalidRange, err)
	}

	if start > end {
		start, end = end, start
	}

	return ParsedRange{Start: start, End: end}, nil
}

// SelectBlock picks the extraction source for a target:
// the narrowest block containing an IPv4 target (first wins on ties),
// else the first block with any range declaration, else the whole text.
func SelectBlock(blocks []Block, target model.Target) Selection {
	if target.IsIPv4 {
		best := -1
		for i := range blocks {
			r := blocks[i].Range
			if r == nil || !r.Contains(target.Addr) {
				continue
			}
			// Strictly smaller keeps the first candidate on equal size
			if best == -1 || r.Size() < blocks[best].Range.Size() {
				best = i
			}
		}
		if best != -1 {
			return Selection{Tier: TierContaining, Index: best, Block: &blocks[best]}
		}
	}

	for i := range blocks {
		if blocks[i].Declaration != nil {
			return Selection{Tier: TierFallback, Index: i, Block: &blocks[i]}
		}
	}

	return Selection{Tier: TierWholeText, Index: -1}
}

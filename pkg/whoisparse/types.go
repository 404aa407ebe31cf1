// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package whoisparse interprets raw WHOIS text: it splits a response into
// blank-line delimited blocks, picks the block that most specifically
// describes the queried address, and extracts ownership fields from it.
package whoisparse

import (
	"fmt"

	"github.com/wingedpig/ipowners/pkg/util/ipcodec"
)

// Field is one "name: value" header line.
// Lines without a colon have an empty Name and never match a field rule.
type Field struct {
	Name  string
	Value string
}

// Block is a contiguous group of non-blank lines from a response
type Block struct {
	Fields      []Field
	Declaration *Field       // First NetRange/inetnum line, nil if absent
	Range       *ParsedRange // Parsed from Declaration, nil if it did not parse
}

// ParsedRange is an inclusive IPv4 range with Start <= End
type ParsedRange struct {
	Start uint32
	End   uint32
}

// Size returns End - Start
func (r ParsedRange) Size() uint32 {
	return r.End - r.Start
}

// Contains reports whether ip lies within the range
func (r ParsedRange) Contains(ip uint32) bool {
	return ipcodec.IsInRange(ip, r.Start, r.End)
}

func (r ParsedRange) String() string {
	return fmt.Sprintf("%s - %s", ipcodec.FormatIPv4(r.Start), ipcodec.FormatIPv4(r.End))
}

// Tier says which rule chose the extraction source
type Tier int

const (
	TierContaining Tier = iota // Narrowest block containing the target
	TierFallback               // First block with any range declaration
	TierWholeText              // No block declares a range
)

func (t Tier) String() string {
	switch t {
	case TierContaining:
		return "containing"
	case TierFallback:
		return "fallback"
	default:
		return "whole-text"
	}
}

// Selection is the outcome of block selection
type Selection struct {
	Tier  Tier
	Index int    // Index into the block slice, -1 for TierWholeText
	Block *Block // nil for TierWholeText
}

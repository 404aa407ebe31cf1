// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package whoisparse

import (
	"strings"
)

// Field names that declare an address allocation
var rangeFieldNames = []string{"NetRange", "inetnum"}

// SplitBlocks splits a raw response into blank-line delimited blocks.
// Carriage returns are stripped and empty blocks are dropped.
func SplitBlocks(text string) []Block {
	text = strings.ReplaceAll(text, "\r", "")

	var blocks []Block
	var current *Block

	for _, line := range strings.Split(text, "\n") {
		// Blank line ends the current block
		if strings.TrimSpace(line) == "" {
			if current != nil {
				blocks = append(blocks, finishBlock(current))
			}
			current = nil
			continue
		}

		if current == nil {
			current = &Block{}
		}
		current.Fields = append(current.Fields, parseAttribute(line))
	}

	// Handle final block if text doesn't end with a blank line
	if current != nil {
		blocks = append(blocks, finishBlock(current))
	}

	return blocks
}

// finishBlock locates the range declaration and parses it
func finishBlock(b *Block) Block {
	for i := range b.Fields {
		if matchName(b.Fields[i].Name, rangeFieldNames) {
			b.Declaration = &b.Fields[i]
			break
		}
	}

	if b.Declaration != nil {
		if r, err := ParseRange(b.Declaration.Value); err == nil {
			b.Range = &r
		}
	}

	return *b
}

// parseAttribute parses a line into name and value at the first colon.
// Format: "key:    value" or "key: value"
func parseAttribute(line string) Field {
	idx := strings.Index(line, ":")
	if idx == -1 {
		return Field{Value: strings.TrimSpace(line)}
	}

	return Field{
		Name:  strings.TrimSpace(line[:idx]),
		Value: strings.TrimSpace(line[idx+1:]),
	}
}

// matchName compares a field name case-insensitively against a set of names
func matchName(name string, names []string) bool {
	for _, n := range names {
		if strings.EqualFold(name, n) {
			return true
		}
	}
	return false
}

// flatten returns every field of every block, in order
func flatten(blocks []Block) []Field {
	var n int
	for _, b := range blocks {
		n += len(b.Fields)
	}
	all := make([]Field, 0, n)
	for _, b := range blocks {
		all = append(all, b.Fields...)
	}
	return all
}

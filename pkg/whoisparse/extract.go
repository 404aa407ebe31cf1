// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package whoisparse

import (
	"strings"

	"github.com/wingedpig/ipowners/pkg/model"
)

var (
	ownerFieldNames       = []string{"NetName", "netname"}
	descriptionFieldNames = []string{"descr", "Description", "OrgName"}
)

// DescriptionSeparator joins multiple description values
const DescriptionSeparator = " | "

// Fields holds the three extracted ownership fields
type Fields struct {
	NetRange    string
	Owner       string
	Description string
}

// Extract pulls ownership fields from source, re-scanning all for any
// field that source leaves empty. Missing fields stay empty strings.
func Extract(source, all []Field) Fields {
	f := Fields{
		NetRange:    firstValue(source, rangeFieldNames),
		Owner:       firstValue(source, ownerFieldNames),
		Description: joinValues(source, descriptionFieldNames),
	}

	if f.NetRange == "" {
		f.NetRange = firstValue(all, rangeFieldNames)
	}
	if f.Owner == "" {
		f.Owner = firstValue(all, ownerFieldNames)
	}
	if f.Description == "" {
		f.Description = joinValues(all, descriptionFieldNames)
	}

	return f
}

// Result is the full interpretation of one response
type Result struct {
	Blocks    []Block
	Selection Selection
	Record    model.OwnershipRecord
}

// Interpret runs block splitting, selection and extraction for one target
func Interpret(target model.Target, text string) Result {
	blocks := SplitBlocks(text)
	all := flatten(blocks)

	sel := SelectBlock(blocks, target)
	source := all
	if sel.Block != nil {
		source = sel.Block.Fields
	}

	f := Extract(source, all)

	return Result{
		Blocks:    blocks,
		Selection: sel,
		Record: model.OwnershipRecord{
			Index:       target.Index,
			Target:      target.Value,
			NetRange:    f.NetRange,
			Owner:       f.Owner,
			Description: f.Description,
		},
	}
}

// firstValue returns the first non-empty value whose name matches
func firstValue(fields []Field, names []string) string {
	for _, f := range fields {
		if f.Value != "" && matchName(f.Name, names) {
			return f.Value
		}
	}
	return ""
}

// joinValues joins every non-empty matching value in order
func joinValues(fields []Field, names []string) string {
	var values []string
	for _, f := range fields {
		if f.Value != "" && matchName(f.Name, names) {
			values = append(values, f.Value)
		}
	}
	return strings.Join(values, DescriptionSeparator)
}

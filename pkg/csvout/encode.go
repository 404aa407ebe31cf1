// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package csvout encodes ownership records as CSV and serializes their output.
package csvout

import (
	"strings"

	"github.com/wingedpig/ipowners/pkg/model"
)

// Header is the first line of every output file
const Header = "ip,net_range,owner,description"

// EncodeRow renders a record as one CSV line, newline included.
// Every field is quoted and embedded quotes are doubled.
func EncodeRow(rec model.OwnershipRecord) string {
	var b strings.Builder
	for i, field := range rec.Fields() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	return b.String()
}

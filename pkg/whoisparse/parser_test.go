// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package whoisparse

import (
	"errors"
	"testing"

	"github.com/wingedpig/ipowners/pkg/model"
	"github.com/wingedpig/ipowners/pkg/util/ipcodec"
)

// ARIN style: coarse allocation first, then a more specific reassignment
const arinNested = `
#
# ARIN WHOIS data and services are subject to the Terms of Use
#

NetRange:       1.2.0.0 - 1.2.255.255
CIDR:           1.2.0.0/16
NetName:        COARSE-NET
OrgName:        Coarse Holdings

NetRange:       1.2.3.0 - 1.2.3.255
CIDR:           1.2.3.0/24
NetName:        SPECIFIC-NET
OrgName:        Specific Customer LLC

OrgName:        Unrelated Org Block
`

const ripeSingle = "% This is the RIPE Database query service.\r\n" +
	"inetnum:        192.0.2.0 - 192.0.2.255\r\n" +
	"netname:        TEST-NET\r\n" +
	"descr:          Example Ltd\r\n" +
	"descr:          London\r\n" +
	"country:        GB\r\n"

func mustTarget(t *testing.T, s string) model.Target {
	t.Helper()
	tgt := model.Target{Value: s}
	if n, err := ipcodec.ParseIPv4(s); err == nil {
		tgt.IsIPv4 = true
		tgt.Addr = n
	}
	return tgt
}

func TestSplitBlocks(t *testing.T) {
	blocks := SplitBlocks(arinNested)

	if len(blocks) != 4 {
		t.Fatalf("Expected 4 blocks, got %d", len(blocks))
	}

	// Comment block has no declaration
	if blocks[0].Declaration != nil {
		t.Errorf("comment block should have no declaration, got %+v", blocks[0].Declaration)
	}

	if blocks[1].Declaration == nil || blocks[1].Declaration.Value != "1.2.0.0 - 1.2.255.255" {
		t.Errorf("block 1 declaration: got %+v", blocks[1].Declaration)
	}
	if blocks[2].Range == nil {
		t.Fatal("block 2 should have a parsed range")
	}
	if got := blocks[2].Range.String(); got != "1.2.3.0 - 1.2.3.255" {
		t.Errorf("block 2 range: got %s", got)
	}
	if blocks[3].Declaration != nil {
		t.Error("trailing org block should have no declaration")
	}
}

func TestSplitBlocksCRLFAndWhitespaceLines(t *testing.T) {
	text := "a: 1\r\nb: 2\r\n   \t\r\nc: 3\r\n\r\n\r\n\r\nd: 4"
	blocks := SplitBlocks(text)

	if len(blocks) != 3 {
		t.Fatalf("Expected 3 blocks, got %d", len(blocks))
	}
	if len(blocks[0].Fields) != 2 {
		t.Errorf("Expected 2 fields in first block, got %d", len(blocks[0].Fields))
	}
	for _, b := range blocks {
		for _, f := range b.Fields {
			if f.Value == "" || f.Value[len(f.Value)-1] == '\r' {
				t.Errorf("carriage return not stripped: %q", f.Value)
			}
		}
	}
}

func TestSplitBlocksEmpty(t *testing.T) {
	for _, text := range []string{"", "\n\n\n", "  \r\n \t \n"} {
		if blocks := SplitBlocks(text); len(blocks) != 0 {
			t.Errorf("SplitBlocks(%q): expected no blocks, got %d", text, len(blocks))
		}
	}
}

func TestDeclarationIsFirstMatchCaseInsensitive(t *testing.T) {
	text := "INETNUM: 10.0.0.0 - 10.0.0.255\nnetrange: 10.1.0.0 - 10.1.0.255\n"
	blocks := SplitBlocks(text)
	if len(blocks) != 1 {
		t.Fatalf("Expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Declaration == nil || blocks[0].Declaration.Value != "10.0.0.0 - 10.0.0.255" {
		t.Errorf("got declaration %+v", blocks[0].Declaration)
	}
}

func TestParseAttribute(t *testing.T) {
	tests := []struct {
		line      string
		wantName  string
		wantValue string
	}{
		{"NetRange:       8.0.0.0 - 8.127.255.255", "NetRange", "8.0.0.0 - 8.127.255.255"},
		{"descr: a: b", "descr", "a: b"},
		{"  netname :  X  ", "netname", "X"},
		{"Comment:", "Comment", ""},
		{"free text without colon", "", "free text without colon"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			f := parseAttribute(tt.line)
			if f.Name != tt.wantName || f.Value != tt.wantValue {
				t.Errorf("got (%q, %q), want (%q, %q)", f.Name, f.Value, tt.wantName, tt.wantValue)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{
			name:      "valid range",
			input:     "192.0.2.0 - 192.0.2.255",
			wantStart: "192.0.2.0",
			wantEnd:   "192.0.2.255",
		},
		{
			name:      "no spaces",
			input:     "10.0.0.0-10.255.255.255",
			wantStart: "10.0.0.0",
			wantEnd:   "10.255.255.255",
		},
		{
			name:      "reversed is swapped",
			input:     "10.0.0.255 - 10.0.0.0",
			wantStart: "10.0.0.0",
			wantEnd:   "10.0.0.255",
		},
		{
			name:      "trailing text ignored",
			input:     "1.0.0.0 - 1.0.0.255 (ASSIGNED) 2.0.0.0 - 2.0.0.255",
			wantStart: "1.0.0.0",
			wantEnd:   "1.0.0.255",
		},
		{
			name:      "single address range",
			input:     "8.8.8.8 - 8.8.8.8",
			wantStart: "8.8.8.8",
			wantEnd:   "8.8.8.8",
		},
		{
			name:    "octet out of range",
			input:   "1.2.3.0 - 1.2.3.999",
			wantErr: true,
		},
		{
			name:    "cidr only",
			input:   "200.0.0.0/16",
			wantErr: true,
		},
		{
			name:    "ipv6",
			input:   "2001:db8:: - 2001:db8::ffff",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseRange(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", r)
				}
				if !errors.Is(err, model.ErrInvalidRange) {
					t.Errorf("got error %v, want ErrInvalidRange", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRange failed: %v", err)
			}
			if got := ipcodec.FormatIPv4(r.Start); got != tt.wantStart {
				t.Errorf("start: got %s, want %s", got, tt.wantStart)
			}
			if got := ipcodec.FormatIPv4(r.End); got != tt.wantEnd {
				t.Errorf("end: got %s, want %s", got, tt.wantEnd)
			}
			if r.Start > r.End {
				t.Errorf("start > end: %v", r)
			}
		})
	}
}

func TestParsedRangeSize(t *testing.T) {
	r, err := ParseRange("1.2.3.0 - 1.2.3.255")
	if err != nil {
		t.Fatal(err)
	}
	if r.Size() != 255 {
		t.Errorf("got size %d, want 255", r.Size())
	}

	r, err = ParseRange("1.2.0.0 - 1.2.255.255")
	if err != nil {
		t.Fatal(err)
	}
	if r.Size() != 65535 {
		t.Errorf("got size %d, want 65535", r.Size())
	}
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package targets reads the list of identifiers to resolve.
package targets

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wingedpig/ipowners/pkg/model"
	"github.com/wingedpig/ipowners/pkg/util/ipcodec"
)

// Load reads targets from a file, one per line
func Load(path string) ([]model.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads one target per line. Lines are trimmed; blank lines and
// lines starting with # are skipped. Indexes follow the kept lines.
func Parse(r io.Reader) ([]model.Target, error) {
	var list []model.Target

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		list = append(list, New(len(list), line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	if len(list) == 0 {
		return nil, model.ErrNoTargets
	}
	return list, nil
}

// New builds a target, classifying it as IPv4 when it is a strict dotted quad
func New(index int, value string) model.Target {
	t := model.Target{Value: value, Index: index}
	if addr, err := ipcodec.ParseIPv4(value); err == nil {
		t.IsIPv4 = true
		t.Addr = addr
	}
	return t
}

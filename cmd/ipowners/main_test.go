package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/ipowners/pkg/config"
)

// fakeWhois answers 8.8.8.8 with a nested ARIN-style response and
// everything else with a single RIPE-style block
const fakeWhois = `#!/bin/sh
case "$1" in
8.8.8.8)
cat <<'EOF'
NetRange:       8.0.0.0 - 8.255.255.255
NetName:        LVLT-ORG-8-8
OrgName:        Level 3 Parent, LLC

NetRange:       8.8.8.0 - 8.8.8.255
NetName:        GOGL
OrgName:        Google LLC
EOF
;;
*)
cat <<'EOF'
inetnum:        193.0.0.0 - 193.0.7.255
netname:        RIPE-NCC
descr:          RIPE Network Coordination Centre
descr:          Amsterdam
EOF
;;
esac
`

func setup(t *testing.T, targets string) (dir, bin, input string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	dir = t.TempDir()
	bin = filepath.Join(dir, "whois")
	require.NoError(t, os.WriteFile(bin, []byte(fakeWhois), 0o755))
	input = filepath.Join(dir, "targets.txt")
	require.NoError(t, os.WriteFile(input, []byte(targets), 0o644))
	return dir, bin, input
}

func execute(args ...string) (string, error) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEndToEnd(t *testing.T) {
	dir, bin, input := setup(t, "# scope\n8.8.8.8\n\n193.0.0.1\nexample.org\n")
	output := filepath.Join(dir, "owners.csv")

	_, err := execute("-i", input, "-o", output, "-t", "2", "-w", "10", "--whois-bin", bin)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	want := `ip,net_range,owner,description
"8.8.8.8","8.8.8.0 - 8.8.8.255","GOGL","Google LLC"
"193.0.0.1","193.0.0.0 - 193.0.7.255","RIPE-NCC","RIPE Network Coordination Centre | Amsterdam"
"example.org","193.0.0.0 - 193.0.7.255","RIPE-NCC","RIPE Network Coordination Centre | Amsterdam"
`
	assert.Equal(t, want, string(data))
}

func TestEndToEndWithCache(t *testing.T) {
	dir, bin, input := setup(t, "8.8.8.8\n")
	output := filepath.Join(dir, "owners.csv")
	cacheDir := filepath.Join(dir, "cache")

	_, err := execute("-i", input, "-o", output, "--whois-bin", bin, "--cache-db", cacheDir)
	require.NoError(t, err)
	first, err := os.ReadFile(output)
	require.NoError(t, err)

	// A second run must not need the binary
	_, err = execute("-i", input, "-o", output, "--whois-bin", filepath.Join(dir, "missing"), "--cache-db", cacheDir)
	require.NoError(t, err)
	second, err := os.ReadFile(output)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestMissingInput(t *testing.T) {
	out, err := execute("-o", filepath.Join(t.TempDir(), "owners.csv"))
	require.Error(t, err)
	assert.Contains(t, out, "Usage:")

	_, err = execute("-i", filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestNoUsableTargets(t *testing.T) {
	dir, bin, input := setup(t, "# nothing\n\n")
	output := filepath.Join(dir, "owners.csv")

	out, err := execute("-i", input, "-o", output, "--whois-bin", bin)
	require.Error(t, err)
	assert.Contains(t, out, "Usage:")

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "no output is created for an empty target list")
}

func TestConfigFileWithFlagOverride(t *testing.T) {
	dir, bin, input := setup(t, "193.0.0.1\n")
	output := filepath.Join(dir, "owners.csv")
	cfgPath := filepath.Join(dir, "ipowners.yaml")
	cfgYAML := "input: " + input + "\noutput: " + filepath.Join(dir, "ignored.csv") + "\nthreads: 3\nwhois_bin: " + bin + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0o644))

	_, err := execute("--config", cfgPath, "-o", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "ip,net_range,owner,description\n"))

	_, statErr := os.Stat(filepath.Join(dir, "ignored.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestApplyFlags(t *testing.T) {
	cmd := newRootCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"-t", "9", "--unordered"}))

	flagCfg := config.Default()
	flagCfg.Threads = 9
	flagCfg.Unordered = true
	flagCfg.Output = "from-flags.csv" // not set on the command line

	fileCfg := config.Default()
	fileCfg.Output = "from-file.csv"
	fileCfg.Threads = 2

	applyFlags(cmd.Flags(), fileCfg, flagCfg)

	assert.Equal(t, 9, fileCfg.Threads)
	assert.True(t, fileCfg.Unordered)
	assert.Equal(t, "from-file.csv", fileCfg.Output)
}

func TestVersion(t *testing.T) {
	out, err := execute("--version")
	require.NoError(t, err)
	assert.Equal(t, "ipowners version "+version+"\n", out)
}

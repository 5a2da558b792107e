package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeTempSource(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "site"+SourceExtension)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

// TestCleanupByVersion is spec.md §8 scenario 8: a construct whose
// remove_in has been reached is deleted by --current-version, but left
// alone when the boundary hasn't been reached yet.
func TestCleanupByVersion(t *testing.T) {
	src := "@replace_me(since=\"1.0.0\", remove_in=\"2.0.0\")\ndef old():\n    return 1\n"
	path := writeTempSource(t, src)

	cfgReached := LoadConfig(CLIFlags{CurrentVersion: "2.0.0", Write: true, Jobs: 1})
	d := New(cfgReached, zap.NewNop())
	outcomes, err := d.Cleanup(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Nil(t, outcomes[0].Error)
	require.True(t, outcomes[0].Modified)

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "", string(out))
}

func TestCleanupByVersionNotYetReached(t *testing.T) {
	src := "@replace_me(since=\"1.0.0\", remove_in=\"2.0.0\")\ndef old():\n    return 1\n"
	path := writeTempSource(t, src)

	cfgBefore := LoadConfig(CLIFlags{CurrentVersion: "1.9.0", Write: true, Jobs: 1})
	d := New(cfgBefore, zap.NewNop())
	outcomes, err := d.Cleanup(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.False(t, outcomes[0].Modified)

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, src, string(out))
}

func TestMigrateRenameOfFreeFunction(t *testing.T) {
	src := "@replace_me(since=\"0.1.0\")\ndef inc(x):\n    return x + 1\n\nresult = inc(x=3)\n"
	path := writeTempSource(t, src)

	cfg := LoadConfig(CLIFlags{Write: true, Jobs: 1})
	d := New(cfg, zap.NewNop())
	outcomes, err := d.Migrate(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Nil(t, outcomes[0].Error)
	require.True(t, outcomes[0].Modified)

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "@replace_me(since=\"0.1.0\")\ndef inc(x):\n    return x + 1\n\nresult = 3 + 1\n", string(out))
}

func TestMigrateFormatPreservationWhenNoReplacement(t *testing.T) {
	src := "def greet(name):\n    return \"hi \" + name\n\nresult = greet(\"a\")\n"
	path := writeTempSource(t, src)

	cfg := LoadConfig(CLIFlags{Write: true, Jobs: 1})
	d := New(cfg, zap.NewNop())
	outcomes, err := d.Migrate(context.Background(), []string{path})
	require.NoError(t, err)
	require.False(t, outcomes[0].Modified)

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, src, string(out))
}

func TestInfoCountsReplaceableConstructs(t *testing.T) {
	src := "@replace_me\ndef old(x):\n    return x\n\n@replace_me\ndef old2(x):\n    return x\n"
	path := writeTempSource(t, src)

	cfg := LoadConfig(CLIFlags{Jobs: 1})
	d := New(cfg, zap.NewNop())
	outcomes, err := d.Info(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, 2, outcomes[0].ReplaceableCount)
}

// TestCleanupAllRemovesUnreplaceableConstruct covers the gap where --all
// cleanup previously skipped constructs the Collector could recognize as
// deprecated but couldn't derive a replacement template for (complex_body,
// recursive_call, etc.): spec.md §6 says --all removes every deprecated
// construct, not just the replaceable subset.
func TestCleanupAllRemovesUnreplaceableConstruct(t *testing.T) {
	src := "@replace_me(since=\"1.0.0\")\ndef old(n):\n    x = n + 1\n    return x\n"
	path := writeTempSource(t, src)

	cfg := LoadConfig(CLIFlags{All: true, Write: true, Jobs: 1})
	d := New(cfg, zap.NewNop())
	outcomes, err := d.Cleanup(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Nil(t, outcomes[0].Error)
	require.True(t, outcomes[0].Modified)

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "", string(out))
}

func TestInfoReportsUnreplaceableConstructWarning(t *testing.T) {
	src := "@replace_me\ndef old(n):\n    return old(n - 1)\n"
	path := writeTempSource(t, src)

	cfg := LoadConfig(CLIFlags{Jobs: 1})
	d := New(cfg, zap.NewNop())
	outcomes, err := d.Info(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, 0, outcomes[0].ReplaceableCount)
	require.Len(t, outcomes[0].Warnings, 1)
	require.Contains(t, outcomes[0].Warnings[0].Message, "old")
}

func TestConfigValidateRejectsConflictingCleanupFlags(t *testing.T) {
	cfg := LoadConfig(CLIFlags{All: true, Before: "1.0.0"})
	require.NotNil(t, cfg.Validate())
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "batch", "sql", "detect", "cache"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "risk-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestBatchCommand_Flags(t *testing.T) {
	for _, name := range []string{"strategy", "max-concurrent", "no-news", "no-enrichment", "cnpj-col", "name-col", "output", "format"} {
		assert.NotNil(t, batchCmd.Flags().Lookup(name), "batch should have --%s flag", name)
	}
	assert.Equal(t, "json", batchCmd.Flags().Lookup("format").DefValue)
}

func TestSQLCommand_Flags(t *testing.T) {
	for _, name := range []string{"query", "driver", "server", "port", "database", "user", "password", "windows-auth", "no-auto-detect", "format", "output"} {
		assert.NotNil(t, sqlCmd.Flags().Lookup(name), "sql should have --%s flag", name)
	}
}

func TestDetectCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "cnpj-col", "name-col"} {
		assert.NotNil(t, detectCmd.Flags().Lookup(name), "detect should have --%s flag", name)
	}
}

func TestCacheCommand_HasPrune(t *testing.T) {
	var found bool
	for _, c := range cacheCmd.Commands() {
		if c.Name() == "prune" {
			found = true
		}
	}
	assert.True(t, found)
}

package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Address)
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	require.Len(t, cfg.Symbols, 1)
	assert.Equal(t, Symbol{ID: 1, Name: "ACME"}, cfg.Symbols[0])
}

func TestParse_MultipleSymbols(t *testing.T) {
	cfg, err := Parse([]string{"-symbols", "1:ACME,2:GLOBEX"})
	require.NoError(t, err)
	require.Len(t, cfg.Symbols, 2)
	assert.Equal(t, Symbol{ID: 2, Name: "GLOBEX"}, cfg.Symbols[1])
}

func TestParse_MalformedSymbolFails(t *testing.T) {
	_, err := Parse([]string{"-symbols", "notanid:ACME"})
	assert.Error(t, err)
}

func TestParse_InvalidLogLevelFails(t *testing.T) {
	_, err := Parse([]string{"-log-level", "verbose"})
	assert.Error(t, err)
}

func TestParse_AddressAndPort(t *testing.T) {
	cfg, err := Parse([]string{"-address", "127.0.0.1", "-port", "7000"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Address)
	assert.Equal(t, 7000, cfg.Port)
}

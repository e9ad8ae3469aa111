// Package config parses the server's command-line configuration: listen
// address, the initial symbol table, and log verbosity. It is grounded on
// the teacher's flag usage in cmd/client/client.go, the only place in the
// corpus that parses CLI flags; the server itself previously hard-coded
// "0.0.0.0"/9001 in cmd/main.go.
package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"fenrir/internal/common"

	"github.com/rs/zerolog"
)

// Symbol pairs a SymbolID with its display name for the initial symbol
// table the server boots with.
type Symbol struct {
	ID   common.SymbolID
	Name string
}

// Config holds the parsed server configuration.
type Config struct {
	Address  string
	Port     int
	Symbols  []Symbol
	LogLevel zerolog.Level
}

// Parse reads args (pass flag.Args()-style os.Args[1:] from main) into a
// Config, applying the same defaults the teacher's client used for its
// server address.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("fenrir-server", flag.ContinueOnError)
	address := fs.String("address", "0.0.0.0", "listen address")
	port := fs.Int("port", 9001, "listen port")
	symbols := fs.String("symbols", "1:ACME", "comma-separated id:name symbol table")
	logLevel := fs.String("log-level", "info", "zerolog level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	parsedSymbols, err := parseSymbols(*symbols)
	if err != nil {
		return Config{}, err
	}

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid log level %q: %w", *logLevel, err)
	}

	return Config{
		Address:  *address,
		Port:     *port,
		Symbols:  parsedSymbols,
		LogLevel: level,
	}, nil
}

func parseSymbols(raw string) ([]Symbol, error) {
	var symbols []Symbol
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		idStr, name, found := strings.Cut(entry, ":")
		if !found || name == "" {
			return nil, fmt.Errorf("config: malformed symbol entry %q, want id:name", entry)
		}
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("config: malformed symbol id in %q: %w", entry, err)
		}
		symbols = append(symbols, Symbol{ID: common.SymbolID(id), Name: name})
	}
	return symbols, nil
}

// Command server runs the matching engine behind the TCP wire protocol.
// Wiring is grounded on the teacher's cmd/main.go and cmd/server/server.go,
// which agreed on signal.NotifyContext-based graceful shutdown but
// disagreed on construction order (one called eng.SetReporter(srv) after
// the fact, the other forward-declared both variables to tie the knot
// before either was run). This resolves that by giving the engine an
// Observer from the start, the way internal/engine/events.go already
// generalizes reporting, and wiring the server into it only once
// constructed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fenrir/internal/common"
	"fenrir/internal/config"
	"fenrir/internal/engine"
	"fenrir/internal/net"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// executionReporter forwards fills to the owning client's session over the
// wire server. Rejections are reported separately, synchronously, by
// net.Server's session handler when handleMessage returns an error, so this observer
// only needs to handle the asynchronous fill path.
type executionReporter struct {
	engine.NopObserver
	server *net.Server
}

func (o *executionReporter) OnOrderExecuted(symbolID common.SymbolID, order common.Order) {
	if err := o.server.ReportExecution(order.Owner, symbolID, order); err != nil {
		log.Error().Err(err).Str("owner", order.Owner).Uint64("orderID", order.ID).Msg("unable to report execution")
	}
}

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	zerolog.SetGlobalLevel(cfg.LogLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	reporter := &executionReporter{}
	eng := engine.New(reporter)
	srv := net.New(cfg.Address, cfg.Port, eng)
	reporter.server = srv

	for _, symbol := range cfg.Symbols {
		if err := eng.AddSymbol(symbol.ID, symbol.Name); err != nil {
			log.Fatal().Err(err).Uint32("symbolID", uint32(symbol.ID)).Msg("unable to add symbol")
		}
	}

	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
}

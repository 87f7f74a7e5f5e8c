package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cryptoWatch/internal/catalog"
	"cryptoWatch/internal/config"
)

// setup loads config, builds the logger and wires the app for a command.
// The returned app's Close also cancels ctx and flushes the logger.
func setup(cmd *cobra.Command, withProvider bool) (context.Context, *app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a, err := newApp(ctx, cfg, logger, withProvider)
	if err != nil {
		stop()
		_ = logger.Sync()
		return nil, nil, err
	}
	a.closers = append([]func(){func() { _ = logger.Sync() }, stop}, a.closers...)
	return ctx, a, nil
}

func runMarket(cmd *cobra.Command, _ []string) error {
	ctx, a, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("market load start",
		zap.String("provider", a.cfg.Provider),
		zap.String("storage", a.cfg.Storage),
		zap.String("query", a.cfg.Query),
	)

	sess := a.session
	sess.SetQuery(a.cfg.Query)
	<-sess.Start(ctx)

	data := view{
		Query:  sess.Query(),
		Notice: a.notices(),
		Rows:   sess.MarketRows(),
	}
	return writeView(cmd.OutOrStdout(), "market.md", data, a.cfg.Plain)
}

// notices describes recoverable failures shown above a table.
func (a *app) notices() string {
	var msgs []string
	if a.session.Status() == catalog.Failed {
		msgs = append(msgs, fmt.Sprintf("Market data unavailable: %v", a.session.Err()))
	}
	if seedErr := a.watch.SeedErr(); seedErr != nil {
		msgs = append(msgs, fmt.Sprintf("Saved watchlist could not be read (%s), starting empty.", seedErr.Kind))
	}
	return strings.Join(msgs, " ")
}

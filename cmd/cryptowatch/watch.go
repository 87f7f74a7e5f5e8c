package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cryptoWatch/internal/catalog"
	"cryptoWatch/internal/session"
)

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, a, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	sess := a.session
	if status := sess.Load(ctx); status != catalog.Ready {
		a.logger.Warn("market unavailable, only watched assets can be toggled", zap.Error(sess.Err()))
	}

	out := cmd.OutOrStdout()
	var failed error
	for _, id := range args {
		watched, err := sess.ToggleID(ctx, id)
		if err != nil {
			if errors.Is(err, session.ErrUnknownAsset) {
				fmt.Fprintf(out, "%s: not found in market\n", id)
			} else {
				fmt.Fprintf(out, "%s: %v\n", id, err)
			}
			failed = errors.Join(failed, err)
			continue
		}
		if watched {
			fmt.Fprintf(out, "Added %s to watchlist\n", id)
		} else {
			fmt.Fprintf(out, "Removed %s from watchlist\n", id)
		}
	}
	fmt.Fprintln(out)

	data := view{Notice: a.notices(), Rows: sess.WatchlistRows()}
	if err := writeView(out, "watchlist.md", data, a.cfg.Plain); err != nil {
		return err
	}
	return failed
}

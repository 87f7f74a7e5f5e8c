package main

import (
	"github.com/spf13/cobra"
)

func runWatchlist(cmd *cobra.Command, _ []string) error {
	_, a, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	data := view{Notice: a.notices(), Rows: a.session.WatchlistRows()}
	return writeView(cmd.OutOrStdout(), "watchlist.md", data, a.cfg.Plain)
}

package main

import (
	"fmt"
	"strings"

	"github.com/scmhub/calendar"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/maxpain/internal/source"
)

func expirationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expirations TICKER",
		Short: "List available option expirations for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ticker := strings.ToUpper(args[0])

			src, err := buildSource(cfg, logger)
			if err != nil {
				return err
			}

			dates, err := src.AvailableExpirations(ctx, ticker)
			if err != nil {
				return err
			}
			if len(dates) == 0 {
				fmt.Printf("no expirations discoverable for %s\n", ticker)
				return nil
			}

			nyse := calendar.XNYS()
			for _, d := range dates {
				note := ""
				if !nyse.IsBusinessDay(d) {
					note = "  (not an NYSE trading day)"
				}
				fmt.Printf("%s%s\n", d.Format(source.DateLayout), note)
			}
			return nil
		},
	}
	return cmd
}

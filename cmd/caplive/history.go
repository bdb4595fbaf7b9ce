package main

import (
	"fmt"
	"time"

	"caplive/internal/history"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent live-reload sessions",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of sessions to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := history.NewStore(viper.GetString("history_db"))
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	records, err := store.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No recorded sessions.")
		return nil
	}

	for _, rec := range records {
		serial := rec.Serial
		if serial == "" {
			serial = "-"
		}
		fmt.Printf("%s  %-8s  port %-5d  %-20s  %s  %s\n",
			rec.StartedAt.Format(time.DateTime),
			rec.Mode,
			rec.Port,
			serial,
			rec.EndedAt.Sub(rec.StartedAt).Round(time.Second),
			rec.ExitReason,
		)
	}
	return nil
}

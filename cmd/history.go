/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/medassist/internal/markdown"
	"github.com/valpere/medassist/internal/store"
)

var (
	historyPath  string
	historyLang  string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the consultation history",
	Long:  `List, show, summarize and clear the SQLite consultation history.`,
}

func withHistory(fn func(ctx context.Context, db *store.Store) error) error {
	path := historyPath
	if path == "" {
		path = cfg.History.Path
	}
	db, err := openHistory(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(context.Background(), db)
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent consultations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, db *store.Store) error {
			entries, err := db.List(ctx, store.ListFilter{Language: historyLang, Limit: historyLimit})
			if err != nil {
				return fmt.Errorf("failed to list consultations: %w", err)
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No consultations recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWHEN\tLANG\tBACKEND\tDEGRADED\tLATENCY\tQUESTION")
			for _, c := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%s\t%s\n",
					c.ID, c.Timestamp.Local().Format("2006-01-02 15:04"),
					c.ResponseLang, c.Backend, c.Degraded,
					c.Latency.Round(time.Millisecond), markdown.Preview(c.Question, 50))
			}
			return w.Flush()
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one consultation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, db *store.Store) error {
			c, err := db.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load consultation: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %s\n", c.ID)
			fmt.Fprintf(out, "When:      %s\n", c.Timestamp.Local().Format(time.RFC3339))
			fmt.Fprintf(out, "Language:  %s (detected %q)\n", c.ResponseLang, c.DetectedLang)
			fmt.Fprintf(out, "Focus:     %s\n", c.FocusArea)
			fmt.Fprintf(out, "Backend:   %s\n", c.Backend)
			fmt.Fprintf(out, "Degraded:  %v\n", c.Degraded)
			fmt.Fprintf(out, "Latency:   %s\n\n", c.Latency.Round(time.Millisecond))
			fmt.Fprintf(out, "Q: %s\n\n", c.Question)
			fmt.Fprintf(out, "%s\n\n%s\n", markdown.ToPlainText(c.Answer), c.Disclaimer)
			return nil
		})
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show consultation statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, db *store.Store) error {
			stats, err := db.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Consultations:   %d\n", stats.Total)
			fmt.Fprintf(out, "Degraded:        %d\n", stats.Degraded)
			fmt.Fprintf(out, "Languages:       %d\n", stats.Languages)
			fmt.Fprintf(out, "Average latency: %s\n", stats.AvgLatency.Round(time.Millisecond))
			for _, lc := range stats.TopLanguages {
				fmt.Fprintf(out, "  %-6s %d\n", lc.Language, lc.Count)
			}
			return nil
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a consultation by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, db *store.Store) error {
			if err := db.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete consultation: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted consultation: %s\n", args[0])
			return nil
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all consultations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, db *store.Store) error {
			n, err := db.Clear(ctx)
			if err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d consultations.\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.PersistentFlags().StringVar(&historyPath, "db", "", "History database path (overrides history.path)")
	historyListCmd.Flags().StringVar(&historyLang, "lang", "", "Only show questions detected in this language")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum entries to show")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
}

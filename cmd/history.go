package cmd

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"histreader/internal/clix"
	"histreader/internal/models"
)

// historyCmd represents the base command for fetch history operations
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View fetch history",
	Long:  `Displays past fetch operations recorded by the application.`,
	Args:  cobra.NoArgs,
	RunE:  runListHistory,
}

var listHistoryCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent fetches",
	Args:  cobra.NoArgs,
	RunE:  runListHistory,
}

func runListHistory(cmd *cobra.Command, args []string) error {
	appInstance, err := GetAppFromContext(cmd.Context())
	if err != nil {
		return err
	}
	limit, err := clix.ParseLimit(cmd.Flags())
	if err != nil {
		return err
	}

	records, err := appInstance.HistoryService.Recent(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("error listing fetch history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No fetch history found.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Started At", "Status", "Title", "Category", "Chars", "Attempts"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, r := range records {
		status := string(r.Status)
		if r.Status == models.StatusError {
			status = color.RedString(status)
		} else if r.UsedFallback {
			status = color.YellowString(status + " (fallback)")
		}
		table.Append([]string{
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			status,
			r.Title,
			r.Category,
			strconv.Itoa(r.CharCount),
			strconv.Itoa(r.Attempts),
		})
	}
	table.Render()
	return nil
}

func init() {
	// Persistent so that both "history" and "history list" accept it.
	historyCmd.PersistentFlags().IntP("limit", "n", 20, "Maximum number of history entries to show")
	historyCmd.AddCommand(listHistoryCmd)
	rootCmd.AddCommand(historyCmd)
}

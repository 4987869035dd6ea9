package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"histreader/internal/models"
	"histreader/internal/services"
)

var (
	fetchAsync bool
	fetchJSON  bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and print a random Japanese history article",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

		if fetchAsync {
			if appInstance.JobClient == nil {
				return fmt.Errorf("--async requires redis.address to be configured")
			}
			info, err := appInstance.JobClient.EnqueueFetchJob(cmd.Context(), "cli")
			if err != nil {
				return fmt.Errorf("error enqueuing fetch job: %w", err)
			}
			fmt.Fprintf(out, "Enqueued fetch job %s on queue %q.\n", info.ID, info.Queue)
			return nil
		}

		article, err := appInstance.ReaderService.Fetch(cmd.Context(), statusPrinter(errOut))
		if err != nil {
			return err
		}

		if fetchJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(article)
		}
		fmt.Fprintln(out, article.Content)
		fmt.Fprintf(out, "\nCharacters: %d\n", article.CharCount)
		return nil
	},
}

// statusPrinter renders status transitions as coloured lines on w.
func statusPrinter(w io.Writer) services.StatusObserver {
	return services.StatusObserverFunc(func(evt models.StatusEvent) {
		switch evt.Status {
		case models.StatusComplete:
			fmt.Fprintf(w, "%s %s\n", color.GreenString("[complete]"), evt.Message)
		case models.StatusError:
			fmt.Fprintf(w, "%s %s\n", color.RedString("[error]"), evt.Message)
		default:
			fmt.Fprintf(w, "%s %s\n", color.CyanString("[%s]", evt.Status), evt.Message)
		}
	})
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchAsync, "async", false, "Enqueue the fetch for the worker instead of running it")
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "Print the article as JSON")
	rootCmd.AddCommand(fetchCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var topicCmd = &cobra.Command{
	Use:   "topic",
	Short: "Pick a random topic without fetching its article",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		topic, err := appInstance.Selector.SelectTopic(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t(%s)\n", topic.Title, topic.Category)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(topicCmd)
}

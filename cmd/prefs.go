package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"histreader/internal/models"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change reader preferences",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current preferences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		p, err := appInstance.PreferenceService.Get(cmd.Context())
		if err != nil {
			return err
		}
		printPrefs(cmd, p)
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <fontSize|fontFamily> <value>",
	Short: "Set one preference",
	Long: `Set one preference. A font size outside 8-50 or not a number is reset to 14;
an empty font family is reset to sans-serif.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		p, err := appInstance.PreferenceService.Set(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		printPrefs(cmd, p)
		return nil
	},
}

func printPrefs(cmd *cobra.Command, p models.Preferences) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "fontSize:   %d\n", p.FontSize)
	fmt.Fprintf(out, "fontFamily: %s\n", p.FontFamily)
}

func init() {
	prefsCmd.AddCommand(prefsShowCmd, prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}

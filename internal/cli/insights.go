package cli

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"chorequest/internal/app"
)

func init() {
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(gridCmd)

	for _, cmd := range []*cobra.Command{insightsCmd, gridCmd} {
		cmd.Flags().Int64("family", 0, "Family ID (required)")
		cmd.Flags().String("now", "", "Reference instant (RFC3339); defaults to now")
	}
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Print a family's insights as JSON",
	RunE:  runInsights,
}

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Print a family's weekly chore grid as JSON",
	RunE:  runGrid,
}

func familyFlag(cmd *cobra.Command) (int64, error) {
	familyID, _ := cmd.Flags().GetInt64("family")
	if familyID <= 0 {
		return 0, errors.New("--family is required")
	}
	return familyID, nil
}

func runInsights(cmd *cobra.Command, args []string) error {
	familyID, err := familyFlag(cmd)
	if err != nil {
		return err
	}
	now, err := parseNow(cmd)
	if err != nil {
		return err
	}

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	insights, err := a.Insights.ForFamily(cmd.Context(), familyID, now)
	if err != nil {
		return err
	}
	return printJSON(cmd, insights)
}

func runGrid(cmd *cobra.Command, args []string) error {
	familyID, err := familyFlag(cmd)
	if err != nil {
		return err
	}
	now, err := parseNow(cmd)
	if err != nil {
		return err
	}

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	grid, err := a.Grid.ForFamily(cmd.Context(), familyID, now)
	if err != nil {
		return err
	}
	return printJSON(cmd, grid)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"chorequest/internal/app"
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("output", "o", "", "Output file path (default: insights_YYYYMMDD_HHMMSS.json)")
	exportCmd.Flags().String("now", "", "Reference instant (RFC3339); defaults to now")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a JSON snapshot of every family's insights",
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	now, err := parseNow(cmd)
	if err != nil {
		return err
	}
	if outputPath == "" {
		stamp := now
		if stamp.IsZero() {
			stamp = time.Now()
		}
		outputPath = fmt.Sprintf("insights_%s.json", stamp.Format("20060102_150405"))
	}

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	snapshot, err := a.Export.ExportToFile(cmd.Context(), outputPath, now)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d families to %s (%.2f KB)\n",
		len(snapshot.Families), outputPath, float64(info.Size())/1024)
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"chorequest/internal/app"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, app.Options{SkipMigrations: true})
	if err != nil {
		return err
	}
	defer a.Close()

	applied, err := a.DB.RunMigrations(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(applied) == 0 {
		fmt.Fprintln(out, "Schema is up to date")
		return nil
	}
	for _, name := range applied {
		fmt.Fprintf(out, "Applied %s\n", name)
	}
	return nil
}

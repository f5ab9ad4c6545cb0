package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chorequest/internal/app"
)

func init() {
	rootCmd.AddCommand(familyCmd)
	familyCmd.AddCommand(familyCreateCmd, familySettingsCmd, familyParentCmd, familyDigestCmd, familyKidCmd,
		familyUpdateKidCmd, familyRemoveKidCmd, familyCompleteCmd, familyAssignCmd)

	familyCreateCmd.Flags().String("name", "", "Family name (required)")
	for _, cmd := range []*cobra.Command{familyCreateCmd, familySettingsCmd} {
		cmd.Flags().String("timezone", "", "IANA timezone; empty uses the default")
		cmd.Flags().String("schedule-file", "", "Path to a JSON schedule document")
	}

	for _, cmd := range []*cobra.Command{familySettingsCmd, familyParentCmd, familyKidCmd, familyUpdateKidCmd, familyRemoveKidCmd, familyCompleteCmd, familyAssignCmd} {
		cmd.Flags().Int64("family", 0, "Family ID (required)")
	}

	familyParentCmd.Flags().String("name", "", "Parent name")
	familyParentCmd.Flags().String("email", "", "Parent email address")

	familyDigestCmd.Flags().Int64("parent", 0, "Parent ID (required)")
	familyDigestCmd.Flags().Bool("off", false, "Stop sending the weekly digest")

	for _, cmd := range []*cobra.Command{familyKidCmd, familyUpdateKidCmd} {
		cmd.Flags().String("name", "", "Kid name")
		cmd.Flags().String("color", "", "Avatar color (#rrggbb)")
	}

	for _, cmd := range []*cobra.Command{familyUpdateKidCmd, familyRemoveKidCmd, familyCompleteCmd, familyAssignCmd} {
		cmd.Flags().Int64("kid", 0, "Kid ID (required)")
	}
	familyCompleteCmd.Flags().Int("points", 1, "Points earned")
	familyCompleteCmd.Flags().String("reason", "", "Chore name or note")
	familyCompleteCmd.Flags().String("at", "", "When the chore was done (RFC3339); defaults to now")

	familyAssignCmd.Flags().String("chore", "", "Chore name")
	familyAssignCmd.Flags().String("date", "", "Local date (YYYY-MM-DD)")
}

var familyCmd = &cobra.Command{
	Use:   "family",
	Short: "Set up families, parents, kids and chores",
}

var familyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a family",
	RunE:  runFamilyCreate,
}

var familySettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Replace a family's timezone and schedule",
	RunE:  runFamilySettings,
}

var familyParentCmd = &cobra.Command{
	Use:   "add-parent",
	Short: "Add a digest recipient to a family",
	RunE:  runFamilyAddParent,
}

var familyDigestCmd = &cobra.Command{
	Use:   "digest-opt-in",
	Short: "Turn the weekly digest on or off for a parent",
	RunE:  runFamilyDigestOptIn,
}

var familyKidCmd = &cobra.Command{
	Use:   "add-kid",
	Short: "Add a kid profile to a family",
	RunE:  runFamilyAddKid,
}

var familyUpdateKidCmd = &cobra.Command{
	Use:   "update-kid",
	Short: "Rename a kid or change the avatar color",
	RunE:  runFamilyUpdateKid,
}

var familyRemoveKidCmd = &cobra.Command{
	Use:   "remove-kid",
	Short: "Delete a kid profile and its chore history",
	RunE:  runFamilyRemoveKid,
}

var familyCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Record a completed chore for a kid",
	RunE:  runFamilyComplete,
}

var familyAssignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Schedule a chore for a kid on a date",
	RunE:  runFamilyAssign,
}

// scheduleFlag reads the optional --schedule-file document
func scheduleFlag(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("schedule-file")
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read schedule file: %w", err)
	}
	return string(data), nil
}

func kidFlag(cmd *cobra.Command) (int64, error) {
	kidID, _ := cmd.Flags().GetInt64("kid")
	if kidID <= 0 {
		return 0, errors.New("--kid is required")
	}
	return kidID, nil
}

func runFamilyCreate(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	timezone, _ := cmd.Flags().GetString("timezone")
	schedule, err := scheduleFlag(cmd)
	if err != nil {
		return err
	}

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	family, err := a.Household.CreateFamily(cmd.Context(), name, timezone, schedule)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created family %d (%s, %s)\n", family.ID, family.Name, family.TimezoneName())
	return nil
}

func runFamilySettings(cmd *cobra.Command, args []string) error {
	familyID, err := familyFlag(cmd)
	if err != nil {
		return err
	}
	timezone, _ := cmd.Flags().GetString("timezone")
	schedule, err := scheduleFlag(cmd)
	if err != nil {
		return err
	}

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Household.UpdateSettings(cmd.Context(), familyID, timezone, schedule); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated family %d\n", familyID)
	return nil
}

func runFamilyAddParent(cmd *cobra.Command, args []string) error {
	familyID, err := familyFlag(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	parent, err := a.Household.AddParent(cmd.Context(), familyID, name, email)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added parent %d (%s)\n", parent.ID, parent.Email)
	return nil
}

func runFamilyDigestOptIn(cmd *cobra.Command, args []string) error {
	parentID, _ := cmd.Flags().GetInt64("parent")
	if parentID <= 0 {
		return errors.New("--parent is required")
	}
	off, _ := cmd.Flags().GetBool("off")

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Household.SetDigestOptIn(cmd.Context(), parentID, !off); err != nil {
		return err
	}
	state := "on"
	if off {
		state = "off"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Weekly digest %s for parent %d\n", state, parentID)
	return nil
}

func runFamilyAddKid(cmd *cobra.Command, args []string) error {
	familyID, err := familyFlag(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	color, _ := cmd.Flags().GetString("color")

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	kid, err := a.Household.CreateKid(cmd.Context(), familyID, name, color)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added kid %d (%s)\n", kid.ID, kid.Name)
	return nil
}

func runFamilyUpdateKid(cmd *cobra.Command, args []string) error {
	familyID, err := familyFlag(cmd)
	if err != nil {
		return err
	}
	kidID, err := kidFlag(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	color, _ := cmd.Flags().GetString("color")

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	kid, err := a.Household.UpdateKid(cmd.Context(), familyID, kidID, name, color)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated kid %d (%s, %s)\n", kid.ID, kid.Name, kid.AvatarColor)
	return nil
}

func runFamilyRemoveKid(cmd *cobra.Command, args []string) error {
	familyID, err := familyFlag(cmd)
	if err != nil {
		return err
	}
	kidID, err := kidFlag(cmd)
	if err != nil {
		return err
	}

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Household.RemoveKid(cmd.Context(), familyID, kidID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed kid %d\n", kidID)
	return nil
}

func runFamilyComplete(cmd *cobra.Command, args []string) error {
	familyID, err := familyFlag(cmd)
	if err != nil {
		return err
	}
	kidID, err := kidFlag(cmd)
	if err != nil {
		return err
	}
	points, _ := cmd.Flags().GetInt("points")
	reason, _ := cmd.Flags().GetString("reason")

	var at time.Time
	if raw, _ := cmd.Flags().GetString("at"); raw != "" {
		if at, err = time.Parse(time.RFC3339, raw); err != nil {
			return fmt.Errorf("--at must be an RFC3339 timestamp: %w", err)
		}
	}

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	event, err := a.Household.RecordCompletion(cmd.Context(), familyID, kidID, points, reason, at)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d points for kid %d at %s\n", event.Points, kidID, event.OccurredAt.Format(time.RFC3339))
	return nil
}

func runFamilyAssign(cmd *cobra.Command, args []string) error {
	familyID, err := familyFlag(cmd)
	if err != nil {
		return err
	}
	kidID, err := kidFlag(cmd)
	if err != nil {
		return err
	}
	chore, _ := cmd.Flags().GetString("chore")
	date, _ := cmd.Flags().GetString("date")

	a, err := openApp(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	assignment, err := a.Household.AssignChore(cmd.Context(), familyID, kidID, chore, date)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Assigned %s to kid %d on %s\n", assignment.ChoreName, kidID, assignment.AssignedDate)
	return nil
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/skipd/internal/marker"
)

var markersCmd = &cobra.Command{
	Use:   "markers",
	Short: "Work with detected skip markers",
}

var markersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all marker records",
	RunE:  runMarkersList,
}

var markersShowCmd = &cobra.Command{
	Use:   "show <item-id>",
	Short: "Show one item's markers",
	Args:  cobra.ExactArgs(1),
	RunE:  runMarkersShow,
}

var markersCorrectCmd = &cobra.Command{
	Use:   "correct <item-id>",
	Short: "Record a human correction for one marker field",
	Long: `Record a human correction for one marker field.

Corrections take precedence over detected values and survive
re-analysis. Valid fields: theme-start, theme-end, intro-end,
credits-start, credits-end.`,
	Args: cobra.ExactArgs(1),
	RunE: runMarkersCorrect,
}

func init() {
	rootCmd.AddCommand(markersCmd)
	markersCmd.AddCommand(markersListCmd)
	markersCmd.AddCommand(markersShowCmd)
	markersCmd.AddCommand(markersCorrectCmd)

	markersCorrectCmd.Flags().String("field", "", "Field to correct")
	markersCorrectCmd.Flags().Int64("value", -1, "Offset in seconds")
	_ = markersCorrectCmd.MarkFlagRequired("field")
	_ = markersCorrectCmd.MarkFlagRequired("value")
}

var correctableFields = map[string]marker.CorrectedField{
	"theme-start":   marker.FieldThemeStart,
	"theme-end":     marker.FieldThemeEnd,
	"intro-end":     marker.FieldHeuristicEnd,
	"credits-start": marker.FieldCreditsStart,
	"credits-end":   marker.FieldCreditsEnd,
}

func runMarkersList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := marker.NewStore(db).ListAll()
	if err != nil {
		return fmt.Errorf("listing markers: %w", err)
	}

	if jsonOutput {
		printJSON(records)
		return nil
	}
	if len(records) == 0 {
		fmt.Println("No markers")
		return nil
	}

	fmt.Printf("  %-8s %-8s %-30s %-10s %-10s %-6s\n", "ITEM", "KIND", "TITLE", "THEME", "CREDITS", "RECAP")
	fmt.Println("  " + strings.Repeat("-", 78))
	for _, r := range records {
		title := r.Title
		if r.ShowTitle != "" {
			title = r.ShowTitle + " - " + r.Title
		}
		if len(title) > 30 {
			title = title[:27] + "..."
		}
		fmt.Printf("  %-8d %-8s %-30s %-10s %-10s %-6s\n",
			r.ItemID, r.Kind, title,
			formatWindow(r.ThemeStart, r.ThemeEnd),
			formatWindow(r.CreditsStart, r.CreditsEnd),
			formatRecap(r.HasRecap))
	}
	return nil
}

func runMarkersShow(cmd *cobra.Command, args []string) error {
	itemID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id %q", args[0])
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := marker.NewStore(db).Get(itemID)
	if err != nil {
		return fmt.Errorf("fetching markers: %w", err)
	}

	if jsonOutput {
		printJSON(rec)
		return nil
	}

	fmt.Printf("Item %d (%s)\n", rec.ItemID, rec.Kind)
	if rec.ShowTitle != "" {
		fmt.Printf("  Show:     %s\n", rec.ShowTitle)
	}
	fmt.Printf("  Title:    %s\n", rec.Title)
	fmt.Printf("  Duration: %ds\n", rec.DurationSec())
	fmt.Printf("  Location: %s\n\n", rec.Location)

	fmt.Printf("  %-14s %-12s %-12s\n", "FIELD", "DETECTED", "CORRECTED")
	fmt.Println("  " + strings.Repeat("-", 40))
	fmt.Printf("  %-14s %-12s %-12s\n", "theme-start", formatOffset(rec.ThemeStart), formatOffset(rec.CorrectThemeStart))
	fmt.Printf("  %-14s %-12s %-12s\n", "theme-end", formatOffset(rec.ThemeEnd), formatOffset(rec.CorrectThemeEnd))
	fmt.Printf("  %-14s %-12s %-12s\n", "intro-end", formatOffset(rec.HeuristicEnd), formatOffset(rec.CorrectHeuristicEnd))
	fmt.Printf("  %-14s %-12s %-12s\n", "credits-start", formatOffset(rec.CreditsStart), formatOffset(rec.CorrectCreditsStart))
	fmt.Printf("  %-14s %-12s %-12s\n", "credits-end", formatOffset(rec.CreditsEnd), formatOffset(rec.CorrectCreditsEnd))
	fmt.Printf("  %-14s %-12s\n", "recap", formatRecap(rec.HasRecap))

	if best := rec.BestTime(); best != marker.NotFound {
		fmt.Printf("\n  Resume point: %ds\n", best)
	}
	return nil
}

func runMarkersCorrect(cmd *cobra.Command, args []string) error {
	itemID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id %q", args[0])
	}
	fieldName, _ := cmd.Flags().GetString("field")
	value, _ := cmd.Flags().GetInt64("value")

	field, ok := correctableFields[fieldName]
	if !ok {
		return fmt.Errorf("unknown field %q (valid: theme-start, theme-end, intro-end, credits-start, credits-end)", fieldName)
	}
	if value < 0 {
		return fmt.Errorf("value must be a non-negative offset in seconds")
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := marker.NewStore(db).SetCorrected(itemID, field, value); err != nil {
		return fmt.Errorf("recording correction: %w", err)
	}
	fmt.Printf("Corrected %s for item %d to %ds\n", fieldName, itemID, value)
	return nil
}

func formatOffset(v *int64) string {
	switch {
	case v == nil:
		return "-"
	case *v == marker.NotFound:
		return "none"
	default:
		return fmt.Sprintf("%ds", *v)
	}
}

func formatWindow(start, end *int64) string {
	if start == nil && end == nil {
		return "-"
	}
	return formatOffset(start) + ".." + formatOffset(end)
}

func formatRecap(v *bool) string {
	switch {
	case v == nil:
		return "-"
	case *v:
		return "yes"
	default:
		return "no"
	}
}

package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmunix/skipd/internal/events"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent events",
	RunE:  runEventsCmd,
}

var eventsItemCmd = &cobra.Command{
	Use:   "item <item-id>",
	Short: "Show the event history for one media item",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventsItemCmd,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsItemCmd)
	eventsCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
}

func runEventsCmd(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	recent, err := events.NewEventLog(db).Recent(limit)
	if err != nil {
		return fmt.Errorf("fetching events: %w", err)
	}
	printEvents(recent)
	return nil
}

func runEventsItemCmd(cmd *cobra.Command, args []string) error {
	itemID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id %q", args[0])
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	history, err := events.NewEventLog(db).ForItem(itemID)
	if err != nil {
		return fmt.Errorf("fetching events: %w", err)
	}
	printEvents(history)
	return nil
}

func printEvents(items []events.RawEvent) {
	if jsonOutput {
		printJSON(items)
		return
	}
	if len(items) == 0 {
		fmt.Println("No events")
		return
	}

	fmt.Printf("  %-12s %-24s %-15s\n", "TIME", "TYPE", "ENTITY")
	fmt.Println("  " + strings.Repeat("-", 55))
	for _, e := range items {
		entity := fmt.Sprintf("%s/%d", e.EntityType, e.EntityID)
		fmt.Printf("  %-12s %-24s %-15s\n", formatTimeAgo(e.OccurredAt), e.EventType, entity)
	}
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	ago := time.Since(t)
	switch {
	case ago < time.Minute:
		return "just now"
	case ago < time.Hour:
		mins := int(ago.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case ago < 24*time.Hour:
		hours := int(ago.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	default:
		days := int(ago.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}

package main

import (
	"fmt"
	"strconv"
	"time"

	"seswi-go/internal/seswi"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		dom, _ := cmd.Flags().GetString("domain")

		a, err := newApp(cmd.Context(), "ListSessions", dom)
		if err != nil {
			return err
		}
		defer a.Close()

		sessions, err := a.ListSessions(cmd.Context(), dom)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions saved.")
			return nil
		}
		for _, s := range sessions {
			printSession(s)
		}
		return nil
	},
}

var sessionGroupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List saved sessions grouped by domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ListGroups")
		if err != nil {
			return err
		}
		defer a.Close()

		groups, err := a.Groups(cmd.Context())
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			fmt.Println("No sessions saved.")
			return nil
		}
		for _, g := range groups {
			fmt.Printf("%s (%d)\n", g.Domain, len(g.Sessions))
			for _, s := range g.Sessions {
				fmt.Print("  ")
				printSession(s)
			}
		}
		return nil
	},
}

var sessionRenameCmd = &cobra.Command{
	Use:   "rename TIMESTAMP NAME",
	Short: "Rename a saved session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := parseTimestamp(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "Rename", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.Rename(cmd.Context(), ts, args[1])
		if err != nil {
			return fmt.Errorf("rename failed: %w", err)
		}
		fmt.Printf("Renamed session %d to %q\n", s.Timestamp, s.Name)
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete TIMESTAMP",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := parseTimestamp(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "Delete", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Delete(cmd.Context(), ts); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		fmt.Printf("Deleted session %d\n", ts)
		return nil
	},
}

var sessionDeleteDomainCmd = &cobra.Command{
	Use:   "delete-domain DOMAIN...",
	Short: "Delete every session saved for the given domains",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "DeleteDomains", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.DeleteDomains(cmd.Context(), args)
		if err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		fmt.Printf("Deleted %d session(s), %d remaining\n", res.DeletedCount, res.RemainingCount)
		return nil
	},
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Save the current site as a new session",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		url, _ := cmd.Flags().GetString("url")

		a, err := newApp(cmd.Context(), "Capture", name, url)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Capture(cmd.Context(), url, name)
		if err != nil {
			return fmt.Errorf("capture failed: %w", err)
		}
		fmt.Printf("Saved %q for %s (%d cookies)\n", res.Session.Name, res.Session.Domain, len(res.Session.Cookies))
		fmt.Printf("Timestamp: %d\n", res.Session.Timestamp)
		if res.Warning != "" {
			fmt.Printf("Warning: %s\n", res.Warning)
		}
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore TIMESTAMP",
	Short: "Switch the browser to a saved session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := parseTimestamp(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "Restore", args...)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Restore(cmd.Context(), ts)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		fmt.Printf("Restored %q for %s\n", res.Session.Name, res.Session.Domain)
		if res.Cookies != nil {
			fmt.Printf("Cookies: %d of %d restored, %d removed\n", res.Cookies.Restored, res.Cookies.Total, res.Cookies.Removed)
		}
		if res.StorageSkipped {
			fmt.Println("Storage: skipped, the active tab is on another site")
		}
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clear cookies, history and storage of the current site",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")

		a, err := newApp(cmd.Context(), "Clean", url)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Clean(cmd.Context(), url)
		if err != nil {
			return fmt.Errorf("clean failed: %w", err)
		}
		fmt.Printf("Cleaned %s: %d cookies removed", res.Domain, res.CookiesRemoved)
		if res.HistorySkipped {
			fmt.Print(", history not available")
		} else {
			fmt.Printf(", %d history entries deleted", res.HistoryDeleted)
		}
		fmt.Println()
		return nil
	},
}

func printSession(s *seswi.Session) {
	fmt.Printf("%d  %-20s  %-24s  %d cookies  %s\n",
		s.Timestamp,
		s.Name,
		s.Domain,
		len(s.Cookies),
		time.UnixMilli(s.Timestamp).Format("2006-01-02 15:04:05"),
	)
}

func parseTimestamp(arg string) (int64, error) {
	ts, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", arg, err)
	}
	return ts, nil
}

func init() {
	sessionCmd.AddCommand(sessionListCmd)
	sessionListCmd.Flags().StringP("domain", "d", "", "Only sessions that apply to this domain")
	sessionCmd.AddCommand(sessionGroupsCmd)
	sessionCmd.AddCommand(sessionRenameCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
	sessionCmd.AddCommand(sessionDeleteDomainCmd)

	captureCmd.Flags().StringP("name", "n", "", "Session name")
	captureCmd.MarkFlagRequired("name")
	captureCmd.Flags().String("url", "", "Site URL, for browsers without tabs")
	cleanCmd.Flags().String("url", "", "Site URL, for browsers without tabs")
}

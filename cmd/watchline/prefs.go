package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justchokingaround/watchline/internal/prefs"
)

// prefsCmd inspects and resets stored preferences
var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Stored preferences",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display stored preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		pref, err := prefs.LoadServerPreference(store)
		if err != nil {
			return err
		}
		hidden, err := prefs.PopupHidden(store)
		if err != nil {
			return err
		}
		cached, err := store.Keys(prefs.SchedulePrefix)
		if err != nil {
			return err
		}

		server := "none"
		if pref.Name != "" {
			server = pref.Name + "/" + pref.Kind
		}
		dates := make([]string, 0, len(cached))
		for _, k := range cached {
			dates = append(dates, strings.TrimPrefix(k, prefs.SchedulePrefix))
		}

		fmt.Println(field("Server", server))
		fmt.Println(field("Popup", map[bool]string{true: "dismissed", false: "shown"}[hidden]))
		if len(dates) == 0 {
			fmt.Println(field("Schedules", "none cached"))
		} else {
			fmt.Println(field("Schedules", strings.Join(dates, ", ")))
		}
		return nil
	},
}

var prefsResetSchedule bool

var prefsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the preferred server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := prefs.ClearServerPreference(store); err != nil {
			return fmt.Errorf("failed to clear server preference: %w", err)
		}

		if prefsResetSchedule {
			keys, err := store.Keys(prefs.SchedulePrefix)
			if err != nil {
				return err
			}
			for _, k := range keys {
				if err := store.Delete(k); err != nil {
					return fmt.Errorf("failed to delete %s: %w", k, err)
				}
			}
			logger.Info("cleared cached schedules", "count", len(keys))
		}

		fmt.Println(successStyle.Render("Preferences reset"))
		return nil
	},
}

// popupCmd controls the community popup flag
var popupCmd = &cobra.Command{
	Use:   "popup",
	Short: "Community popup visibility",
}

var popupStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the popup is dismissed",
	RunE: func(cmd *cobra.Command, args []string) error {
		hidden, err := prefs.PopupHidden(store)
		if err != nil {
			return err
		}
		if hidden {
			fmt.Println("dismissed")
		} else {
			fmt.Println("shown")
		}
		return nil
	},
}

var popupDismissCmd = &cobra.Command{
	Use:   "dismiss",
	Short: "Never show the popup again",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := prefs.HidePopup(store); err != nil {
			return fmt.Errorf("failed to save popup flag: %w", err)
		}
		fmt.Println(successStyle.Render("Popup dismissed"))
		return nil
	},
}

func init() {
	prefsResetCmd.Flags().BoolVar(&prefsResetSchedule, "schedule", false, "also drop cached schedules")
	prefsCmd.AddCommand(prefsShowCmd)
	prefsCmd.AddCommand(prefsResetCmd)

	popupCmd.AddCommand(popupStatusCmd)
	popupCmd.AddCommand(popupDismissCmd)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/justchokingaround/watchline/internal/api"
	"github.com/justchokingaround/watchline/internal/schedule"
)

var (
	scheduleWeek bool
	scheduleJSON bool
)

// scheduleCmd prints the airing schedule
var scheduleCmd = &cobra.Command{
	Use:   "schedule [YYYY-MM-DD]",
	Short: "Show the airing schedule for a day",
	Long: `Show the airing schedule for a day (default today).

Schedules are cached per date and never refetched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		date := now.Format(schedule.DateLayout)
		if len(args) == 1 {
			date = args[0]
		}

		dates := []string{date}
		if scheduleWeek {
			from, err := time.ParseInLocation(schedule.DateLayout, date, time.Local)
			if err != nil {
				return fmt.Errorf("%w: %q", schedule.ErrInvalidDate, date)
			}
			dates = schedule.Week(from)
		}

		cache := schedule.NewCache(store, api.NewClient(cfg, logger), logger)
		result := make(map[string][]schedule.Entry, len(dates))
		for i, d := range dates {
			entries, err := cache.Lookup(cmd.Context(), d)
			if err != nil {
				return err
			}
			result[d] = entries

			if !scheduleJSON {
				if i > 0 {
					fmt.Println()
				}
				fmt.Println(renderSchedule(d, entries, now))
			}
		}

		if scheduleJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		return nil
	},
}

func init() {
	scheduleCmd.Flags().BoolVarP(&scheduleWeek, "week", "w", false, "show seven days starting at the date")
	scheduleCmd.Flags().BoolVar(&scheduleJSON, "json", false, "print the schedule as JSON")
}

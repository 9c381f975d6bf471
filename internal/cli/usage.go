package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show today's transcription quota",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		client, save, err := newSession()
		if err != nil {
			return err
		}

		usage, err := client.FetchUsage(ctx)
		if err != nil {
			return err
		}
		if err := save(); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}

		fmt.Printf("Daily limit:  %.0f min\n", usage.TotalLimit)
		fmt.Printf("Used today:   %.1f min\n", usage.TotalUsedMinutes)
		fmt.Printf("Remaining:    %.1f min\n", usage.RemainingMinutes)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-day usage history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		client, save, err := newSession()
		if err != nil {
			return err
		}

		stats, err := client.UsageStats(ctx)
		if err != nil {
			return err
		}
		if err := save(); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}

		if len(stats) == 0 {
			fmt.Println("No jobs yet")
			return nil
		}

		fmt.Printf("%-12s %6s %10s %7s %9s %9s\n", "DATE", "JOBS", "COMPLETED", "FAILED", "DEDUCTED", "REFUNDED")
		for _, day := range stats {
			fmt.Printf("%-12s %6d %10d %7d %8.1fm %8.1fm\n",
				day.Date, day.TotalJobs, day.CompletedJobs, day.FailedJobs,
				day.MinutesDeducted, day.MinutesRefunded)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usageCmd, statsCmd)
}

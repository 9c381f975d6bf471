package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	jobsPage  int
	jobsLimit int
	jobsQuery string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage transcription jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		client, save, err := newSession()
		if err != nil {
			return err
		}

		jobs, pagination, err := client.SearchJobs(ctx, jobsPage, jobsLimit, jobsQuery)
		if err != nil {
			return err
		}
		if err := save(); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}

		if len(jobs) == 0 {
			fmt.Println("No jobs found")
			return nil
		}

		fmt.Printf("%-36s %-12s %8s %7s  %s\n", "ID", "STATUS", "DURATION", "MINUTES", "FILE")
		for _, job := range jobs {
			fmt.Printf("%-36s %-12s %7ds %6.0fm  %s\n",
				job.ID, job.Status, job.DurationInSeconds, job.UsageMinutes, job.FileName)
		}
		fmt.Printf("\nPage %d of %d (%d total)\n", pagination.Page, pagination.TotalPages, pagination.Total)
		return nil
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show one job's status and artifact links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		client, save, err := newSession()
		if err != nil {
			return err
		}

		detail, err := client.JobDetail(ctx, args[0])
		if err != nil {
			return err
		}
		if err := save(); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}

		fmt.Printf("Job:    %s\nStatus: %s\n", detail.JobID, detail.Status)
		if detail.AudioFileLink != "" {
			fmt.Printf("Audio:      %s\n", detail.AudioFileLink)
		}
		if detail.TranscriptionFileLink != "" {
			fmt.Printf("Transcript: %s\n", detail.TranscriptionFileLink)
		}
		return nil
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <job-id>",
	Short: "Delete a job and its stored files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		client, save, err := newSession()
		if err != nil {
			return err
		}

		if err := client.DeleteJob(ctx, args[0]); err != nil {
			return err
		}
		if err := save(); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}
		fmt.Println("Job deleted")
		return nil
	},
}

func init() {
	jobsListCmd.Flags().IntVar(&jobsPage, "page", 1, "Page number")
	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 10, "Jobs per page")
	jobsListCmd.Flags().StringVar(&jobsQuery, "query", "", "Filter by file name")

	jobsCmd.AddCommand(jobsListCmd, jobsShowCmd, jobsDeleteCmd)
	rootCmd.AddCommand(jobsCmd)
}

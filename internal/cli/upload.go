package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxscribe/voxscribe/internal/jobs"
	"github.com/voxscribe/voxscribe/internal/upload"
	"github.com/voxscribe/voxscribe/pkg/utils"
)

var (
	uploadFrom string
	uploadTo   string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload an audio file and queue it for transcription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		filePath := args[0]
		info, err := os.Stat(filePath)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", filePath, err)
		}

		client, save, err := newSession()
		if err != nil {
			return err
		}

		// The pipeline validates quota against a fresh snapshot before any
		// upload traffic.
		store := jobs.NewStore()
		usage, err := client.FetchUsage(ctx)
		if err != nil {
			return err
		}
		store.SetUsage(*usage)

		pipeline := upload.NewPipeline(client, store, &cfg.Upload)
		pipeline.OnPhase = func(phase upload.Phase) {
			if phase != upload.PhaseIdle {
				fmt.Printf("-> %s\n", phase)
			}
		}
		pipeline.OnProgress = func(percent int) {
			fmt.Printf("\r   uploading %s: %d%%", utils.FormatBytes(info.Size()), percent)
			if percent == 100 {
				fmt.Println()
			}
		}

		job, err := pipeline.Run(ctx, upload.Request{
			FilePath:           filePath,
			SourceLanguage:     uploadFrom,
			TranscriptLanguage: uploadTo,
		})
		if err != nil {
			return err
		}
		if err := save(); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}

		fmt.Printf("Queued %s (%ds, %.0f minute(s) deducted)\n", job.FileName, job.DurationInSeconds, job.UsageMinutes)
		fmt.Printf("Job ID: %s\n", job.ID)
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadFrom, "from", "", "Source language (e.g. English)")
	uploadCmd.Flags().StringVar(&uploadTo, "to", "", "Transcript language (e.g. Spanish)")
	_ = uploadCmd.MarkFlagRequired("from")
	_ = uploadCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(uploadCmd)
}

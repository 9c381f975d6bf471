package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voxscribe/voxscribe/internal/api"
	"github.com/voxscribe/voxscribe/pkg/config"
)

var (
	apiURL string
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "voxscribe",
	Short: "Upload audio and manage transcription jobs",
	Long: `voxscribe is the command-line client for the VoxScribe transcription
service. Log in once; the session is persisted and renewed automatically.

Environment Variables:
  VOXSCRIBE_API_URL      API base URL (default: http://localhost:3000/api/v1)
  VOXSCRIBE_COOKIE_PATH  Session cookie file (default: ~/.voxscribe/cookies.json)`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	cfg = config.LoadFromEnv()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (overrides VOXSCRIBE_API_URL)")
}

func baseURL() string {
	if apiURL != "" {
		return apiURL
	}
	return cfg.Client.BaseURL
}

func cookiePath() string {
	if cfg.Client.CookiePath != "" {
		return cfg.Client.CookiePath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".voxscribe-cookies.json"
	}
	return filepath.Join(home, ".voxscribe", "cookies.json")
}

// newSession builds an API client around the persisted cookie jar. The
// returned save function writes the jar back to disk; call it after any
// command that may have changed the session.
func newSession() (*api.Client, func() error, error) {
	origin, err := url.Parse(baseURL())
	if err != nil {
		return nil, nil, fmt.Errorf("invalid API URL %q: %w", baseURL(), err)
	}

	jar, err := newFileJar(cookiePath(), origin)
	if err != nil {
		return nil, nil, err
	}

	client := api.NewClientWithJar(&config.ClientConfig{
		BaseURL:     baseURL(),
		HTTPTimeout: cfg.Client.HTTPTimeout,
	}, jar)
	return client, jar.Save, nil
}

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

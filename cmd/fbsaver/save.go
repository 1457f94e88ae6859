package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fbsaver/pkg/auth"
	"fbsaver/pkg/config"
	"fbsaver/pkg/logger"
	"fbsaver/pkg/saver"
)

var (
	// Save command flags
	outputDir   string
	concurrent  int
	rateLimit   int
	accountName string
	skipVideos  bool
	skipImages  bool
)

// saveCmd represents the save command
var saveCmd = &cobra.Command{
	Use:   "save <capture-file>",
	Short: "Save the posts found in a captured feed session",
	Long: `Process a JSONL capture file recorded while scrolling the Facebook feed
and save every post it contains.

Each post becomes a folder holding an index.md document plus the post's
photos and videos. Posts whose attachments were only partially embedded in
the feed are completed by replaying the captured media navigation requests,
which requires valid session credentials configured through:
  - Stored credentials (use 'fbsaver auth login' to store)
  - Environment variables (FBSAVER_C_USER, FBSAVER_XS, FBSAVER_FB_DTSG)
  - Configuration file

Posts already recorded in the output archive are skipped, so re-running
over an extended capture only saves what is new.`,
	Example: `  # Save posts using default settings
  fbsaver save feed-capture.jsonl

  # Save to a specific directory with more parallel downloads
  fbsaver save feed-capture.jsonl --output ./archive --concurrent 5

  # Use a specific stored account
  fbsaver save feed-capture.jsonl --account 100001234567890

  # Documents and photos only
  fbsaver save feed-capture.jsonl --skip-videos`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runSave(args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)

	saveCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: current directory)")
	saveCmd.Flags().IntVar(&concurrent, "concurrent", 3, "number of concurrent downloads")
	saveCmd.Flags().IntVar(&rateLimit, "rate-limit", 60, "requests per minute")
	saveCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
	saveCmd.Flags().BoolVar(&skipVideos, "skip-videos", false, "do not download videos")
	saveCmd.Flags().BoolVar(&skipImages, "skip-images", false, "do not download photos")
}

func runSave(capturePath string) {
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if concurrent != 3 {
		flags["concurrent"] = concurrent
	}
	if rateLimit != 60 {
		flags["rate-limit"] = rateLimit
	}
	if skipVideos {
		flags["skip-videos"] = true
	}
	if skipImages {
		flags["skip-images"] = true
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	logger.Initialize(&cfg.Logging)
	logger.WithField("version", version).Info("fbsaver starting")

	if err := resolveCredentials(cfg); err != nil {
		logger.WithError(err).Error("No session credentials found")
		fmt.Fprintln(os.Stderr, "No Facebook session credentials found.")
		fmt.Fprintln(os.Stderr, "\nTo store credentials securely, run:")
		fmt.Fprintln(os.Stderr, "  fbsaver auth login")
		fmt.Fprintln(os.Stderr, "\nOr set environment variables:")
		fmt.Fprintln(os.Stderr, "  export FBSAVER_C_USER=...")
		fmt.Fprintln(os.Stderr, "  export FBSAVER_XS=...")
		fmt.Fprintln(os.Stderr, "  export FBSAVER_FB_DTSG=...")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := saver.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize:", err)
		os.Exit(1)
	}

	stats, err := s.ProcessCapture(ctx, capturePath)
	if err != nil {
		logger.WithError(err).Error("Saving failed")
		fmt.Fprintln(os.Stderr, "Saving failed:", err)
		os.Exit(1)
	}

	fmt.Printf("Saved %d of %d posts (%d already archived, %d files written, %d failed) in %s\n",
		stats.Stories-stats.Skipped, stats.Stories, stats.Skipped,
		stats.FilesSaved, stats.FilesFailed, stats.Duration.Round(10*time.Millisecond))
}

// resolveCredentials fills cfg.Facebook from the credential manager when the
// config and environment did not already provide a session
func resolveCredentials(cfg *config.Config) error {
	if accountName == "" && cfg.Facebook.CUser != "" && cfg.Facebook.XS != "" && cfg.Facebook.FBDtsg != "" {
		return nil
	}

	credManager, err := auth.NewManager()
	if err != nil {
		return err
	}

	var account *auth.Account
	if accountName != "" {
		account, err = credManager.Retrieve(accountName)
	} else {
		account, err = credManager.RetrieveDefault()
	}
	if err != nil {
		return err
	}

	cfg.Facebook.CUser = account.CUser
	cfg.Facebook.XS = account.XS
	cfg.Facebook.FBDtsg = account.FBDtsg
	if account.UserAgent != "" {
		cfg.Facebook.UserAgent = account.UserAgent
	}

	logger.WithField("account", account.Label).Info("Using stored credentials")
	return nil
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fbsaver/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage fbsaver configuration files.

Configuration is loaded with the following precedence:
  1. Command line flags
  2. Environment variables (FBSAVER_*)
  3. .env files
  4. Configuration file (.fbsaver.yaml)
  5. Built-in defaults`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create a configuration file with default values at ~/.fbsaver.yaml,
or at the path given with --config.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Show the effective configuration after merging all sources. Secret values are redacted.`,
	Run:   runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Run:   runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Failed to determine home directory:", err)
			os.Exit(1)
		}
		path = filepath.Join(home, ".fbsaver.yaml")
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "Configuration file already exists: %s\n", path)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to write configuration:", err)
		os.Exit(1)
	}

	fmt.Println("Configuration file created:", path)
	fmt.Println("Edit it to set your session credentials, or run 'fbsaver auth login'.")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	fmt.Println("Facebook:")
	fmt.Printf("  c_user:     %s\n", redact(cfg.Facebook.CUser))
	fmt.Printf("  xs:         %s\n", redact(cfg.Facebook.XS))
	fmt.Printf("  fb_dtsg:    %s\n", redact(cfg.Facebook.FBDtsg))
	fmt.Printf("  user_agent: %s\n", cfg.Facebook.UserAgent)
	fmt.Println("Rate limit:")
	fmt.Printf("  requests_per_minute: %d\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  max_retries:         %d\n", cfg.RateLimit.MaxRetries)
	fmt.Println("Output:")
	fmt.Printf("  base_directory:     %s\n", cfg.Output.BaseDirectory)
	fmt.Printf("  overwrite_existing: %v\n", cfg.Output.OverwriteExisting)
	fmt.Println("Download:")
	fmt.Printf("  concurrent_downloads: %d\n", cfg.Download.ConcurrentDownloads)
	fmt.Printf("  download_timeout:     %s\n", cfg.Download.DownloadTimeout)
	fmt.Printf("  skip_videos:          %v\n", cfg.Download.SkipVideos)
	fmt.Printf("  skip_images:          %v\n", cfg.Download.SkipImages)
	fmt.Println("Logging:")
	fmt.Printf("  level: %s\n", cfg.Logging.Level)
	if cfg.Logging.File != "" {
		fmt.Printf("  file:  %s\n", cfg.Logging.File)
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if _, err := config.Load(configFile, nil); err != nil {
		fmt.Fprintln(os.Stderr, "Configuration invalid:", err)
		os.Exit(1)
	}
	fmt.Println("Configuration is valid.")
}

func redact(value string) string {
	if value == "" {
		return "(not set)"
	}
	if len(value) <= 4 {
		return "****"
	}
	return value[:4] + "****"
}

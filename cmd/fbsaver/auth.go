package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fbsaver/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Facebook session credentials",
	Long: `Manage stored Facebook session credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store Facebook session credentials securely",
	Long: `Store a captured Facebook session securely in the system keychain or an
encrypted file.

You will be prompted for:
  - Account label (your c_user id works well)
  - c_user cookie
  - xs cookie
  - fb_dtsg token
  - User agent (optional, press Enter for default)

To get these values:
1. Log into Facebook in your browser
2. Open Developer Tools (F12)
3. Cookies: Application/Storage > Cookies for the c_user and xs values
4. fb_dtsg: look at the form data of any request to /api/graphql/`,
	Example: `  # Interactive login
  fbsaver auth login`,
	Args: cobra.NoArgs,
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout <label>",
	Short: "Remove stored credentials",
	Long:  `Remove the stored Facebook session for the given account label.`,
	Example: `  # Remove a stored account
  fbsaver auth logout 100001234567890`,
	Args: cobra.ExactArgs(1),
	Run:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored Facebook accounts without revealing secret values.`,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize credential manager:", err)
		os.Exit(1)
	}

	account, err := auth.PromptAccount()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Login cancelled:", err)
		os.Exit(1)
	}

	if err := manager.Store(account); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to store credentials:", err)
		os.Exit(1)
	}

	fmt.Printf("Credentials stored for account %q\n", account.Label)
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize credential manager:", err)
		os.Exit(1)
	}

	label := args[0]
	if err := manager.Delete(label); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to remove credentials:", err)
		os.Exit(1)
	}

	fmt.Printf("Credentials removed for account %q\n", label)
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize credential manager:", err)
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to list accounts:", err)
		os.Exit(1)
	}

	if len(accounts) == 0 {
		fmt.Println("No stored accounts. Use 'fbsaver auth login' to add one.")
		return
	}

	fmt.Println("Stored accounts:")
	for _, account := range accounts {
		fmt.Printf("  %s (c_user %s", account.Label, account.CUser)
		if !account.LastModified.IsZero() {
			fmt.Printf(", updated %s", account.LastModified.Format("2006-01-02 15:04"))
		}
		fmt.Println(")")
	}
}

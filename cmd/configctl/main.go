// Command configctl is the CLI client for the configuration store's HTTP
// API: set/get/delete against a single context key, list across a
// resource, plus remote profile management.
package main

import (
	"fmt"
	"os"

	"github.com/hypertrace/config-service-go/internal/client"
	"github.com/hypertrace/config-service-go/internal/ui"
	"github.com/spf13/cobra"
)

var (
	httpURL    string
	token      string
	userID     string
	userEmail  string
	jsonOutput bool
	noColor    bool

	apiClient *client.Client
)

func defaultHTTPURL() string {
	if s := os.Getenv("CONFIGCTL_HTTP_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func defaultToken() string {
	if s := os.Getenv("CONFIGCTL_TOKEN"); s != "" {
		return s
	}
	return activeRemoteToken()
}

var rootCmd = &cobra.Command{
	Use:   "configctl <command>",
	Short: "CLI client for the configuration store",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		apiClient = client.New(httpURL, token, userID, userEmail)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "configsvc HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", defaultToken(), "bearer auth token")
	rootCmd.PersistentFlags().StringVar(&userID, "user-id", os.Getenv("CONFIGCTL_USER_ID"), "attributed user id for writes")
	rootCmd.PersistentFlags().StringVar(&userEmail, "user-email", os.Getenv("CONFIGCTL_USER_EMAIL"), "attributed user email for writes")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "configs", Title: "Configs:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	rootCmd.SetHelpFunc(colorizedHelpFunc())

	rootCmd.AddCommand(setCmd, getCmd, deleteCmd, listCmd, remoteCmd)
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--no-color" {
			ui.ForceNoColor()
			break
		}
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

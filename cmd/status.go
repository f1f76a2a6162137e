package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusURL string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check a running instance's health",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(statusURL + "/health")
		if err != nil {
			return fmt.Errorf("instance unreachable: %w", err)
		}
		defer resp.Body.Close()

		var health map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			return fmt.Errorf("unexpected health response: %w", err)
		}

		fmt.Printf("status:      %v\n", health["status"])
		fmt.Printf("redis:       %v\n", health["redis"])
		fmt.Printf("environment: %v\n", health["environment"])
		fmt.Printf("uptime:      %vs\n", health["uptime_sec"])
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusURL, "url", "http://localhost:8000", "base URL of the running instance")
	rootCmd.AddCommand(statusCmd)
}

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the dashboard URL for the running server",
	Long: `Read the dashboard token written by a running 'labrat serve' and print
the ready-to-open dashboard URL.`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(tokenFilePath())
	if err != nil {
		return fmt.Errorf("no token file found - is the server running? (%w)", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return fmt.Errorf("token file is empty")
	}

	p := port
	if p == 0 {
		p = 8080
	}
	fmt.Printf("http://localhost:%d/dashboard?token=%s\n", p, token)
	return nil
}

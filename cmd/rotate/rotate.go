package rotate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/spf13/cobra"

	"github.com/stephnangue/gatehouse/auth"
)

var (
	flagAddress string

	RotateCmd = &cobra.Command{
		Use:           "rotate",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "Rotate the signing secret of the authenticated principal",
		Long: `
Rotates the signing secret behind the token in the GATEHOUSE_TOKEN
environment variable. Every token issued before the rotation becomes
invalid immediately; the command prints a fresh token signed with the
new secret.

Usage:
  $ GATEHOUSE_TOKEN=<token> gatehouse rotate --address=http://127.0.0.1:8200
`,
		RunE: run,
	}
)

func init() {
	RotateCmd.Flags().StringVar(&flagAddress, "address", "http://127.0.0.1:8200", "Address of the gatehouse issuer")
}

func run(cmd *cobra.Command, args []string) error {
	token := os.Getenv("GATEHOUSE_TOKEN")
	if token == "" {
		return fmt.Errorf("GATEHOUSE_TOKEN is not set")
	}

	url := strings.TrimRight(flagAddress, "/") + "/v1/auth/rotate"
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := cleanhttp.DefaultClient().Do(req)
	if err != nil {
		return fmt.Errorf("rotation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rotation failed: server returned status %d", resp.StatusCode)
	}

	var rotated auth.AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&rotated); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Signing secret successfully rotated")
	fmt.Printf("New token (expires at %d):\n%s\n", rotated.ExpiresAt, rotated.Token)
	fmt.Println()

	return nil
}

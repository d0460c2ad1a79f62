package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stephnangue/gatehouse/cmd/rotate"
	"github.com/stephnangue/gatehouse/cmd/server"
)

var gatehouseCmd = &cobra.Command{
	Use:   "gatehouse",
	Short: "Gatehouse is a per-principal token authentication service",
	Long: `Gatehouse mints bearer tokens signed with a secret unique to each
principal and validates them either locally, against the principal's
stored secret, or remotely, by asking the issuing service through its
introspection endpoint. Rotating a principal's secret instantly
invalidates every token issued before the rotation.`,
}

func Execute() {
	if err := gatehouseCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	gatehouseCmd.AddCommand(server.ServerCmd)
	gatehouseCmd.AddCommand(rotate.RotateCmd)
}

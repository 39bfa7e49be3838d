package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmehra2102/checkout-service/pkg/shutdown"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "checkout-service",
		Short:        "Product catalog and Stripe checkout service",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	ctx, cancel := shutdown.WithSignals(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/h1labs/labs/internal/control"
	"github.com/h1labs/labs/internal/indexing/scanner"
)

var (
	scanLimit   int
	scanOwner   string
	scanTimeout time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Print the most recent LabCreated events as JSON",
	Run:   runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanLimit, "limit", scanner.DefaultFeedTarget, "number of events to collect")
	scanCmd.Flags().StringVar(&scanOwner, "owner", "", "only events created by this address")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 2*time.Minute, "overall scan timeout")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ledger, err := control.NewLedger(cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to initialize scanner", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = ledger.Endpoints.Close()
	}()

	var owner *common.Address
	if scanOwner != "" {
		if !common.IsHexAddress(scanOwner) {
			slog.Error("Invalid owner address", "owner", scanOwner)
			os.Exit(1)
		}
		addr := common.HexToAddress(scanOwner)
		owner = &addr
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
	defer cancel()

	res, err := ledger.Scanner.Scan(ctx, scanLimit, owner)
	if err != nil {
		slog.Error("Scan failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		slog.Error("Failed to write result", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/dbus"
)

var closeCmd = &cobra.Command{
	Use:   "close id...",
	Short: "Close notifications",
	Long: `Ask the daemon to close notifications by the ids "toast send" printed.

The sender of each notification is told it was closed by request.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClose,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the running notification daemon",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(infoCmd)
}

func runClose(cmd *cobra.Command, args []string) error {
	ids := make([]uint32, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 32)
		if err != nil || id == 0 {
			return fmt.Errorf("invalid notification id %q", arg)
		}
		ids = append(ids, uint32(id))
	}

	client, err := dbus.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	for _, id := range ids {
		if err := client.CloseNotification(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Debug("close requested", "id", id)
	}
	return errors.Join(errs...)
}

func runInfo(cmd *cobra.Command, args []string) error {
	client, err := dbus.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := client.ServerInformation(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s), spec %s\n", info.Name, info.Version, info.Vendor, info.SpecVersion)
	return nil
}

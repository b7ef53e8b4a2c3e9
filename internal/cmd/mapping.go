package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veil-labs/veil/internal/config"
	"github.com/veil-labs/veil/internal/storage"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Inspect or clear the saved entity map",
}

var mappingShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved entity map JSON",
	RunE:  runMappingShow,
}

var mappingClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved entity map",
	RunE:  runMappingClear,
}

func init() {
	mappingCmd.AddCommand(mappingShowCmd)
	mappingCmd.AddCommand(mappingClearCmd)
	rootCmd.AddCommand(mappingCmd)
}

func openStore() (*storage.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return storage.NewStore(cfg.StoreDBPath())
}

func runMappingShow(cmd *cobra.Command, _ []string) error {
	ctx, span := tracer.Start(cmd.Context(), "mapping.show")
	defer span.End()

	kv, err := openStore()
	if err != nil {
		return err
	}
	defer kv.Close()

	data, err := kv.Load(ctx, storage.KeyEntityMap)
	if errors.Is(err, storage.ErrKeyNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "{}")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runMappingClear(cmd *cobra.Command, _ []string) error {
	ctx, span := tracer.Start(cmd.Context(), "mapping.clear")
	defer span.End()

	kv, err := openStore()
	if err != nil {
		return err
	}
	defer kv.Close()

	if err := kv.Remove(ctx, storage.KeyEntityMap); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Saved entity map deleted.")
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veil-labs/veil/internal/anonymizer"
	"github.com/veil-labs/veil/internal/config"
	"github.com/veil-labs/veil/internal/storage"
)

var (
	deanonymizeFile    string
	deanonymizeMapping string
)

var deanonymizeCmd = &cobra.Command{
	Use:   "deanonymize [text]",
	Short: "Restore original values in tokenized text",
	Long: `Deanonymize replaces <PII_{TYPE}_{n}> placeholders with the original
values from an entity map. The map is read from --mapping when given,
otherwise from the last map saved by 'veil anonymize'. Placeholders not
resolvable from the map are left unchanged.`,
	RunE: runDeanonymize,
}

func init() {
	deanonymizeCmd.Flags().StringVar(&deanonymizeFile, "file", "", "Read text from a file instead of the argument")
	deanonymizeCmd.Flags().StringVar(&deanonymizeMapping, "mapping", "", "Entity map JSON file (default: last saved map)")
	rootCmd.AddCommand(deanonymizeCmd)
}

func runDeanonymize(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "deanonymize")
	defer span.End()

	text, err := readInput(args, deanonymizeFile)
	if err != nil {
		return err
	}

	m, err := loadMapping(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), anonymizer.Deanonymize(ctx, text, m))
	return nil
}

// loadMapping reads the entity map from --mapping or from the store.
func loadMapping(ctx context.Context) (anonymizer.EntityMap, error) {
	if deanonymizeMapping != "" {
		data, err := os.ReadFile(deanonymizeMapping)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", deanonymizeMapping, err)
		}
		return anonymizer.ParseEntityMap(data)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	kv, err := storage.NewStore(cfg.StoreDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer kv.Close()

	data, err := kv.Load(ctx, storage.KeyEntityMap)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, fmt.Errorf("no saved entity map; run 'veil anonymize' first or pass --mapping")
	}
	if err != nil {
		return nil, err
	}
	return anonymizer.ParseEntityMap(data)
}

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veil-labs/veil/internal/session"
)

var (
	anonymizeFile       string
	anonymizeExternal   bool
	anonymizeMappingOut string
)

var anonymizeCmd = &cobra.Command{
	Use:   "anonymize [text]",
	Short: "Replace detected PII with reversible token placeholders",
	Long: `Anonymize detects PII in the input, rewrites it with <PII_{TYPE}_{n}>
placeholders, and prints the tokenized text to stdout. The entity map
needed to reverse the rewrite is persisted in the local store and can
also be written to a file with --mapping-out.`,
	RunE: runAnonymize,
}

func init() {
	anonymizeCmd.Flags().StringVar(&anonymizeFile, "file", "", "Read text from a file instead of the argument")
	anonymizeCmd.Flags().BoolVar(&anonymizeExternal, "external", false, "Also query the configured external entity source")
	anonymizeCmd.Flags().StringVar(&anonymizeMappingOut, "mapping-out", "", "Write the entity map JSON to this file")
	rootCmd.AddCommand(anonymizeCmd)
}

func runAnonymize(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "anonymize")
	defer span.End()

	text, err := readInput(args, anonymizeFile)
	if err != nil {
		return err
	}

	sess, cleanup, err := buildSession(anonymizeExternal)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := sess.Detect(ctx, text); err != nil {
		if errors.Is(err, session.ErrEmptyInput) {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: external source failed: %v\n", err)
	}

	tokenized, m, err := sess.Anonymize(ctx, text)
	if err != nil {
		return err
	}

	if anonymizeMappingOut != "" {
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding entity map: %w", err)
		}
		if err := os.WriteFile(anonymizeMappingOut, data, 0o600); err != nil {
			return fmt.Errorf("writing entity map: %w", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), tokenized)
	return nil
}

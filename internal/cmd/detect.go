package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veil-labs/veil/internal/session"
)

var (
	detectFile     string
	detectExternal bool
	detectFormat   string
)

var detectCmd = &cobra.Command{
	Use:   "detect [text]",
	Short: "Detect PII entities in text without rewriting it",
	RunE:  runDetect,
}

func init() {
	detectCmd.Flags().StringVar(&detectFile, "file", "", "Read text from a file instead of the argument")
	detectCmd.Flags().BoolVar(&detectExternal, "external", false, "Also query the configured external entity source")
	detectCmd.Flags().StringVar(&detectFormat, "format", "text", "Output format: text or json")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "detect")
	defer span.End()

	text, err := readInput(args, detectFile)
	if err != nil {
		return err
	}

	sess, cleanup, err := buildSession(detectExternal)
	if err != nil {
		return err
	}
	defer cleanup()

	entities, err := sess.Detect(ctx, text)
	if errors.Is(err, session.ErrEmptyInput) {
		return err
	}
	if err != nil {
		// Regex entities survive an external failure; report and print them.
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: external source failed: %v\n", err)
	}

	out := cmd.OutOrStdout()
	if detectFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entities)
	}

	if len(entities) == 0 {
		fmt.Fprintln(out, "No PII detected.")
		return nil
	}
	for i, e := range entities {
		fmt.Fprintf(out, "%3d  %-22s %-10s [%d:%d)  %s\n", i, e.Type, e.Type.Display(), e.Start, e.End, e.Text)
	}
	return nil
}

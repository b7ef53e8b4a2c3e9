package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/veil-labs/veil/internal/config"
	"github.com/veil-labs/veil/internal/detector"
	"github.com/veil-labs/veil/internal/llm"
	"github.com/veil-labs/veil/internal/session"
	"github.com/veil-labs/veil/internal/storage"
)

// readInput resolves the text to process: --file wins, then positional
// args joined with spaces, then stdin when it is piped.
func readInput(args []string, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", file, err)
		}
		return string(data), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("no text supplied: pass it as an argument, via --file, or on stdin")
}

// buildSession assembles a session from the resolved config. The
// returned cleanup closes the storage collaborator and is safe to call
// when storage failed to open; persistence stays optional.
func buildSession(useExternal bool) (*session.Session, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	var detOpts []detector.Option
	if cfg.PatternFile != "" {
		detOpts = append(detOpts, detector.WithPatternFile(cfg.PatternFile))
	}
	det, err := detector.New(detOpts...)
	if err != nil {
		return nil, nil, err
	}

	settings := config.DefaultSettings()
	settings.UseExternalSource = useExternal

	opts := []session.Option{session.WithSettings(settings)}

	if useExternal {
		provider, err := llm.NewProvider(cfg.Provider, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, session.WithExternalSource(llm.NewSource(provider)))
	}

	cleanup := func() {}
	if err := cfg.EnsureDataDir(); err == nil {
		if kv, err := storage.NewStore(cfg.StoreDBPath()); err == nil {
			opts = append(opts, session.WithStorage(kv))
			cleanup = func() { _ = kv.Close() }
		} else {
			log.Warn().Err(err).Msg("storage_unavailable")
		}
	} else {
		log.Warn().Err(err).Msg("storage_unavailable")
	}

	return session.New(det, opts...), cleanup, nil
}

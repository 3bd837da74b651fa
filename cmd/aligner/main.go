// Command aligner batch-processes a directory of voice-line audio and
// text into timed, quality-assessed phoneme tracks suitable for lip-sync
// animation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/voicelab/phonealign/cmd/aligner/collab"
	"github.com/voicelab/phonealign/cmd/aligner/config"
	"github.com/voicelab/phonealign/cmd/aligner/format"
	"github.com/voicelab/phonealign/cmd/aligner/pipeline"
	"github.com/voicelab/phonealign/cmd/aligner/queue"
	"github.com/voicelab/phonealign/cmd/aligner/similarity"
)

const pollRate = 500 * time.Millisecond

func slogReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		if source, ok := a.Value.Any().(*slog.Source); ok {
			source.File = filepath.Base(source.File)
		}
	}
	return a
}

func main() {
	settingsFile := flag.String("config", "aligner.yaml", "path to the operator settings file")
	stringsFile := flag.String("strings", "", "path to the strings CSV (native or Redkit dialect)")
	baseMappingFile := flag.String("actor-mappings", "", "path to the base actor.captions.cfg file")
	overrideMappingFile := flag.String("actor-mappings-override", "", "path to the override actor.captions.cfg file")
	flag.Parse()

	cfg, err := config.LoadYAML(*settingsFile)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.FromEnv()
		cfg.SetDefaults()
	} else if err != nil {
		slog.Error("failed to load settings file", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.IsValid(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logFile, err := os.Create(filepath.Join(cfg.DataDir, "aligner.log"))
	if err != nil {
		slog.Error("failed to create log file", slog.Any("error", err))
		os.Exit(1)
	}
	defer logFile.Close()

	logWriter := io.MultiWriter(os.Stdout, logFile)
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.LevelInfo,
		ReplaceAttr: slogReplaceAttr,
	}))
	slog.SetDefault(logger)

	slog.Info("starting aligner", slog.String("dataDir", cfg.DataDir), slog.Int("workers", cfg.NumWorkers))

	sim, err := loadSimilarity(cfg.SimilarityCSV)
	if err != nil {
		slog.Error("failed to load similarity matrix", slog.Any("error", err))
		os.Exit(1)
	}

	strTable, err := loadStrings(*stringsFile, cfg.Language)
	if err != nil {
		slog.Error("failed to load strings table", slog.Any("error", err))
		os.Exit(1)
	}

	actorMapping, err := loadActorMapping(*baseMappingFile, *overrideMappingFile)
	if err != nil {
		slog.Error("failed to load actor mappings", slog.Any("error", err))
		os.Exit(1)
	}

	q, err := queue.NewFromDirectory(cfg.DataDir, cfg.ForceRename)
	if err != nil {
		slog.Error("failed to scan data directory", slog.Any("error", err))
		os.Exit(1)
	}

	worker := &pipeline.Worker{
		Language:     cfg.Language,
		Strings:      strTable,
		Similarity:   sim,
		ActorMapping: actorMapping,
		Translator:   collab.NullTranslator{},
		Extractor:    collab.NullExtractor{},
		AudioLoader:  collab.FileAudioLoader{},
	}

	pool := queue.NewPool(q, worker, cfg.NumWorkers, pollRate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	slog.Info("received stop signal, shutting down")
	cancel()
	pool.Stop()

	if actorMapping != nil && actorMapping.Changed() {
		if err := storeActorMapping(*overrideMappingFile, actorMapping); err != nil {
			slog.Error("failed to persist actor mapping overrides", slog.Any("error", err))
		}
	}

	slog.Info("aligner has finished, exiting")
}

func loadSimilarity(path string) (*similarity.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return similarity.LoadCSV(f)
}

func loadStrings(path, language string) (*format.Strings, error) {
	if path == "" {
		return &format.Strings{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return format.LoadStrings(f, language)
}

func loadActorMapping(basePath, overridePath string) (*collab.ActorMapping, error) {
	baseFile, err := openOptional(basePath)
	if err != nil {
		return nil, err
	}
	if baseFile != nil {
		defer baseFile.Close()
	}

	overrideFile, err := openOptional(overridePath)
	if err != nil {
		return nil, err
	}
	if overrideFile != nil {
		defer overrideFile.Close()
	}

	// base/overrideFile must be passed as untyped nil, not a nil *os.File
	// wrapped in a non-nil io.Reader, or NewActorMapping's nil checks
	// would never trigger.
	var base, override io.Reader
	if baseFile != nil {
		base = baseFile
	}
	if overrideFile != nil {
		override = overrideFile
	}

	return collab.NewActorMapping(base, override)
}

func openOptional(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}

func storeActorMapping(overridePath string, m *collab.ActorMapping) error {
	if overridePath == "" {
		return nil
	}
	f, err := os.Create(overridePath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", overridePath, err)
	}
	defer f.Close()
	return m.StoreUpdated(f)
}

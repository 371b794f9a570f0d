package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/google/etwtopprof/internal/cli"
	"github.com/google/etwtopprof/pkg/etw"
	"github.com/google/etwtopprof/pkg/pprofexport"
)

const progressInterval = 500000

var (
	inputPath   string
	outputPath  string
	configPath  string
	logLevelStr string

	exportConfig pprofexport.Config
)

func init() {
	flags := rootCmd.Flags()

	flags.StringVarP(
		&inputPath,
		"input",
		"i",
		"",
		"Path to the symbolized sample stream (JSON lines, optionally gzipped)",
	)
	_ = rootCmd.MarkFlagRequired("input")
	_ = rootCmd.MarkFlagFilename("input")

	flags.StringVarP(
		&outputPath,
		"output",
		"o",
		"profile.pb.gz",
		"Path to write the gzip-compressed pprof profile to",
	)

	flags.StringVarP(
		&configPath,
		"config",
		"c",
		"",
		"Path to an optional YAML config; explicitly set flags win over it",
	)
	_ = rootCmd.MarkFlagFilename("config")

	flags.StringVar(
		&logLevelStr,
		"log-level",
		"info",
		"Logging level - ('info') {'debug', 'info', 'warn', 'error'}",
	)

	flags.BoolVar(
		&exportConfig.IncludeInlinedFunctions,
		"include-inlined-functions",
		false,
		"Emit one profile line per inlined function",
	)
	flags.BoolVar(
		&exportConfig.IncludeProcessIDs,
		"include-process-ids",
		false,
		"Suffix process labels with the numeric process id",
	)
	flags.BoolVar(
		&exportConfig.IncludeProcessAndThreadIDs,
		"include-process-and-thread-ids",
		false,
		"Suffix process and thread labels with their numeric ids",
	)
	flags.StringVar(
		&exportConfig.StripSourceFileNamePrefix,
		"strip-source-file-name-prefix",
		"",
		"Case-insensitive regexp removed from the start of source file names",
	)
	flags.Float64Var(
		&exportConfig.TimeStart,
		"time-start",
		0,
		"Start of the export window, seconds from trace start",
	)
	flags.Float64Var(
		&exportConfig.TimeEnd,
		"time-end",
		0,
		"End of the export window, seconds from trace start (0 = unbounded)",
	)
	flags.StringSliceVarP(
		&exportConfig.ProcessFilter,
		"process-filter",
		"p",
		nil,
		`Process image substrings to export ("*" exports all processes)`,
	)
}

func loadConfig(cmd *cobra.Command) (*pprofexport.Config, error) {
	if configPath == "" {
		return &exportConfig, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	config := &pprofexport.Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
	}

	// Flags the user set explicitly override the file.
	flags := cmd.Flags()
	if flags.Changed("include-inlined-functions") {
		config.IncludeInlinedFunctions = exportConfig.IncludeInlinedFunctions
	}
	if flags.Changed("include-process-ids") {
		config.IncludeProcessIDs = exportConfig.IncludeProcessIDs
	}
	if flags.Changed("include-process-and-thread-ids") {
		config.IncludeProcessAndThreadIDs = exportConfig.IncludeProcessAndThreadIDs
	}
	if flags.Changed("strip-source-file-name-prefix") {
		config.StripSourceFileNamePrefix = exportConfig.StripSourceFileNamePrefix
	}
	if flags.Changed("time-start") {
		config.TimeStart = exportConfig.TimeStart
	}
	if flags.Changed("time-end") {
		config.TimeEnd = exportConfig.TimeEnd
	}
	if flags.Changed("process-filter") {
		config.ProcessFilter = exportConfig.ProcessFilter
	}
	return config, nil
}

func runConvert(cmd *cobra.Command, _ []string) error {
	level, err := zapcore.ParseLevel(logLevelStr)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	logger, err := cli.NewLogger(level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exporter, err := pprofexport.NewExporter(*config, inputPath, logger.Named("exporter"))
	if err != nil {
		return err
	}

	reader := etw.NewReader(logger.Named("reader"))

	var exported, skipped uint64
	err = reader.Read(context.Background(), inputPath, func(sample *etw.Sample) error {
		ok, err := exporter.AddSample(sample)
		if err != nil {
			return err
		}
		if ok {
			exported++
		} else {
			skipped++
		}
		if processed := exported + skipped; processed%progressInterval == 0 {
			logger.Info("Processing samples", zap.Uint64("processed", processed))
		}
		return nil
	})
	if err != nil {
		return err
	}

	size, err := exporter.Write(outputPath)
	if err != nil {
		return err
	}

	logger.Info("Wrote profile",
		zap.String("path", outputPath),
		zap.Int64("bytes", size),
		zap.Uint64("exported", exported),
		zap.Uint64("skipped", skipped))
	return nil
}

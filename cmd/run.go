package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	imagefv "github.com/uefitools/go-imagefv"
	"github.com/uefitools/go-imagefv/internal/fvdump"
)

// CLI are the cli parameters for the imagefv binary
type CLI struct {
	Input   []string         `arg:"" name:"input" help:"Firmware image(s) to process." type:"existingfile"`
	Output  string           `short:"o" default:"extracted_images" help:"Output directory."`
	Parser  string           `default:"uefi-firmware-parser" help:"External firmware-volume dump tool."`
	Verbose bool             `short:"v" optional:"" help:"Verbose logging."`
	Version kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`
}

// Run is the entrypoint into the imagefv cli tool
func Run(version, commit, date string) {
	ctx := context.Background()
	var cli CLI
	kong.Parse(&cli,
		kong.Description("Extract bootloader and charging pictures from imagefv blobs"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	// Check for verbose output
	logLevel := slog.LevelInfo
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	cfg := imagefv.NewConfig(
		imagefv.WithDecomposer(fvdump.New(cli.Parser)),
		imagefv.WithLogger(logger),
	)

	// inputs are processed strictly sequentially, a failed input never
	// prevents the following ones
	for _, input := range cli.Input {
		logger.Info("processing input", "path", input, "output", cli.Output)

		// namespace outputs by input stem when more than one is given
		outputDir := cli.Output
		if len(cli.Input) > 1 {
			stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
			outputDir = filepath.Join(cli.Output, stem)
		}

		extractor, err := imagefv.New(outputDir, cfg)
		if err != nil {
			logger.Error("cannot create extractor", "path", input, "error", err)
			continue
		}

		if err := extractor.ExtractImage(ctx, input); err != nil {
			logger.Error("extraction failed", "path", input, "error", fmt.Sprintf("%+v", err))
			continue
		}
		logger.Info("extraction succeeded", "path", input, "items", extractor.Registry().Len())
	}

	logger.Info("extraction complete")
}

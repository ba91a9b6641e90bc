// Command legacytranscode drives a single installation run: fetch (or read
// a local override of) the Wise installer blob, transcode every asset it
// carries, and write a content-addressed archive to the output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/darkages-tools/legacytranscode/installer"
	"github.com/darkages-tools/legacytranscode/legacyerr"
)

func main() {
	var (
		outputDir = flag.String("output", ".", "directory receiving the transcoded archive")
		sourceURL = flag.String("source-url", "", "URL to fetch the installer blob from when no local override is present")
		version   = flag.String("version", "", "version stamp; a matching stamp in an existing archive skips re-transcoding")
		usePE     = flag.Bool("resolve-pe", false, "compute the executable offset from the PE section table instead of the fixed default")
		verbose   = flag.Bool("verbose", false, "enable debug-level logging")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	if *version == "" {
		log.Fatal().Msg("legacytranscode: -version is required")
	}

	cfg := installer.Config{
		OutputDir:    *outputDir,
		SourceURL:    *sourceURL,
		Version:      *version,
		ResolveViaPE: *usePE,
		Progress:     consoleProgress{log: log},
		Log:          log,
	}

	err := installer.Install(context.Background(), cfg)
	switch {
	case err == nil:
		log.Info().Msg("legacytranscode: install complete")
	case err == legacyerr.ErrArchiveUpToDate:
		log.Info().Msg("legacytranscode: archive already up to date, nothing to do")
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// consoleProgress renders progress.Sink updates as log lines.
type consoleProgress struct {
	log zerolog.Logger
}

func (p consoleProgress) Report(percent float32, message string) {
	p.log.Info().Float32("percent", percent*100).Msg(message)
}

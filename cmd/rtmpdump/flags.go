package main

import (
	"flag"
	"fmt"
	"os"
)

// cliConfig holds user-supplied flag values. Precedence: flag, then env
// var, then default.
type cliConfig struct {
	inputPath   string
	logLevel    string
	chunkSize   uint
	showVersion bool
}

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("rtmpdump", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.inputPath, "in", "-", "path to a raw RTMP chunk-stream byte file, or \"-\" for stdin")
	fs.StringVar(&cfg.logLevel, "log-level", envOrDefault("RTMP_LOG_LEVEL", "info"), "log level: debug|info|warn|error")
	fs.UintVar(&cfg.chunkSize, "peer-chunk-size", 128, "initial peer max chunk size to assume before any SetChunkSize message is seen")
	fs.BoolVar(&cfg.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOrDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func (c *cliConfig) String() string {
	return fmt.Sprintf("in=%s log-level=%s peer-chunk-size=%d", c.inputPath, c.logLevel, c.chunkSize)
}

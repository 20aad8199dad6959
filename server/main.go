package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/burntcarrot/slatepad/merge"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Flags represents the command-line flags that are passed to slatepad's server.
type Flags struct {
	Addr       string
	Debug      bool
	MaxDepth   int
	TextPolicy string
	CORSOrigin string
	MaxBody    int64
}

// parseFlags parses command-line flags.
func parseFlags() Flags {
	addr := flag.String("addr", ":8080", "Server's network address")
	debug := flag.Bool("debug", false, "Enable debug logs")
	maxDepth := flag.Int("max-depth", merge.DefaultMaxDepth, "Maximum element nesting accepted by the merge engine")
	textPolicy := flag.String("text-policy", merge.PolicyDropRemoved.String(), "How leaf texts are combined: drop-removed or union")
	corsOrigin := flag.String("cors-origin", "*", "Value of the Access-Control-Allow-Origin header")
	maxBody := flag.Int64("max-body", 8<<20, "Maximum size of a submitted document in bytes")

	flag.Parse()

	return Flags{
		Addr:       *addr,
		Debug:      *debug,
		MaxDepth:   *maxDepth,
		TextPolicy: *textPolicy,
		CORSOrigin: *corsOrigin,
		MaxBody:    *maxBody,
	}
}

func main() {
	flags := parseFlags()

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if flags.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	handler, err := newServer(flags, logger)
	if err != nil {
		color.Red("Invalid configuration, exiting: %s", err)
		os.Exit(1)
	}

	color.Green("slatepad server listening on %s\n", flags.Addr)
	logger.WithField("addr", flags.Addr).Info("starting server")
	if err := http.ListenAndServe(flags.Addr, handler); err != nil {
		logger.WithError(err).Fatal("error starting server, exiting")
	}
}

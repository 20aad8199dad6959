package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

var (
	// flags holds the parsed command-line flags.
	flags Flags

	// logger writes to the log files under ~/.slatepad; the terminal belongs to the UI.
	logger = logrus.New()
)

func main() {
	flags = parseFlags()

	dir, err := logDir()
	if err != nil {
		fmt.Printf("Failed to create log directory, exiting: %s", err)
		os.Exit(1)
	}
	logs, err := setupLogger(logger, dir, flags.Debug)
	if err != nil {
		fmt.Printf("Failed to set up logger, exiting: %s", err)
		os.Exit(1)
	}
	defer logs.Close()

	color.Green("Connecting to slatepad server @ %s\n", flags.Server)

	p := tea.NewProgram(initialModel(newAPIClient(flags), flags))
	if err := p.Start(); err != nil {
		color.Red("slatepad exited with an error: %s", err)
		logger.Errorf("program error: %v", err)
		os.Exit(1)
	}
}

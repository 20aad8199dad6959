package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/burntcarrot/slatepad/merge"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"
)

// Flags represents the command-line flags that are passed to slatepad's client.
type Flags struct {
	Server   string
	Secure   bool
	Debug    bool
	Live     bool
	File     string
	Poll     time.Duration
	Debounce time.Duration
}

// parseFlags parses command-line flags.
func parseFlags() Flags {
	serverAddr := flag.String("server", "localhost:8080", "The network address of the server")
	useSecureConn := flag.Bool("secure", false, "Use https:// and wss:// to reach the server")
	enableDebug := flag.Bool("debug", false, "Enable debugging mode to show more verbose logs")
	live := flag.Bool("live", false, "Receive document updates over a WebSocket instead of polling")
	file := flag.String("file", "", "The file to save the document to (Ctrl+S) and load it from (Ctrl+L)")
	poll := flag.Duration("poll", 3*time.Second, "How often to fetch the document from the server")
	debounce := flag.Duration("debounce", 1500*time.Millisecond, "How long to wait after the last keystroke before sending")

	flag.Parse()

	return Flags{
		Server:   *serverAddr,
		Secure:   *useSecureConn,
		Debug:    *enableDebug,
		Live:     *live,
		File:     *file,
		Poll:     *poll,
		Debounce: *debounce,
	}
}

// logDir returns ~/.slatepad, or the working directory when there is no home directory.
func logDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".", nil
	}
	dir := filepath.Join(home, ".slatepad")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// logFiles holds the client's log files so they can be closed together.
type logFiles []*os.File

func (l logFiles) Close() error {
	var firstErr error
	for _, f := range l {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func openLog(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // skipcq: GSC-G302
}

// setupLogger points logger at two files in dir: slatepad.log for warnings and
// errors, and slatepad-debug.log for everything below. Nothing is written to the
// terminal while the UI owns it.
func setupLogger(logger *logrus.Logger, dir string, debug bool) (logFiles, error) {
	logFile, err := openLog(filepath.Join(dir, "slatepad.log"))
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	debugLogFile, err := openLog(filepath.Join(dir, "slatepad-debug.log"))
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening debug log file: %w", err)
	}

	logger.SetOutput(io.Discard)
	logger.SetFormatter(&logrus.JSONFormatter{})
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.AddHook(&writer.Hook{
		Writer: logFile,
		LogLevels: []logrus.Level{
			logrus.WarnLevel,
			logrus.ErrorLevel,
			logrus.FatalLevel,
			logrus.PanicLevel,
		},
	})
	logger.AddHook(&writer.Hook{
		Writer: debugLogFile,
		LogLevels: []logrus.Level{
			logrus.TraceLevel,
			logrus.DebugLevel,
			logrus.InfoLevel,
		},
	})

	return logFiles{logFile, debugLogFile}, nil
}

// printDoc "prints" the document state to the debug log.
func printDoc(doc merge.Document) {
	if !flags.Debug {
		return
	}
	buf, err := json.Marshal(doc)
	if err != nil {
		logger.Errorf("failed to encode document: %v", err)
		return
	}
	logger.Infof("---DOCUMENT STATE--- %s", buf)
}

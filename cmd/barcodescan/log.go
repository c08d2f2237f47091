package main

import (
	"io"
	"os"

	"github.com/kmerbase/barcodescan/kerr"
	"github.com/kmerbase/barcodescan/logger"
	"github.com/pkg/errors"
)

// setupLogger builds the Logger for a subcommand invocation. With no
// --log-file it logs straight to stderr, at LevelDebug if verbose and
// LevelInfo otherwise; with --log-file it also appends to the given file
// via a reopenable FileWriter, so external log rotation (e.g. logrotate
// sending SIGHUP to a supervisor) can call Reopen without restarting the
// process. The returned closer must be closed by the caller once done.
func setupLogger(logFile string, verbose bool) (logger.Logger, io.Closer, error) {
	var w io.Writer = os.Stderr
	var closer io.Closer = noopCloser{}

	if logFile != "" {
		fw, err := logger.NewFileWriter(logFile)
		if err != nil {
			return nil, nil, errors.Wrapf(kerr.ErrBadInput, "opening log file %s: %v", logFile, err)
		}
		w = io.MultiWriter(os.Stderr, fw)
		closer = fw
	}

	if verbose {
		return logger.NewVerboseLogger(w), closer, nil
	}
	return logger.NewStandardLogger(w), closer, nil
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// Package logging builds the engine's structured logger: a logrus.Logger
// writing to two independent sinks (the main log file in the run's numbered
// logs directory, and stderr) each gated at its own level, mirroring the
// original tool's logger_init(path, file_level, stderr_level).
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/netsnitch/netsnitch/config"
)

// levelWriterHook writes every record whose level is at or above threshold
// to dest, independent of the logger's own level. This is what lets file and
// stderr sinks run at different verbosities under one logrus.Logger.
type levelWriterHook struct {
	dest      io.Writer
	threshold logrus.Level
	formatter logrus.Formatter
}

func (h *levelWriterHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *levelWriterHook) Fire(entry *logrus.Entry) error {
	if entry.Level > h.threshold {
		return nil
	}
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.dest.Write(line)
	return err
}

func toLogrusLevel(l config.Level) logrus.Level {
	switch l {
	case config.LevelError:
		return logrus.ErrorLevel
	case config.LevelWarn:
		return logrus.WarnLevel
	case config.LevelInfo:
		return logrus.InfoLevel
	case config.LevelDebug:
		return logrus.DebugLevel
	case config.LevelTrace:
		return logrus.TraceLevel
	default:
		return logrus.WarnLevel
	}
}

// New builds a logger that discards its own default output (io.Discard) and
// instead fans every record out to a stderr hook and, if logFilePath is
// non-empty, a file hook -- each filtered at the level config.Config
// specifies independently.
func New(cfg *config.Config, logFilePath string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.TraceLevel) // the hooks do the real filtering
	logger.AddHook(&levelWriterHook{
		dest:      os.Stderr,
		threshold: toLogrusLevel(cfg.StderrLogLevel),
		formatter: &logrus.TextFormatter{},
	})

	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		logger.AddHook(&levelWriterHook{
			dest:      f,
			threshold: toLogrusLevel(cfg.FileLogLevel),
			formatter: &logrus.JSONFormatter{},
		})
	}

	return logger, nil
}

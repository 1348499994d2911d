// Package logger provides the structured logger used by tps.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/pkg/errors"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/tps/common"
)

const logFileName = "tps.log"

// XMLog wraps *logrus.Logger with command-scoped helpers.
type XMLog struct {
	*logrus.Logger

	// fields are attached to every entry built from this XMLog.
	fields logrus.Fields
}

// Options configures a logger built by New.
type Options struct {
	// OutputPath is a directory for daily-rotated log files. Empty means console.
	OutputPath string
	Verbose    bool
	Level      logrus.Level
	// MaxAge bounds how long rotated files are kept. 0 keeps them for 7 days.
	MaxAge time.Duration
	// Console overrides the console writer. Defaults to os.Stderr so that
	// log lines never mix with a command's forwarded stdout.
	Console io.Writer
}

// defaultFieldsOrder puts the invocation identity first on every line.
var defaultFieldsOrder = []string{
	common.RunID, common.Executable, common.Elevated, common.State,
}

// sensitiveKeys are field names whose values must not reach a log sink.
var sensitiveKeys = []string{"stdin", "password", "secret", "token"}

// New creates a logger. Verbose forces debug level and shows every level name.
func New(opts Options) (*XMLog, error) {
	logger := logrus.New()

	level := opts.Level
	if opts.Verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	display := ShowAboveWarn
	if opts.Verbose {
		display = ShowAll
	}

	if opts.OutputPath == "" {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		logger.SetFormatter(&Formatter{
			TimestampFormat:        "15:04:05",
			DisplayLevelName:       display,
			DisableCaller:          true,
			FieldsDisplayWithOrder: defaultFieldsOrder,
			RedactKeys:             sensitiveKeys,
		})
		logger.SetOutput(console)
		return &XMLog{Logger: logger}, nil
	}

	if err := os.MkdirAll(opts.OutputPath, common.FileMode0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create log output directory %s", opts.OutputPath)
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	logFilePath := filepath.Join(opts.OutputPath, logFileName)
	writer, err := rotatelogs.New(
		logFilePath+".%Y%m%d",
		rotatelogs.WithLinkName(logFilePath),
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to initialize rotatelogs for %s", logFilePath)
	}

	logger.SetReportCaller(true)
	fileFormatter := &Formatter{
		TimestampFormat:        "2006-01-02 15:04:05.000 MST",
		NoColors:               true,
		DisplayLevelName:       display,
		FieldsDisplayWithOrder: defaultFieldsOrder,
		RedactKeys:             sensitiveKeys,
		CustomCallerFormatter: func(frame *runtime.Frame) string {
			return fmt.Sprintf("[%s:%d %s]", filepath.Base(frame.File), frame.Line, filepath.Base(frame.Function))
		},
	}
	logger.SetFormatter(fileFormatter)

	writers := lfshook.WriterMap{}
	for _, lvl := range logrus.AllLevels {
		if logger.IsLevelEnabled(lvl) {
			writers[lvl] = writer
		}
	}
	logger.Hooks.Add(lfshook.NewHook(writers, fileFormatter))
	// The hook owns file output; the default writer would duplicate every line.
	logger.SetOutput(io.Discard)

	return &XMLog{Logger: logger}, nil
}

// WithCommand returns a copy of xl whose entries carry the CLI command name.
func (xl *XMLog) WithCommand(name string) *XMLog {
	fields := make(logrus.Fields, len(xl.fields)+1)
	for k, v := range xl.fields {
		fields[k] = v
	}
	fields[common.Command] = name
	return &XMLog{Logger: xl.Logger, fields: fields}
}

// Entry returns an entry carrying xl's fields.
func (xl *XMLog) Entry() *logrus.Entry {
	return xl.Logger.WithFields(xl.fields)
}

// ForCommand returns an entry scoped to one invocation.
func (xl *XMLog) ForCommand(runID, executable string) *logrus.Entry {
	return xl.Entry().WithFields(logrus.Fields{
		common.RunID:      runID,
		common.Executable: executable,
	})
}

// Discard returns a logger that writes nowhere. It is the default for
// components built without one.
func Discard() *XMLog {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return &XMLog{Logger: l}
}

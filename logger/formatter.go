package logger

import (
	"bytes"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	resetColorCode         = 0
	defaultFieldSeparator  = " | "
	defaultTimestampFormat = time.RFC3339
	redactedValue          = "******"
)

// Formatter implements logrus.Formatter.
type Formatter struct {
	// TimestampFormat defaults to time.RFC3339.
	TimestampFormat string
	// NoColors disables colorized level names.
	NoColors bool
	// ForceColors wins over NoColors.
	ForceColors      bool
	DisableTimestamp bool
	// DisplayLevelName configures which levels print their name.
	DisplayLevelName LevelNameDisplayMode
	// ShowFullLevel prints "WARNING" instead of "WARN".
	ShowFullLevel bool
	// HideKeys prints only field values.
	HideKeys bool
	// FieldsDisplayWithOrder lists keys printed first, in that order.
	// Remaining fields follow alphabetically.
	FieldsDisplayWithOrder []string
	// FieldSeparator defaults to " | ".
	FieldSeparator string
	DisableCaller  bool
	// CustomCallerFormatter overrides the default "(file:line func)" rendering.
	CustomCallerFormatter func(*runtime.Frame) string
	// MaxFieldValueLength truncates longer values. 0 means no truncation.
	MaxFieldValueLength int
	// RedactKeys are field keys whose values are never written.
	RedactKeys []string
}

// LevelNameDisplayMode defines how log level names are displayed.
type LevelNameDisplayMode int

const (
	// ShowAll shows all level names.
	ShowAll LevelNameDisplayMode = iota
	// ShowAboveWarn shows level names for WARN, ERROR, FATAL, PANIC.
	ShowAboveWarn
	// ShowAboveError shows level names for ERROR, FATAL, PANIC.
	ShowAboveError
	// HideAll hides all level names.
	HideAll
)

func (m LevelNameDisplayMode) shows(level logrus.Level) bool {
	switch m {
	case ShowAll:
		return true
	case ShowAboveWarn:
		return level <= logrus.WarnLevel
	case ShowAboveError:
		return level <= logrus.ErrorLevel
	default:
		return false
	}
}

// Format formats the log entry.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := &bytes.Buffer{}

	if !f.DisableTimestamp {
		timestampFormat := f.TimestampFormat
		if timestampFormat == "" {
			timestampFormat = defaultTimestampFormat
		}
		b.WriteString(entry.Time.Format(timestampFormat))
		b.WriteString(" ")
	}

	if f.DisplayLevelName.shows(entry.Level) {
		f.writeLevel(b, entry.Level)
	}

	separator := f.FieldSeparator
	if separator == "" {
		separator = defaultFieldSeparator
	}
	if len(entry.Data) > 0 {
		b.WriteString("[")
		for i, key := range f.orderedKeys(entry.Data) {
			if i > 0 {
				b.WriteString(separator)
			}
			f.writeKeyValue(b, key, entry.Data[key])
		}
		b.WriteString("] ")
	}

	b.WriteString(entry.Message)

	if !f.DisableCaller && entry.HasCaller() {
		b.WriteString(" ")
		f.writeCaller(b, entry.Caller)
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *Formatter) writeLevel(b *bytes.Buffer, level logrus.Level) {
	useColors := !f.NoColors || f.ForceColors
	if useColors {
		fmt.Fprintf(b, "\x1b[%dm", getColorByLevel(level))
	}

	levelStr := level.String()
	if !f.ShowFullLevel && len(levelStr) > 4 {
		levelStr = levelStr[:4]
	}
	fmt.Fprintf(b, "[%s]", strings.ToUpper(levelStr))

	if useColors {
		fmt.Fprintf(b, "\x1b[%dm", resetColorCode)
	}
	b.WriteString(" ")
}

// orderedKeys returns the configured keys that are present, then the rest sorted.
func (f *Formatter) orderedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	seen := make(map[string]bool, len(f.FieldsDisplayWithOrder))
	for _, key := range f.FieldsDisplayWithOrder {
		if _, ok := data[key]; ok && !seen[key] {
			keys = append(keys, key)
			seen[key] = true
		}
	}

	rest := make([]string, 0, len(data)-len(keys))
	for key := range data {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func (f *Formatter) redacted(key string) bool {
	for _, k := range f.RedactKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (f *Formatter) writeKeyValue(b *bytes.Buffer, key string, value interface{}) {
	valStr := fmt.Sprintf("%v", value)
	if f.redacted(key) {
		valStr = redactedValue
	} else if f.MaxFieldValueLength > 0 && len(valStr) > f.MaxFieldValueLength {
		valStr = valStr[:f.MaxFieldValueLength] + "..."
	}

	if f.HideKeys {
		b.WriteString(valStr)
	} else {
		fmt.Fprintf(b, "%s:%s", key, valStr)
	}
}

func (f *Formatter) writeCaller(b *bytes.Buffer, frame *runtime.Frame) {
	if f.CustomCallerFormatter != nil {
		b.WriteString(f.CustomCallerFormatter(frame))
		return
	}
	callerFunc := filepath.Base(frame.Function)
	if parts := strings.Split(callerFunc, "."); len(parts) > 1 {
		callerFunc = parts[len(parts)-1]
	}
	fmt.Fprintf(b, "(%s:%d %s)", filepath.Base(frame.File), frame.Line, callerFunc)
}

func getColorByLevel(level logrus.Level) int {
	switch level {
	case logrus.DebugLevel:
		return colorBlue
	case logrus.WarnLevel:
		return colorYellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return colorRed
	default:
		return colorGray
	}
}

const (
	colorRed    = 31
	colorYellow = 33
	colorBlue   = 36
	colorGray   = 37
)

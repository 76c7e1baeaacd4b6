// Package debug builds the zerolog loggers used by the commands and the language server.
package debug

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// frames between a hook's Run and the code that logged
const hookDepth = 3

const defaultTimeFormat = "2006-01-02T15:04:05.0000Z"

// TimeHook stamps each event with the current UTC time.
type TimeHook struct {
	Format string
}

func (h TimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	format := h.Format
	if format == "" {
		format = defaultTimeFormat
	}
	e.Str(zerolog.TimestampFieldName, time.Now().UTC().Format(format))
}

// CallerHook records the package, file and line of the logging call.
type CallerHook struct {
	Color bool
	// Skip is added to the frame count for loggers wrapped in helpers.
	Skip int
}

func (h CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pc, file, line, ok := runtime.Caller(hookDepth + h.Skip)
	if !ok {
		return
	}
	pkg := ""
	if fn := runtime.FuncForPC(pc); fn != nil {
		pkg, _ = SplitFuncName(fn.Name())
	}
	e.Str(zerolog.CallerFieldName, FormatCaller(pkg, file, line, h.Color))
}

// SplitFuncName splits a runtime function name such as "example.com/a/b.(*T).M" into its package and the
// rest.
func SplitFuncName(name string) (pkg, fn string) {
	lastSlash := max(strings.LastIndexByte(name, '/'), 0)
	dot := strings.IndexByte(name[lastSlash:], '.')
	if dot < 0 {
		return name, ""
	}
	dot += lastSlash
	return name[:dot], name[dot+1:]
}

func FormatCaller(pkg, path string, line int, colorize bool) string {
	file := filepath.Base(path)
	if !colorize {
		return fmt.Sprintf("%s:%s:%d", pkg, file, line)
	}
	sep := color.New(color.Faint).Sprint(":")
	return pkg + sep + color.New(color.Bold).Sprint(file) + sep + color.New(color.FgHiRed, color.Bold).Sprint(line)
}

// NewLogger writes JSON lines to w, or a human console format when pretty is set.
func NewLogger(w io.Writer, level zerolog.Level, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: color.NoColor}
	}
	return zerolog.New(w).
		Level(level).
		Hook(TimeHook{}).
		Hook(CallerHook{Color: pretty && !color.NoColor})
}

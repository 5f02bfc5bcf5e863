// Package debug wires up the console logger used by the command line tools.
package debug

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// TimeFormat is millisecond precision without a zone.
const TimeFormat = "2006-01-02T15:04:05.000Z"

type LoggerOptions struct {
	Level  zerolog.Level
	Color  bool
	Caller bool
}

// NewLogger builds a human readable logger writing to w.
func NewLogger(w io.Writer, opts LoggerOptions) zerolog.Logger {
	color.NoColor = !opts.Color

	console := zerolog.ConsoleWriter{
		Out:     w,
		NoColor: !opts.Color,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			zerolog.CallerFieldName,
			zerolog.MessageFieldName,
		},
	}

	logger := zerolog.New(console).Level(opts.Level).Hook(TimeHook{})
	if opts.Caller {
		logger = logger.Hook(CallerHook{WithColor: opts.Color})
	}
	return logger
}

// WithLogger attaches a NewLogger logger to ctx for zerolog.Ctx.
func WithLogger(ctx context.Context, w io.Writer, opts LoggerOptions) context.Context {
	return NewLogger(w, opts).WithContext(ctx)
}

type TimeHook struct {
	Format string
}

func (t TimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	format := t.Format
	if format == "" {
		format = TimeFormat
	}
	e.Str(zerolog.TimestampFieldName, time.Now().UTC().Format(format))
}

// CallerHook adds a short pkg:file:line caller, optionally colored.
type CallerHook struct {
	WithColor bool
}

func (c CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pc, file, line, ok := runtime.Caller(skipFrames(e) + 3)
	if !ok {
		return
	}

	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return
	}

	pkg, _ := SplitFuncName(fn.Name())
	e.Str(zerolog.CallerFieldName, FormatCaller(pkg, file, line, c.WithColor))
}

// skipFrames reads the event's CallerSkipFrame count, which zerolog keeps unexported.
func skipFrames(e *zerolog.Event) int {
	v := reflect.ValueOf(e).Elem()
	field := v.FieldByName("skipFrame")
	if field.IsValid() && field.CanInt() {
		return int(field.Int())
	}
	return 0
}

// SplitFuncName splits a runtime function name such as
// github.com/walteh/annotree/pkg/dump.(*Dump).Remap into its package and the rest.
func SplitFuncName(name string) (pkg, function string) {
	lastSlash := max(strings.LastIndexByte(name, '/'), 0)

	firstDot := strings.IndexByte(name[lastSlash:], '.')
	if firstDot < 0 {
		return name, ""
	}
	firstDot += lastSlash

	return name[:firstDot], name[firstDot+1:]
}

func FormatCaller(pkg, path string, line int, colorize bool) string {
	pkg = pkg[strings.LastIndexByte(pkg, '/')+1:]
	file := path[strings.LastIndexByte(path, '/')+1:]

	if colorize {
		file = color.New(color.Bold).Sprint(file)
		num := color.New(color.FgHiRed, color.Bold).Sprintf("%d", line)
		sep := color.New(color.Faint).Sprint(":")
		return fmt.Sprintf("%s%s%s%s%s", pkg, sep, file, sep, num)
	}

	return fmt.Sprintf("%s:%s:%d", pkg, file, line)
}

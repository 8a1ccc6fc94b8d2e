// Package logger configures the global zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const stackFramesToSkip = 2

// Options configure Setup.
type Options struct {
	// Level is a zerolog level name; empty means info.
	Level string
	// Format is "console" (default) or "json".
	Format string
	// Out defaults to stderr.
	Out io.Writer
	// RunID, when set, is attached to every event as "run".
	RunID string
}

// Setup replaces log.Logger according to opts.
func Setup(opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	if opts.Level == "" {
		opts.Level = zerolog.LevelInfoValue
	}

	zerolog.ErrorStackMarshaler = errorStackMarshaller //nolint:reassign // set once at startup
	zerolog.InterfaceMarshalFunc = json.Marshal
	zerolog.DurationFieldUnit = time.Millisecond

	lvl, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}

	w := opts.Out
	if !strings.EqualFold(opts.Format, "json") {
		w = zerolog.ConsoleWriter{
			Out:        opts.Out,
			NoColor:    !isTerminal(opts.Out),
			TimeFormat: time.TimeOnly,
			PartsExclude: []string{
				zerolog.ErrorStackFieldName,
				zerolog.CallerFieldName,
			},
		}
	}

	ctx := zerolog.New(w).With().Timestamp().Stack()
	if opts.RunID != "" {
		ctx = ctx.Str("run", opts.RunID)
	}
	log.Logger = ctx.Logger().Level(lvl)

	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func errorStackMarshaller(err error) any {
	m := pkgerrors.MarshalStack(err)
	if m == nil {
		return nil
	}
	frames, ok := m.([]map[string]string)
	if !ok || len(frames) <= stackFramesToSkip {
		return nil
	}
	stacks := make([]string, 0, len(frames)-stackFramesToSkip)
	for _, frame := range frames[:len(frames)-stackFramesToSkip] {
		stacks = append(stacks, fmt.Sprintf("%s:%s:%s",
			frame[pkgerrors.StackSourceFileName],
			frame[pkgerrors.StackSourceLineName],
			frame[pkgerrors.StackSourceFunctionName]))
	}

	return strings.Join(stacks, "<<")
}

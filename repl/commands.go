package repl

import (
	"fmt"
	"strings"

	"opzterm/errors"
	"opzterm/lowering"
	"opzterm/token"
)

// command runs one colon command
func (r *REPL) command(line string) error {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case ":help", ":h":
		r.printHelp()

	case ":quit", ":q", ":exit":
		r.running = false

	case ":mode", ":m":
		if len(args) == 0 {
			r.display.Info("mode: %s", r.mode)
			return nil
		}
		switch Mode(strings.ToLower(args[0])) {
		case ModeLower:
			r.mode = ModeLower
		case ModeRebuild:
			r.mode = ModeRebuild
		default:
			return errors.NewSystemError("BAD_ARGUMENT", fmt.Sprintf("unknown mode '%s' (want lower or rebuild)", args[0]))
		}
		r.buffer.Clear()
		r.display.Info("mode: %s", r.mode)

	case ":dialect", ":d":
		if len(args) == 0 {
			r.display.Info("dialect: %s", r.cfg.Dialect)
			return nil
		}
		d, err := lowering.ParseDialect(args[0])
		if err != nil {
			return errors.WrapError(err, "BAD_ARGUMENT", "cannot switch dialect")
		}
		r.cfg.Dialect = d
		r.display.Info("dialect: %s", d)

	case ":surface", ":s":
		if len(args) == 0 {
			r.display.Info("surface: %s", r.cfg.Surface)
			return nil
		}
		s, err := token.ParseSurface(args[0])
		if err != nil {
			return errors.WrapError(err, "BAD_ARGUMENT", "cannot switch surface")
		}
		r.cfg.Surface = s
		r.display.Info("surface: %s", s)

	case ":buffer", ":b":
		if !r.buffer.IsActive() {
			r.display.Info("the buffer is empty")
			return nil
		}
		for i, l := range r.buffer.GetLines() {
			r.display.Info("%2d: %s", i+1, l)
		}

	case ":reset", ":rb":
		r.buffer.Clear()
		r.display.Info("the buffer has been reset")

	case ":history", ":hist":
		for i, l := range r.history {
			r.display.Info("%3d  %s", i+1, l)
		}

	default:
		return errors.NewSystemError("UNKNOWN_COMMAND", fmt.Sprintf("unknown command '%s', see :help", name))
	}
	return nil
}

func (r *REPL) printHelp() {
	r.display.Info(`Commands:
  :help, :h                      show this help
  :quit, :q, :exit               leave
  :mode [lower|rebuild]          infix to postfix, or postfix back to code
  :dialect [tagged|legacy]       closer markers written when lowering
  :surface [cyrillic|latin]      marker spelling on output
  :buffer, :b                    show continued lines
  :reset, :rb                    drop continued lines
  :history, :hist                show entered lines

A line ending in \ is continued; the next line without \ translates the whole buffer.
Examples:
  opz[lower]> (a - b) > 8              ->  a b - 8 >
  opz[rebuild]> y b i 1 - 1 АЭМ 2 * =  ->  y = b[i - 1] * 2;`)
}

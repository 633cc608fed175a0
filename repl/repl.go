// Package repl is the interactive front end: typed infix lines are linearized
// to postfix, or in rebuild mode typed postfix lines are turned back into code.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"opzterm/errors"
	"opzterm/logging"
	"opzterm/lowering"
	"opzterm/postfix"
	"opzterm/reconstruct"
	"opzterm/token"
)

// Mode selects the direction of translation
type Mode string

const (
	ModeLower   Mode = "lower"
	ModeRebuild Mode = "rebuild"
)

// Config contains configuration for the REPL
type Config struct {
	Prompt         string // default "opz> "
	ContinuePrompt string // default "...  "
	HistoryFile    string // default /tmp/opzterm_history
	HistorySize    int    // default 500
	Dialect        lowering.Dialect
	Surface        token.Surface
	Indent         string
	RecognizeFor   bool
	EnableColors   bool
	Logger         logging.Logger
	In             io.Reader // default os.Stdin
	Out            io.Writer // default os.Stdout
}

// REPL represents the Read-Eval-Print Loop
type REPL struct {
	cfg     Config
	mode    Mode
	running bool
	history []string
	buffer  *MultiLineBuffer
	display *DisplayManager
	logger  logging.Logger
}

// New creates a REPL, filling unset configuration with defaults
func New(cfg Config) *REPL {
	if cfg.Prompt == "" {
		cfg.Prompt = "opz> "
	}
	if cfg.ContinuePrompt == "" {
		cfg.ContinuePrompt = "...  "
	}
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = "/tmp/opzterm_history"
	}
	if cfg.HistorySize == 0 {
		cfg.HistorySize = 500
	}
	if cfg.Dialect == "" {
		cfg.Dialect = lowering.DialectTagged
	}
	if cfg.Surface == "" {
		cfg.Surface = token.SurfaceCyrillic
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNullLogger()
	}
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}

	return &REPL{
		cfg:     cfg,
		mode:    ModeLower,
		buffer:  NewMultiLineBuffer(),
		display: NewDisplayManager(cfg.Out, cfg.EnableColors),
		logger:  cfg.Logger.WithComponent("repl"),
	}
}

// Mode returns the current translation direction
func (r *REPL) Mode() Mode {
	return r.mode
}

// GetHistory returns the lines entered so far
func (r *REPL) GetHistory() []string {
	return r.history
}

// isInteractive checks if the input is a terminal
func (r *REPL) isInteractive() bool {
	f, ok := r.cfg.In.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// Run starts the REPL loop
func (r *REPL) Run() error {
	r.running = true
	if r.isInteractive() {
		return r.runInteractive()
	}
	return r.runPiped()
}

// runInteractive reads with readline: history, line editing and completion
func (r *REPL) runInteractive() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          r.display.Prompt(r.cfg.Prompt, false),
		HistoryFile:     r.cfg.HistoryFile,
		HistoryLimit:    r.cfg.HistorySize,
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
		AutoComplete:    newCompleter(),
		Stdout:          r.cfg.Out,
	})
	if err != nil {
		return errors.NewSystemError("READLINE_INIT_FAILED", fmt.Sprintf("failed to initialize readline: %v", err))
	}
	defer rl.Close()

	r.display.Info("opzterm: type infix code to get postfix, ':mode rebuild' for the reverse, ':help' for commands")

	for r.running {
		rl.SetPrompt(r.display.Prompt(r.prompt(), r.buffer.IsActive()))

		input, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(input) == 0 && !r.buffer.IsActive() {
				break
			}
			r.buffer.Clear()
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.NewSystemError("READ_ERROR", fmt.Sprintf("read error: %v", err))
		}
		r.Feed(input)
	}
	return nil
}

// runPiped processes stdin line by line without readline
func (r *REPL) runPiped() error {
	scanner := bufio.NewScanner(r.cfg.In)
	for r.running && scanner.Scan() {
		r.Feed(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return errors.NewSystemError("STDIN_READ_ERROR", fmt.Sprintf("error reading from stdin: %v", err))
	}
	// незавершённое продолжение всё равно переводим
	if r.buffer.IsActive() {
		r.evalAndPrint(r.buffer.Take())
	}
	return nil
}

func (r *REPL) prompt() string {
	if r.buffer.IsActive() {
		return r.cfg.ContinuePrompt
	}
	return strings.TrimSuffix(r.cfg.Prompt, " ") + "[" + string(r.mode) + "] "
}

// Feed handles one raw input line: a command, a continued line or a line to translate
func (r *REPL) Feed(input string) {
	line := strings.TrimRight(input, "\r\n")
	trimmed := strings.TrimSpace(line)

	if strings.HasPrefix(trimmed, ":") && !r.buffer.IsActive() {
		if err := r.command(trimmed); err != nil {
			r.display.Error(err)
		}
		return
	}
	if trimmed != "" {
		r.history = append(r.history, line)
	}

	if strings.HasSuffix(trimmed, "\\") {
		r.buffer.AddLine(strings.TrimSuffix(strings.TrimRight(line, " \t"), "\\"))
		return
	}
	if r.buffer.IsActive() {
		if trimmed != "" {
			r.buffer.AddLine(line)
		}
		r.evalAndPrint(r.buffer.Take())
		return
	}
	if trimmed == "" {
		return
	}
	r.evalAndPrint([]string{line})
}

func (r *REPL) evalAndPrint(lines []string) {
	out, err := r.Eval(lines)
	if err != nil {
		r.display.Error(err)
		return
	}
	if out != "" {
		r.display.Result(out)
	}
}

// Eval translates lines in the current mode
func (r *REPL) Eval(lines []string) (string, error) {
	if r.mode == ModeRebuild {
		return r.rebuild(lines)
	}
	return r.lower(lines)
}

func (r *REPL) lower(lines []string) (string, error) {
	if len(lines) == 1 && isExpressionLine(lines[0]) {
		tokens, err := lowering.LinearizeExpression(lines[0])
		if err != nil {
			return "", err
		}
		return token.Join(tokens, r.cfg.Surface), nil
	}

	prog, err := lowering.New(lowering.Options{Dialect: r.cfg.Dialect, Logger: r.logger}).Lower(lines)
	if err != nil {
		return "", err
	}
	return strings.Join(prog.Strings(r.cfg.Surface), "\n"), nil
}

func (r *REPL) rebuild(lines []string) (string, error) {
	prog, err := postfix.ParseLines(lines)
	if err != nil {
		return "", err
	}
	rec := reconstruct.New(reconstruct.Options{
		Indent:       r.cfg.Indent,
		RecognizeFor: r.cfg.RecognizeFor,
		Logger:       r.logger,
	})
	tree, err := rec.Rebuild(prog)
	if err != nil {
		return "", err
	}
	return strings.Join(rec.Render(tree), "\n"), nil
}

var statementWords = map[string]bool{
	"if": true, "while": true, "for": true, "else": true, "return": true, "do": true,
	"int": true, "char": true, "float": true, "double": true, "long": true, "short": true,
	"unsigned": true, "signed": true, "void": true, "bool": true,
	"{": true, "}": true,
}

// isExpressionLine reports whether a line is a bare expression or assignment
// that the linearizer can take directly
func isExpressionLine(line string) bool {
	if postfix.IsBoilerplate(line) {
		return false
	}
	words := lowering.SplitLine(line)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if statementWords[w] {
			return false
		}
	}
	return true
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"opzterm/equivalence"
	"opzterm/errors"
	"opzterm/jobmanager"
	"opzterm/logging"
	"opzterm/lowering"
	"opzterm/postfix"
	"opzterm/reconstruct"
	"opzterm/repl"
	"opzterm/scanner"
	"opzterm/validator"
)

// codecExtensions maps codec names to the file extension written in batch mode
var codecExtensions = map[string]string{
	"text":   ".opz",
	"json":   ".json",
	"binary": ".opzb",
}

// App bundles the configuration and the collaborators shared by every command
type App struct {
	cfg    *Config
	logger logging.Logger
	codecs *postfix.Registry
	in     io.Reader
	out    io.Writer
	outDir string
}

// unitTask translates one input and returns the bytes to write plus the output extension
type unitTask func(unit string) ([]byte, string, error)

func newApp() (*App, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if codecName != "" {
		cfg.Lowering.Codec = codecName
	}
	if dialect != "" {
		cfg.Lowering.Dialect = dialect
	}
	if surface != "" {
		cfg.Lowering.Surface = surface
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := cfg.NewLogger(verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %v", err)
	}
	return newAppWithConfig(cfg, logger, os.Stdin, os.Stdout, outDir), nil
}

func newAppWithConfig(cfg *Config, logger logging.Logger, in io.Reader, out io.Writer, dir string) *App {
	codecs := postfix.NewRegistry(cfg.Surface())
	_ = codecs.SetDefault(cfg.Lowering.Codec)
	return &App{cfg: cfg, logger: logger, codecs: codecs, in: in, out: out, outDir: dir}
}

func (a *App) read(unit string) ([]byte, error) {
	if unit == "-" {
		return io.ReadAll(a.in)
	}
	return os.ReadFile(unit)
}

// codecFor picks the codec from the file extension, falling back to the configured one
func (a *App) codecFor(unit string) (postfix.Codec, error) {
	ext := strings.ToLower(filepath.Ext(unit))
	for name, e := range codecExtensions {
		if e == ext {
			return a.codecs.Get(name)
		}
	}
	return a.codecs.Get("")
}

func (a *App) lowerer() *lowering.Lowerer {
	return lowering.New(lowering.Options{Dialect: a.cfg.Dialect(), Logger: a.logger})
}

func (a *App) reconstructor() *reconstruct.Reconstructor {
	return reconstruct.New(a.cfg.ReconstructOptions(a.logger))
}

func (a *App) lowerUnit(unit string) ([]byte, string, error) {
	src, err := a.read(unit)
	if err != nil {
		return nil, "", err
	}
	prog, err := a.lowerer().LowerSource(string(src))
	if err != nil {
		return nil, "", err
	}
	codec, err := a.codecs.Get("")
	if err != nil {
		return nil, "", err
	}
	data, err := codec.Encode(prog)
	if err != nil {
		return nil, "", err
	}
	return data, codecExtensions[codec.Name()], nil
}

func (a *App) rebuildUnit(unit string) ([]byte, string, error) {
	data, err := a.read(unit)
	if err != nil {
		return nil, "", err
	}
	codec, err := a.codecFor(unit)
	if err != nil {
		return nil, "", err
	}
	prog, err := codec.Decode(data)
	if err != nil {
		return nil, "", err
	}
	rec := a.reconstructor()
	tree, err := rec.Rebuild(prog)
	if err != nil {
		return nil, "", err
	}
	return []byte(rec.RenderText(tree)), ".c", nil
}

// run translates the given units. One unit goes to stdout unless an output
// directory is set; several units are translated concurrently by the job manager.
func (a *App) run(units []string, task unitTask) error {
	if len(units) == 0 {
		units = []string{"-"}
	}
	if len(units) == 1 {
		data, ext, err := task(units[0])
		if err != nil {
			return err
		}
		return a.write(units[0], data, ext)
	}
	return a.runBatch(units, task)
}

type batchResult struct {
	data []byte
	ext  string
}

// runBatch fans the units out over the job manager and reports each outcome in input order
func (a *App) runBatch(units []string, task unitTask) error {
	jm := jobmanager.NewJobManager(a.cfg.Batch.Concurrency)
	defer jm.Shutdown()

	jobs := jm.RunAll(context.Background(), units, func(unit string) (interface{}, error) {
		data, ext, err := task(unit)
		if err != nil {
			return nil, err
		}
		return batchResult{data: data, ext: ext}, nil
	})

	failures := errors.NewCollector()
	for _, job := range jobs {
		err := job.GetError()
		if err == nil {
			res := job.GetResult().(batchResult)
			err = a.write(job.Unit, res.data, res.ext)
		}
		failures.Add(job.Unit, err)
		if err != nil {
			a.logger.ErrorCompile(err, logging.StringField("unit", job.Unit))
			fmt.Fprintf(a.out, "FAIL %s: %v\n", job.Unit, err)
			continue
		}
		a.logger.Info("translated",
			logging.StringField("unit", job.Unit),
			logging.DurationField("elapsed", job.GetDuration()))
	}
	return failures.Err()
}

// write sends output to stdout, or next to its name in the output directory
func (a *App) write(unit string, data []byte, ext string) error {
	if a.outDir == "" {
		if _, err := a.out.Write(data); err != nil {
			return err
		}
		if len(data) > 0 && data[len(data)-1] != '\n' && ext != codecExtensions["binary"] {
			_, err := io.WriteString(a.out, "\n")
			return err
		}
		return nil
	}

	name := "stdin"
	if unit != "-" {
		base := filepath.Base(unit)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := os.MkdirAll(a.outDir, 0755); err != nil {
		return err
	}
	path := filepath.Join(a.outDir, name+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	a.logger.Debug("written", logging.StringField("path", path))
	return nil
}

// roundtrip lowers a source, passes it through the configured codec and rebuilds it
func (a *App) roundtrip(unit string, check bool) error {
	src, err := a.read(unit)
	if err != nil {
		return err
	}

	l := a.lowerer()
	orig, err := l.Parse(strings.Split(strings.ReplaceAll(string(src), "\r\n", "\n"), "\n"))
	if err != nil {
		return err
	}

	codec, err := a.codecs.Get("")
	if err != nil {
		return err
	}
	data, err := codec.Encode(l.Emit(orig))
	if err != nil {
		return err
	}
	prog, err := codec.Decode(data)
	if err != nil {
		return err
	}

	rec := a.reconstructor()
	rebuilt, err := rec.Rebuild(prog)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, rec.RenderText(rebuilt))

	if !check {
		return nil
	}
	checker := equivalence.NewChecker(a.cfg.VerifyTimeout(), a.logger)
	report, err := checker.Equivalent(context.Background(), orig, rebuilt, nil)
	if err != nil {
		return err
	}
	if !report.Equal {
		for _, d := range report.Diffs {
			fmt.Fprintf(a.out, "  %s\n", d)
		}
		return fmt.Errorf("rebuilt program differs from the source")
	}
	fmt.Fprintf(a.out, "equivalent: %d variables compared\n", len(report.Names))
	return nil
}

func (a *App) scan(unit string) error {
	src, err := a.read(unit)
	if err != nil {
		return err
	}
	lexemes, err := scanner.New(a.logger).Scan(string(src))
	if err != nil {
		a.logger.ErrorCompile(err)
		return err
	}
	for _, line := range scanner.CodedLines(lexemes) {
		fmt.Fprintln(a.out, line)
	}
	return nil
}

func (a *App) validate(unit string, coded bool) error {
	src, err := a.read(unit)
	if err != nil {
		return err
	}

	v := validator.New(a.logger)
	if coded {
		err = v.ValidateLines(strings.Split(strings.TrimRight(string(src), "\n"), "\n"))
	} else {
		var lexemes []scanner.Lexeme
		lexemes, err = scanner.New(a.logger).Scan(string(src))
		if err == nil {
			err = v.Validate(validator.FromLexemes(lexemes))
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

func (a *App) repl() error {
	r := repl.New(repl.Config{
		Prompt:       a.cfg.REPL.Prompt,
		HistoryFile:  expandHome(a.cfg.REPL.HistoryFile),
		HistorySize:  a.cfg.REPL.HistorySize,
		Dialect:      a.cfg.Dialect(),
		Surface:      a.cfg.Surface(),
		Indent:       a.cfg.Reconstruct.Indent,
		RecognizeFor: a.cfg.Reconstruct.RecognizeFor,
		EnableColors: a.cfg.REPL.Colors,
		Logger:       a.logger,
		In:           a.in,
		Out:          a.out,
	})
	return r.Run()
}

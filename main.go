package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	codecName  string
	dialect    string
	surface    string
	outDir     string
	verbose    bool
	verify     bool
)

var rootCmd = &cobra.Command{
	Use:   "opzterm",
	Short: "opzterm - postfix (ОПЗ) translator for a small C subset",
	Long: `opzterm lowers structured C-like code into postfix form with control-flow
markers (УПЛ, УЦ, АЭМ) and rebuilds indented code from such postfix streams.

Commands:
  lower      source -> postfix
  rebuild    postfix -> source
  roundtrip  source -> postfix -> source, optionally checked on the Lua VM
  scan       source -> coded lexemes (W/I/O/R/N/C)
  validate   check source against the fixed grammar
  repl       interactive translator
  config     write the default configuration
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var lowerCmd = &cobra.Command{
	Use:   "lower [files...]",
	Short: "Translate source files to postfix (stdin when no file is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		return app.run(args, app.lowerUnit)
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [files...]",
	Short: "Rebuild indented source from postfix files",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		return app.run(args, app.rebuildUnit)
	},
}

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip [file]",
	Short: "Lower, encode, decode and rebuild one source file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		return app.roundtrip(unitArg(args), verify)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Print the coded lexemes of a source file, one line per source line",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		return app.scan(unitArg(args))
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a source file, or a coded file with --coded",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		coded, _ := cmd.Flags().GetBool("coded")
		return app.validate(unitArg(args), coded)
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start the interactive translator",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		return app.repl()
	},
}

var configCmd = &cobra.Command{
	Use:   "config <path>",
	Short: "Write the default configuration (YAML, or JSON for a .json path)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := SaveConfig(DefaultConfig(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML or JSON configuration file")
	flags.StringVar(&codecName, "codec", "", "postfix file format: text, json or binary")
	flags.StringVar(&dialect, "dialect", "", "closer dialect: tagged or legacy")
	flags.StringVar(&surface, "surface", "", "marker spelling: cyrillic or latin")
	flags.StringVarP(&outDir, "out", "o", "", "output directory (stdout when empty)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	roundtripCmd.Flags().BoolVar(&verify, "verify", false, "run both programs on the Lua VM and compare the results")
	validateCmd.Flags().Bool("coded", false, "input is already coded (output of scan)")

	rootCmd.AddCommand(lowerCmd, rebuildCmd, roundtripCmd, scanCmd, validateCmd, replCmd, configCmd)
}

func unitArg(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

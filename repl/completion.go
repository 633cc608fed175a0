package repl

import "github.com/chzyer/readline"

// newCompleter completes the colon commands and their arguments
func newCompleter() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(":help"),
		readline.PcItem(":quit"),
		readline.PcItem(":mode",
			readline.PcItem(string(ModeLower)),
			readline.PcItem(string(ModeRebuild)),
		),
		readline.PcItem(":dialect",
			readline.PcItem("tagged"),
			readline.PcItem("legacy"),
		),
		readline.PcItem(":surface",
			readline.PcItem("cyrillic"),
			readline.PcItem("latin"),
		),
		readline.PcItem(":buffer"),
		readline.PcItem(":reset"),
		readline.PcItem(":history"),
	)
}

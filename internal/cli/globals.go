package cli

import (
	"os"

	"golang.org/x/term"
)

// Globals holds global flags available to all commands
type Globals struct {
	Profile     string  `help:"Credential profile to use" env:"MYD_PROFILE"`
	Output      string  `help:"Output format" default:"auto" enum:"json,plain,rich,auto" short:"o" env:"MYD_OUTPUT"`
	Verbose     bool    `help:"Verbose output" short:"v" env:"MYD_VERBOSE"`
	ResultsOnly bool    `help:"Strip JSON envelope, return data array only" env:"MYD_RESULTS_ONLY"`
	NoInput     bool    `help:"Disable interactive prompts (fail instead)" env:"MYD_NO_INPUT"`
	RateLimit   float64 `help:"Max backend requests per second (0 = unlimited)" default:"0" env:"MYD_RATE_LIMIT"`
}

// ResolvedOutput returns the effective output mode
// "auto" detects TTY: if stdout is TTY -> rich, else -> plain
func (g *Globals) ResolvedOutput() string {
	if g.Output != "auto" {
		return g.Output
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "rich"
	}

	return "plain"
}

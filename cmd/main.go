package main

import (
	"errors"
	"io"
	"os"

	"github.com/alecthomas/kong"

	app "github.com/okian/clockread/internal/app"
	"github.com/okian/clockread/internal/cli"
)

var version = "0.1.0"

// noResponsesMessage is printed when a recording has no detectable speech.
const noResponsesMessage = "Could not detect user's responses. Silence threshold/Minimum silence period may need tuning."

// Env carries the output streams of a command.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
}

// CLI defines the command-line interface.
type CLI struct {
	Score   ScoreCmd   `cmd:"" help:"Score a recorded clock reading session."`
	Serve   ServeCmd   `cmd:"" help:"Run the scoring HTTP API."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// VersionCmd prints the version.
type VersionCmd struct{}

// Run implements the version command.
func (VersionCmd) Run(env *Env) error {
	cli.PrintVersion(env.Stdout, version)
	return nil
}

func main() {
	var c CLI
	ctx := kong.Parse(&c,
		kong.Name("clockread"),
		kong.Description("Clock reading test scorer"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	err := ctx.Run(&Env{Stdout: os.Stdout, Stderr: os.Stderr})
	if err == nil {
		return
	}
	if errors.Is(err, app.ErrNoResponses) {
		cli.PrintError(os.Stderr, noResponsesMessage)
	} else {
		cli.PrintError(os.Stderr, err.Error())
	}
	os.Exit(1)
}

package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/posener/complete"
	"github.com/willabides/kongplete"

	"github.com/modelyard/myd/internal/cli"
	"github.com/modelyard/myd/internal/client"
	"github.com/modelyard/myd/internal/output"
)

var (
	version = "dev"
)

func main() {
	cliInstance := &cli.CLI{}
	parser := kong.Must(cliInstance,
		kong.Name("myd"),
		kong.Description("Modelyard CLI for entity management"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version":  version,
			"apilevel": fmt.Sprintf("%d", client.LibAPILevel),
		},
	)

	kongplete.Complete(parser,
		kongplete.WithPredictor("file", complete.PredictFiles("*")),
	)

	ctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		parser.FatalIfErrorf(err)
	}

	if err := ctx.Run(); err != nil {
		formatter := output.New("plain")
		os.Exit(output.Report(formatter, err))
	}
}

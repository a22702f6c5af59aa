package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/vstoykovbg/divitax/cmd"
	"github.com/vstoykovbg/divitax/logger"
)

func main() {
	// A missing .env file is not an error; flags and the environment win.
	_ = godotenv.Load()
	logger.Init(os.Getenv(cmd.EnvLogLevel))

	completion()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "help")
	commander.Register(commander.FlagsCommand(), "help")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// completion installs shell completion; it exits the process when invoked by
// the shell's completion machinery and is a no-op otherwise.
func completion() {
	csvFiles := predict.Files("*.csv")
	app := &complete.Command{
		Sub: map[string]*complete.Command{
			"process": {
				Flags: map[string]complete.Predictor{
					"i":         csvFiles,
					"fii":       csvFiles,
					"o":         csvFiles,
					"mode":      predict.Set{"filing", "sheet", "table"},
					"rates":     predict.Dirs("*"),
					"countries": csvFiles,
				},
			},
			"rates": {
				Sub: map[string]*complete.Command{
					"fetch":     {Flags: map[string]complete.Predictor{"o": csvFiles}},
					"fill-gaps": {Args: csvFiles},
				},
			},
		},
	}
	app.Complete(path.Base(os.Args[0]))
}

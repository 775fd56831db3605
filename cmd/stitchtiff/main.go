package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/sreekarreddydfci/stitchtiff"
	"github.com/sreekarreddydfci/stitchtiff/config"
	"github.com/sreekarreddydfci/stitchtiff/qupath"
	"github.com/sreekarreddydfci/stitchtiff/tiffutil"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version, V",
		Usage: "print the version",
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.Default(), nil
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func main() {
	app := cli.NewApp()

	app.Name = "stitchtiff"
	app.Usage = "stitch scanned TIFF tiles into a pyramidal OME-TIFF"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			EnvVars: []string{"STITCHTIFF_CONFIG"},
			Usage:   "path to configuration file",
		},
		&cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "stitch",
			Usage:       "Stitch TIFF tiles into one OME-TIFF",
			Description: "The input is either a directory scanned recursively for *.tif files or an explicit list of .tif files.",
			ArgsUsage:   "INPUT... OUTPUT",
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				cfg, err := loadConfig(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				rcfg, err := cfg.RuntimeConfig()
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				opts, err := cfg.WriterOptions()
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				logger := newLogger(c)

				runtime, err := qupath.NewRuntime(rcfg, logger)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer runtime.Close()

				s := stitchtiff.New(runtime, opts, logger)

				args := c.Args().Slice()
				inputs, outfile := args[:len(args)-1], args[len(args)-1]

				var report *stitchtiff.Report
				if len(inputs) == 1 && isDirectory(inputs[0]) {
					report, err = s.StitchDirectory(context.Background(), inputs[0], outfile)
				} else {
					report, err = s.Stitch(context.Background(), inputs, outfile)
				}
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				fmt.Printf("stitched %d tiles (%d skipped) into %s\n", report.Stitched, report.Skipped, report.Output)
				return nil
			},
		},
		{
			Name:        "check",
			Usage:       "Check whether a file is a valid TIFF",
			Description: "",
			ArgsUsage:   "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				file := c.Args().First()
				sig, err := tiffutil.ReadSignature(file)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if !sig.Valid() {
					return cli.NewExitError(fmt.Sprintf("%s is not a valid TIFF file", file), 1)
				}

				kind := "TIFF"
				if sig.BigTIFF() {
					kind = "BigTIFF"
				}
				order := "big-endian"
				if sig.LittleEndian() {
					order = "little-endian"
				}
				fmt.Printf("%s: %s, %s\n", file, kind, order)
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

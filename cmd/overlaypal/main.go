package main

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/overlaypal"
	"github.com/bodgit/overlaypal/solver"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const (
	solverCMPL     = "cmpl"
	solverFirstFit = "first-fit"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func params(c *cli.Context) (overlaypal.Params, error) {
	p := overlaypal.DefaultParams()

	bg := c.Int("background-color")
	if bg < 0 || bg >= overlaypal.MaxColors {
		return p, errors.Wrapf(overlaypal.ErrParams, "background color %d", bg)
	}
	p.BackgroundColor = uint8(bg)

	p.CellWidth = c.Int("cell-width")
	p.CellHeight = c.Int("cell-height")
	p.SpriteHeight = c.Int("sprite-height")
	p.CellColorLimit = c.Int("color-limit")
	p.MaxBackgroundPalettes = c.Int("background-palettes")
	p.MaxSpritePalettes = c.Int("sprite-palettes")
	p.MaxSpritesPerScanline = c.Int("sprites-per-scanline")
	p.Timeout = c.Duration("timeout")

	return p, p.Validate()
}

// Returns a solver working in workPath
func newSolver(c *cli.Context, workPath string, logger *log.Logger) (solver.Solver, error) {
	switch name := c.String("solver"); name {
	case solverCMPL:
		return solver.NewCMPL(c.String("cmpl-path"), workPath, logger), nil
	case solverFirstFit:
		return solver.FirstFit{}, nil
	default:
		return nil, fmt.Errorf("unknown solver %q", name)
	}
}

func loadImage(file string) (*image.Paletted, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", file)
	}

	return overlaypal.Indexed(m, overlaypal.MaxColors), nil
}

type job struct {
	params   overlaypal.Params
	cache    *solver.Cache
	workPath string
	scale    int
	logger   *log.Logger
}

// Converts one file into outDir, returning whether it was successful
func (j *job) run(ctx context.Context, c *cli.Context, file, workPath, outDir string) (bool, error) {
	m, err := loadImage(file)
	if err != nil {
		return false, err
	}

	s, err := newSolver(c, workPath, j.logger)
	if err != nil {
		return false, err
	}
	if j.cache != nil {
		s = j.cache.With(s)
	}

	r, err := overlaypal.New(s, j.logger).Convert(ctx, m, j.params)
	if err != nil {
		return false, errors.Wrap(err, file)
	}

	if err := writeResult(outDir, r, j.scale); err != nil {
		return false, err
	}

	j.logger.Printf("%s: %s, %d sprites, %d per scanline\n", file, r.States[len(r.States)-1], len(r.Sprites), r.MaxSpritesPerScanline())

	return r.ConversionSuccessful(), nil
}

func newJob(c *cli.Context) (*job, error) {
	p, err := params(c)
	if err != nil {
		return nil, err
	}

	j := &job{
		params:   p,
		workPath: c.String("work-path"),
		scale:    c.Int("scale"),
		logger:   newLogger(c),
	}

	if file := c.String("cache"); file != "" {
		if j.cache, err = solver.OpenCache(file, nil, j.logger); err != nil {
			return nil, err
		}
	}

	return j, nil
}

func (j *job) Close() error {
	if j.cache != nil {
		return j.cache.Close()
	}
	return nil
}

func convertFlags() []cli.Flag {
	p := overlaypal.DefaultParams()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "solver",
			Value:   solverCMPL,
			Usage:   "palette solver, \"" + solverCMPL + "\" or \"" + solverFirstFit + "\"",
			EnvVars: []string{"OVERLAYPAL_SOLVER"},
		},
		&cli.StringFlag{
			Name:    "cmpl-path",
			Usage:   "directory holding the cmpl binary and programs",
			EnvVars: []string{"OVERLAYPAL_CMPL_PATH"},
		},
		&cli.StringFlag{
			Name:    "work-path",
			Value:   filepath.Join(os.TempDir(), "overlaypal"),
			Usage:   "directory for solver input and output",
			EnvVars: []string{"OVERLAYPAL_WORK_PATH"},
		},
		&cli.StringFlag{
			Name:    "cache",
			Usage:   "path to solution cache database",
			EnvVars: []string{"OVERLAYPAL_CACHE"},
		},
		&cli.IntFlag{
			Name:  "background-color",
			Usage: "index of the background color",
		},
		&cli.IntFlag{
			Name:  "cell-width",
			Value: p.CellWidth,
			Usage: "width of a background cell",
		},
		&cli.IntFlag{
			Name:  "cell-height",
			Value: p.CellHeight,
			Usage: "height of a background cell",
		},
		&cli.IntFlag{
			Name:  "sprite-height",
			Value: p.SpriteHeight,
			Usage: "height of a sprite",
		},
		&cli.IntFlag{
			Name:  "color-limit",
			Value: p.CellColorLimit,
			Usage: "colors per background palette",
		},
		&cli.IntFlag{
			Name:  "background-palettes",
			Value: p.MaxBackgroundPalettes,
			Usage: "number of background palettes",
		},
		&cli.IntFlag{
			Name:  "sprite-palettes",
			Value: p.MaxSpritePalettes,
			Usage: "number of sprite palettes",
		},
		&cli.IntFlag{
			Name:  "sprites-per-scanline",
			Value: p.MaxSpritesPerScanline,
			Usage: "maximum sprites on a scanline",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "solver time limit per pass",
		},
		&cli.IntFlag{
			Name:  "scale",
			Value: 1,
			Usage: "scale factor for the png images",
		},
	}
}

func baseName(file string) string {
	return strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
}

// Gives every input a distinct directory name, repeated base names get a
// numeric suffix. Repeated paths are converted once.
func jobNames(files []string) ([]string, map[string]string) {
	names := make(map[string]string, len(files))
	used := make(map[string]struct{}, len(files))
	var unique []string
	for _, file := range files {
		if _, ok := names[file]; ok {
			continue
		}
		base := baseName(file)
		name := base
		for i := 2; ; i++ {
			if _, ok := used[name]; !ok {
				break
			}
			name = fmt.Sprintf("%s-%d", base, i)
		}
		used[name] = struct{}{}
		names[file] = name
		unique = append(unique, file)
	}
	return unique, names
}

func main() {
	app := cli.NewApp()

	app.Name = "overlaypal"
	app.Usage = "Convert indexed images into background tiles and sprite overlays"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "convert",
			Usage:       "Convert an image",
			Description: "",
			ArgsUsage:   "INPUT OUTDIR",
			Flags:       convertFlags(),
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				j, err := newJob(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer j.Close()

				ok, err := j.run(context.Background(), c, c.Args().Get(0), j.workPath, c.Args().Get(1))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if !ok {
					return cli.NewExitError("conversion unsuccessful", 1)
				}

				return nil
			},
		},
		{
			Name:        "batch",
			Usage:       "Convert many images",
			Description: "Each image is written to a directory named after it.",
			ArgsUsage:   "OUTDIR INPUT...",
			Flags: append(convertFlags(), &cli.IntFlag{
				Name:  "workers",
				Value: overlaypal.DefaultWorkers,
				Usage: "number of concurrent conversions",
			}),
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				j, err := newJob(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer j.Close()

				outDir := c.Args().First()
				files, names := jobNames(c.Args().Tail())

				failed := make(chan string, len(files))
				if err := overlaypal.Batch(context.Background(), files, c.Int("workers"), func(ctx context.Context, file string) error {
					name := names[file]
					ok, err := j.run(ctx, c, file, filepath.Join(j.workPath, name), filepath.Join(outDir, name))
					if err != nil {
						return err
					}
					if !ok {
						failed <- file
					}
					return nil
				}); err != nil {
					return cli.NewExitError(err, 1)
				}
				close(failed)

				n := 0
				for file := range failed {
					fmt.Fprintf(os.Stderr, "%s: conversion unsuccessful\n", file)
					n++
				}
				if n > 0 {
					return cli.NewExitError(fmt.Sprintf("%d of %d conversions unsuccessful", n, len(files)), 1)
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"kfscope/common"
	"kfscope/config"
	"kfscope/state"
	"kfscope/transform"
)

const scopeHelp = `
SOURCE:
    path to stylesheet(s) to process, following formats are supported:
        path to a file: "[path_to_file]file.css"
        path to a directory: "[path_to_directory]directory" - recursively process all matching files under directory (symbolic links are not followed)
        path to archive with path inside archive to a particular file: "[path_to_archive]archive.zip[path_in_archive]/file.css"
        path to archive with path inside archive: "[path_to_archive]archive.zip[path_in_archive]" - recursively process all matching files under archive path

	Inside directories and archives only files matching configured include
	patterns and not matching exclude patterns are considered. Explicitly
	named stylesheet is always processed. Archives inside archives are not
	looked into.

DESTINATION:
    always a path, output file name(s) will be derived from source names or
    from configured output name template, if absent - current working directory
`

const dumpConfigHelp = `
DESTINATION:
    file name to write configuration to, if absent - STDOUT

Without --default writes configuration program would actually use: embedded
defaults with values from configuration file on top of them.
`

func scopeCommand() *cli.Command {
	return &cli.Command{
		Name:         "scope",
		Usage:        "Rewrites @keyframes names and references to them in stylesheet(s)",
		OnUsageError: usageErrorHandler,
		Action:       transform.Run,
		ArgsUsage:    "SOURCE [DESTINATION]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "prefix", Aliases: []string{"p"},
				Usage: "fixed `PREFIX` for local names, \"<hash>\" derives prefix from stylesheet path and content"},
			&cli.StringFlag{Name: "default-scope", Aliases: []string{"ds"},
				Usage: "`SCOPE` of names without markers (supported: " + strings.Join(common.ScopeNames(), ", ") + ")"},
			&cli.StringFlag{Name: "convention",
				Usage: "`CONVENTION` used to mark names as global or local (supported: " + strings.Join(common.ConventionNames(), ", ") + ")"},
			&cli.StringFlag{Name: "charset",
				Usage: "force `ENCODING` for stylesheets without byte order mark and for non UTF-8 file names in archives (IANA character set name)"},
			&cli.BoolFlag{Name: "nodirs", Aliases: []string{"nd"}, Usage: "do not keep input directory structure in destination"},
			&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "replace existing files in destination"},
			&cli.BoolFlag{Name: "stdout", Usage: "write scoped stylesheets to standard output instead of files"},
			&cli.BoolFlag{Name: "strict", Usage: "treat stylesheets with diagnostics as failed, do not write them"},
		},
		CustomHelpTemplate: cli.CommandHelpTemplate + scopeHelp,
	}
}

func dumpConfigCommand() *cli.Command {
	return &cli.Command{
		Name:         "dumpconfig",
		Usage:        "Dumps either default or actual configuration (YAML)",
		OnUsageError: usageErrorHandler,
		Action:       outputConfiguration,
		ArgsUsage:    "[DESTINATION]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
		},
		CustomHelpTemplate: cli.CommandHelpTemplate + dumpConfigHelp,
	}
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)
	if len(fname) == 0 {
		config.ConsoleToStderr()
		return writeConfiguration(env, os.Stdout, "STDOUT", cmd.Bool("default"))
	}

	out, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
	}
	defer out.Close()
	return writeConfiguration(env, out, fname, cmd.Bool("default"))
}

func writeConfiguration(env *state.LocalEnv, out io.Writer, name string, defaults bool) error {
	var (
		data []byte
		err  error
		kind = "actual"
	)
	if defaults {
		kind = "default"
		data, err = config.Prepare()
	} else {
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	env.Log.Info("Writing configuration", zap.String("state", kind), zap.String("file", name))
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}

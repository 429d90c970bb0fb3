/*
 * Copyright 2026 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/humaidq/hemalyze/analyzer"
	"github.com/humaidq/hemalyze/report"
)

var CmdAnalyze = newAnalyzeCommand()

func newAnalyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze a blood report and print the results",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "analyzer-url",
				Value:   analyzer.DefaultEndpoint,
				Sources: cli.EnvVars("ANALYZER_URL"),
				Usage:   "endpoint of the report analyzer service",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "show all results instead of abnormal ones only",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the analysis as indented JSON",
			},
			&cli.StringFlag{
				Name:  "export",
				Usage: "write the analysis as indented JSON to `PATH`",
			},
		},
		Action: analyze,
	}
}

func analyze(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errFileArgumentRequired
	}

	name := analyzer.BaseName(path)
	if err := analyzer.ValidateFilename(name); err != nil {
		return reportFailure(err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open report: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			appLogger.Error("Error closing report file", "error", err)
		}
	}()

	client := analyzer.NewClient(cmd.String("analyzer-url"))
	ctx = analyzer.ContextWithRequestID(ctx, uuid.NewString())

	analysis, err := client.Analyze(ctx, name, file)
	if err != nil {
		return reportFailure(err)
	}

	exported, err := analysis.Export()
	if err != nil {
		return reportFailure(err)
	}

	if dest := cmd.String("export"); dest != "" {
		if err := os.WriteFile(dest, exported, 0o600); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}

		appLogger.Info("Analysis exported", "path", dest)
	}

	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}

	if cmd.Bool("json") {
		_, err = fmt.Fprintf(w, "%s\n", exported)
		return err
	}

	_, err = fmt.Fprintln(w, report.RenderTerminal(report.Build(analysis, cmd.Bool("all"))))

	return err
}

// reportFailure turns an analysis error into the message shown to the user,
// keeping the cause for errors.Is.
func reportFailure(err error) error {
	return fmt.Errorf("%s (%w)", analyzer.UserMessage(err), err)
}

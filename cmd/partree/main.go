// Copyright (c) 2026 The partree Authors
// SPDX-License-Identifier: MIT

// Command partree reads a statement-grammar program and replays it
// against a persistent tree and a PMA set, printing the resulting
// SUC/IMP output grammar.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/dskit/partree/internal/interp"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	var inputPath, outputPath string
	var newLine bool

	cmd := &cobra.Command{
		Use:           "partree",
		Short:         "Replay an INC/REM/SUC/IMP statement program against a persistent ordered dictionary and a PMA",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(inputPath, outputPath, newLine)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "input file (default: stdin)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVarP(&newLine, "new-line", "n", false, "emit a trailing newline after the last output line")

	return cmd
}

func run(inputPath, outputPath string, newLine bool) error {
	in, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	return interp.NewDriver().Run(in, out, newLine)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("partree: opening input: %w", err)
	}
	return f, nil
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("partree: opening output: %w", err)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	ansiRed   = "\x1b[31;1m"
	ansiGreen = "\x1b[32m"
	ansiReset = "\x1b[0m"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printStatus writes a headline, red for failures and green otherwise when
// the writer is a terminal.
func printStatus(w io.Writer, status string, ok bool) {
	if shouldColorize(w) {
		color := ansiGreen
		if !ok {
			color = ansiRed
		}
		status = color + status + ansiReset
	}
	fmt.Fprintln(w, status)
}

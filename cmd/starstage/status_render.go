package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusOK statusKind = iota
	statusError
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

const statusLabelWidth = 24

func renderStatusLine(label string, kind statusKind, detail string, colorize bool) string {
	statusText := "[OK]"
	color := ansiGreen
	if kind == statusError {
		statusText = "[FAIL]"
		color = ansiRed
	}
	base := fmt.Sprintf("%-*s %-6s %s", statusLabelWidth, label+":", statusText, detail)
	if colorize {
		return color + base + ansiReset
	}
	return base
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

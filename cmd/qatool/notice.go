package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

func success(w io.Writer, format string, args ...any) {
	okColor.Fprintln(w, fmt.Sprintf(format, args...))
}

func warn(w io.Writer, format string, args ...any) {
	warnColor.Fprintln(w, fmt.Sprintf(format, args...))
}

func failure(w io.Writer, msg string) {
	failColor.Fprintln(w, msg)
}

func hint(w io.Writer, format string, args ...any) {
	dimColor.Fprintln(w, fmt.Sprintf(format, args...))
}

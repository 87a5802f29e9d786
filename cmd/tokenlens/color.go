package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/hunterwarburton/tokenlens/internal/core"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// colorSource highlights fallbacks so unresolved tokens stand out.
func colorSource(source string, colorize bool) string {
	if !colorize {
		return source
	}
	switch source {
	case core.SourceFallback:
		return ansiYellow + source + ansiReset
	case core.SourceOnChain:
		return ansiGreen + source + ansiReset
	default:
		return ansiBlue + source + ansiReset
	}
}

package programs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"frame-renderer/core"
)

// Matches "ERROR: 0:12:" as well as the "0(12) :" form some drivers emit.
var errorLine = regexp.MustCompile(`(?:ERROR|WARNING):\s*\d+:(\d+):|\d+\((\d+)\)\s*:`)

const excerptRadius = 6

// failingLine extracts the first source line number reported in log.
func failingLine(log string) int {
	m := errorLine.FindStringSubmatch(log)
	if m == nil {
		return 0
	}
	for _, g := range m[1:] {
		if n, err := strconv.Atoi(g); err == nil {
			return n
		}
	}
	return 0
}

// excerpt returns the numbered source lines around line, marking it with '>'.
func excerpt(source string, line int) string {
	lines := strings.Split(source, "\n")
	if line <= 0 || line > len(lines) {
		return ""
	}
	from := max(line-excerptRadius, 1)
	to := min(line+excerptRadius, len(lines))
	var b strings.Builder
	for i := from; i <= to; i++ {
		marker := " "
		if i == line {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s %d: %s\n", marker, i, lines[i-1])
	}
	return b.String()
}

// compileError builds the diagnostics of a failed stage. Link failures carry
// no source context.
func compileError(stage, key, source, log string) *core.ShaderCompileError {
	log = strings.TrimRight(log, "\x00\n ")
	e := &core.ShaderCompileError{Stage: stage, Key: key, Log: log}
	if source != "" {
		e.Line = failingLine(log)
		e.Context = excerpt(source, e.Line)
	}
	return e
}

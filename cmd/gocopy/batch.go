package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// request is a single copy or move operation to start.
type request struct {
	isCopy  bool
	sources []string
	target  string
}

func newRequest(isCopy bool, args []string) request {
	return request{
		isCopy:  isCopy,
		sources: args[:len(args)-1],
		target:  args[len(args)-1],
	}
}

// parseBatch reads one request per line ("copy SRC... DST" or "move SRC...
// DST"). Empty lines and lines starting with '#' are ignored; paths must not
// contain whitespace.
func parseBatch(r io.Reader) ([]request, error) {
	requests := []request{}
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 { //nolint:mnd
			return nil, fmt.Errorf("%w (line %d): need a verb, a source and a target", ErrBatchSyntax, lineNo)
		}

		switch strings.ToLower(fields[0]) {
		case "copy":
			requests = append(requests, newRequest(true, fields[1:]))
		case "move":
			requests = append(requests, newRequest(false, fields[1:]))
		default:
			return nil, fmt.Errorf("%w (line %d): unknown verb %q", ErrBatchSyntax, lineNo, fields[0])
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}

	return requests, nil
}

package error

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// SpecErrors is a list of errors found in one grammar source.
type SpecErrors []*SpecError

func (e SpecErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%v", e[0])
	for _, err := range e[1:] {
		fmt.Fprintf(&b, "\n%v", err)
	}

	return b.String()
}

type SpecError struct {
	Cause      error
	Detail     string
	FilePath   string
	SourceName string
	Row        int
	Col        int

	// Source is consulted when FilePath is empty, which is the case for embedded grammars.
	Source string
}

func (e *SpecError) Error() string {
	var b strings.Builder
	if e.SourceName != "" {
		fmt.Fprintf(&b, "%v: ", e.SourceName)
	}
	if e.Row != 0 && e.Col != 0 {
		fmt.Fprintf(&b, "%v:%v: ", e.Row, e.Col)
	} else if e.Row != 0 {
		fmt.Fprintf(&b, "%v: ", e.Row)
	}
	fmt.Fprintf(&b, "error: %v", e.Cause)
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %v", e.Detail)
	}

	line := e.line()
	if line != "" {
		fmt.Fprintf(&b, "\n    %v", line)
	}

	return b.String()
}

func (e *SpecError) Unwrap() error {
	return e.Cause
}

func (e *SpecError) line() string {
	if e.Row <= 0 {
		return ""
	}
	if e.FilePath != "" {
		f, err := os.Open(e.FilePath)
		if err != nil {
			return ""
		}
		defer f.Close()
		return readLine(f, e.Row)
	}
	if e.Source != "" {
		return readLine(strings.NewReader(e.Source), e.Row)
	}
	return ""
}

func readLine(r io.Reader, row int) string {
	i := 1
	s := bufio.NewScanner(r)
	for s.Scan() {
		if i == row {
			return s.Text()
		}
		i++
	}

	return ""
}

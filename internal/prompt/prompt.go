// Package prompt asks the user to choose between options on a terminal.
// Commands depend on the Chooser interface so tests can script answers.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoAnswer is returned when input ends before a line is read.
var ErrNoAnswer = errors.New("no answer")

// Chooser presents options and returns the zero-based index picked.
type Chooser interface {
	Choose(question string, options []string, defaultIdx int) (int, error)
}

// StdinChooser reads answers from In and writes the menu to Out.
type StdinChooser struct {
	In  io.Reader
	Out io.Writer
}

// NewStdinChooser creates a StdinChooser that reads from r and writes to w.
func NewStdinChooser(r io.Reader, w io.Writer) *StdinChooser {
	return &StdinChooser{In: r, Out: w}
}

// Choose lists the options, numbered from 1, and reads one line.
// An empty line picks defaultIdx. The answer may be the option's number or
// a case-insensitive prefix of its label that matches exactly one option.
func (c *StdinChooser) Choose(question string, options []string, defaultIdx int) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("no options provided")
	}
	if defaultIdx < 0 || defaultIdx >= len(options) {
		return 0, fmt.Errorf("default index %d out of range [0, %d)", defaultIdx, len(options))
	}

	_, _ = fmt.Fprintln(c.Out, question)
	for i, opt := range options {
		suffix := ""
		if i == defaultIdx {
			suffix = " (default)"
		}
		_, _ = fmt.Fprintf(c.Out, "  %d. %s%s\n", i+1, opt, suffix)
	}
	_, _ = fmt.Fprintf(c.Out, "Enter selection [%d]: ", defaultIdx+1)

	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("failed to read input: %w", err)
		}
		if line == "" {
			return 0, ErrNoAnswer
		}
	}

	input := strings.TrimSpace(line)
	if input == "" {
		return defaultIdx, nil
	}
	return match(input, options)
}

// match resolves an answer to an option index.
func match(input string, options []string) (int, error) {
	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(options) {
			return 0, fmt.Errorf("selection %d out of range (1-%d)", n, len(options))
		}
		return n - 1, nil
	}

	found := -1
	lower := strings.ToLower(input)
	for i, opt := range options {
		if strings.HasPrefix(strings.ToLower(opt), lower) {
			if found >= 0 {
				return 0, fmt.Errorf("selection %q is ambiguous", input)
			}
			found = i
		}
	}
	if found < 0 {
		return 0, fmt.Errorf("invalid selection %q", input)
	}
	return found, nil
}

// Scripted implements Chooser for tests, returning queued answers.
type Scripted struct {
	// Answers are returned by successive calls. When exhausted, the
	// default index is returned.
	Answers []int
	// Err, when set, is returned by every call.
	Err error
	// Questions records every question asked.
	Questions []string
}

// Choose returns the next queued answer.
func (s *Scripted) Choose(question string, options []string, defaultIdx int) (int, error) {
	s.Questions = append(s.Questions, question)
	if s.Err != nil {
		return 0, s.Err
	}
	if len(s.Answers) == 0 {
		return defaultIdx, nil
	}
	answer := s.Answers[0]
	s.Answers = s.Answers[1:]
	return answer, nil
}

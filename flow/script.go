package flow

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/go-efem/efem"
)

// StepKind tags a SequenceStep.
type StepKind int

const (
	// StepComment is a blank line or a line starting with '#' or ';'.
	// Comments are preserved in the script and skipped during a run.
	StepComment StepKind = iota
	// StepWait suspends the run for a fixed duration.
	StepWait
	// StepInvoke sends one command and waits for its response.
	StepInvoke
)

func (k StepKind) String() string {
	switch k {
	case StepComment:
		return "Comment"
	case StepWait:
		return "Wait"
	case StepInvoke:
		return "Invoke"
	default:
		return "Unknown"
	}
}

// SequenceStep is one line of a command script. Raw preserves the line as
// authored so an import/export round-trip reproduces the file verbatim.
type SequenceStep struct {
	Kind    StepKind
	Wait    time.Duration // StepWait only
	Command efem.Command  // StepInvoke only
	Raw     string
}

// waitPrefix marks a wait instruction, matched case-insensitively. The
// argument is a duration in milliseconds, e.g. "Wait,500".
const waitPrefix = "wait,"

// ParseStep parses one script line into a SequenceStep.
func ParseStep(line string) (SequenceStep, error) {
	step := SequenceStep{Raw: line}

	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
		step.Kind = StepComment
		return step, nil
	}

	if strings.HasPrefix(strings.ToLower(trimmed), waitPrefix) {
		ms, err := strconv.Atoi(strings.TrimSpace(trimmed[len(waitPrefix):]))
		if err != nil || ms < 0 {
			return step, fmt.Errorf("invalid wait instruction %q: %w", trimmed, efem.ErrInvalidCommand)
		}

		step.Kind = StepWait
		step.Wait = time.Duration(ms) * time.Millisecond

		return step, nil
	}

	cmd, err := efem.ParseCommandLine(trimmed)
	if err != nil {
		return step, err
	}

	step.Kind = StepInvoke
	step.Command = cmd

	return step, nil
}

// ParseScript reads a command script, one instruction per line. Blank lines
// and comment lines become Comment steps so the script survives a round-trip
// through FormatScript unchanged. A malformed line fails the whole parse
// with its line number.
func ParseScript(r io.Reader) ([]SequenceStep, error) {
	var steps []SequenceStep

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++

		step, err := ParseStep(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		steps = append(steps, step)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return steps, nil
}

// FormatScript renders the steps back into script text, one line per step,
// with a trailing newline. Raw lines are emitted verbatim.
func FormatScript(steps []SequenceStep) string {
	var sb strings.Builder
	for _, step := range steps {
		sb.WriteString(step.Raw)
		sb.WriteByte('\n')
	}

	return sb.String()
}

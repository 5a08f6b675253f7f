// Package logseg splits a raw GitHub Actions job log into per-step buffers
// and assembles them under colored step headers.
//
// Log timestamps and step boundaries are produced independently and are
// often skewed, so lines are matched to steps with a cursor that only moves
// forward.
package logseg

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/altinukshini/gha-watch/internal/model"
)

const (
	timestampLen    = 23
	timestampLayout = "2006-01-02T15:04:05.000"

	// Step bodies stop being added once the output passes softLimit. A body
	// that would push the output past hardLimit is replaced by TooBigMarker.
	softLimit = 950_000
	hardLimit = 990_000

	TooBigMarker = "log is too big, showing only first 1MB"
)

const (
	colorReset = "\x1b[0m"
	colorGreen = "\x1b[32m"
	colorRed   = "\x1b[31m"
	colorGray  = "\x1b[37m"
)

// Result holds the assembled text and the raw per-step buffers it was
// built from.
type Result struct {
	Text     string
	Segments map[int]string
}

// Segment reads the whole log and returns it split by step. Only read
// errors are returned; unparsable timestamps and unknown steps are logged
// and tolerated.
func Segment(steps []model.Step, r io.Reader, log *zap.Logger) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	segments, err := split(steps, r, log)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Text:     assemble(steps, segments, log),
		Segments: segments,
	}, nil
}

type period struct {
	start *time.Time
	end   *time.Time
}

// cursor tracks the step that log lines are currently attributed to.
type cursor struct {
	periods map[int]period
	last    int
	curr    int
}

func newCursor(steps []model.Step) *cursor {
	c := &cursor{periods: make(map[int]period, len(steps)), curr: 1}
	for _, s := range steps {
		c.periods[s.Number] = period{start: s.StartedAt, end: s.CompletedAt}
		if s.Number > c.last {
			c.last = s.Number
		}
	}
	if c.last == 0 {
		c.last = 1
	}
	return c
}

// advance moves the cursor to the first step, at or after the current one,
// that either has not started by ts or whose window contains ts. Missing
// bounds are unbounded. Without a match the cursor lands on the last step.
func (c *cursor) advance(ts time.Time) int {
	for n := c.curr; n < c.last; n++ {
		p, ok := c.periods[n]
		if !ok {
			continue
		}
		if p.start != nil && p.start.After(ts) {
			c.curr = n
			return n
		}
		if (p.start == nil || !ts.Before(*p.start)) && (p.end == nil || !ts.After(*p.end)) {
			c.curr = n
			return n
		}
	}
	if c.last > c.curr {
		c.curr = c.last
	}
	return c.curr
}

// stepOf returns the step a line belongs to, advancing the cursor when the
// line carries a timestamp.
func (c *cursor) stepOf(line string, log *zap.Logger) int {
	if len(line) < timestampLen {
		return c.curr
	}
	ts, err := time.ParseInLocation(timestampLayout, line[:timestampLen], time.UTC)
	if err != nil {
		log.Warn("unparsable log timestamp",
			zap.String("prefix", line[:timestampLen]),
			zap.Int("step", c.curr),
			zap.Error(err))
		return c.curr
	}
	return c.advance(ts)
}

func split(steps []model.Step, r io.Reader, log *zap.Logger) (map[int]string, error) {
	c := newCursor(steps)
	buffers := make(map[int]*strings.Builder)
	br := bufio.NewReaderSize(r, 64*1024)

	first := true
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\r\n")
			if first {
				line = strings.TrimPrefix(line, "\ufeff")
			}
			first = false

			n := c.stepOf(line, log)
			b, ok := buffers[n]
			if !ok {
				b = &strings.Builder{}
				buffers[n] = b
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read job log: %w", err)
		}
	}

	out := make(map[int]string, len(buffers))
	for n, b := range buffers {
		out[n] = b.String()
	}
	return out, nil
}

func header(s model.Step) string {
	switch s.Conclusion {
	case model.ConclusionSkipped:
		return fmt.Sprintf("%s%s---- Step %3d: %s (skipped) ----%s\n", colorReset, colorGray, s.Number, s.Name, colorReset)
	case model.ConclusionFailure:
		return fmt.Sprintf("%s%s---- Step %3d: %s (failed) ----%s\n", colorReset, colorRed, s.Number, s.Name, colorReset)
	default:
		return fmt.Sprintf("%s%s---- Step %3d: %s ----%s\n", colorReset, colorGreen, s.Number, s.Name, colorReset)
	}
}

func assemble(steps []model.Step, segments map[int]string, log *zap.Logger) string {
	byNumber := make(map[int]model.Step, len(steps))
	for _, s := range steps {
		byNumber[s.Number] = s
	}
	numbers := make([]int, 0, len(byNumber))
	for n := range byNumber {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	for n := range segments {
		if _, ok := byNumber[n]; !ok {
			log.Warn("log has lines for a step the job does not list",
				zap.Int("step", n),
				zap.Ints("known_steps", numbers))
		}
	}

	var out strings.Builder
	for _, n := range numbers {
		s := byNumber[n]
		out.WriteString(header(s))
		if s.Conclusion == model.ConclusionSkipped {
			continue
		}
		body, ok := segments[n]
		if !ok || out.Len() > softLimit {
			continue
		}
		if out.Len()+len(body) > hardLimit {
			out.WriteString(TooBigMarker)
			out.WriteByte('\n')
			continue
		}
		out.WriteString(body)
	}
	return out.String()
}

package logseg

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/altinukshini/gha-watch/internal/model"
)

var base = time.Date(2024, 2, 11, 18, 9, 0, 0, time.UTC)

func at(sec int) *time.Time {
	t := base.Add(time.Duration(sec) * time.Second)
	return &t
}

func line(sec float64, text string) string {
	ts := base.Add(time.Duration(sec * float64(time.Second)))
	return ts.Format("2006-01-02T15:04:05.0000000Z") + " " + text
}

func TestHeadersWithEmptyLog(t *testing.T) {
	steps := []model.Step{
		{Number: 1, Name: "Set up job", Conclusion: model.ConclusionSuccess},
		{Number: 2, Name: "Lint", Conclusion: model.ConclusionSkipped},
		{Number: 3, Name: "Test", Conclusion: model.ConclusionFailure},
	}

	res, err := Segment(steps, strings.NewReader(""), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Contains(t, res.Text, "\x1b[32m---- Step   1: Set up job ----")
	assert.Contains(t, res.Text, "\x1b[37m---- Step   2: Lint (skipped) ----")
	assert.Contains(t, res.Text, "\x1b[31m---- Step   3: Test (failed) ----")
	assert.Empty(t, res.Segments)
}

func TestUnparsableTimestampIsKept(t *testing.T) {
	steps := []model.Step{{Number: 1, Name: "Run", Conclusion: model.ConclusionSuccess}}
	raw := "2024-02-11T18:09:51.DDDDDDDZ LTS\n"

	core, logs := observer.New(zapcore.WarnLevel)
	res, err := Segment(steps, strings.NewReader(raw), zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, raw, res.Segments[1])
	assert.Contains(t, res.Text, "2024-02-11T18:09:51.DDDDDDDZ LTS")
	assert.Equal(t, 1, logs.FilterMessage("unparsable log timestamp").Len())
}

func TestLinesFollowStepWindows(t *testing.T) {
	steps := []model.Step{
		{Number: 1, Name: "Set up job", StartedAt: at(0), CompletedAt: at(10)},
		{Number: 2, Name: "Checkout", StartedAt: at(11), CompletedAt: at(20)},
		{Number: 3, Name: "Build", StartedAt: at(30), CompletedAt: nil},
		{Number: 4, Name: "Post", StartedAt: nil, CompletedAt: nil},
	}
	raw := strings.Join([]string{
		line(1, "runner info"),
		"short line",
		line(10.5, "between 1 and 2"),
		line(12, "checking out"),
		line(5, "late echo of step 1"),
		line(25, "gap before build"),
		line(31, "building"),
		line(99, "still building"),
	}, "\n")

	res, err := Segment(steps, strings.NewReader(raw), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, line(1, "runner info")+"\nshort line\n", res.Segments[1])
	// 10.5s is after step 1 ends and before step 2 starts, so step 2 is
	// adopted early; the stale 5s line cannot pull the cursor back.
	assert.Equal(t, strings.Join([]string{
		line(10.5, "between 1 and 2"),
		line(12, "checking out"),
		line(5, "late echo of step 1"),
	}, "\n")+"\n", res.Segments[2])
	assert.Equal(t, strings.Join([]string{
		line(25, "gap before build"),
		line(31, "building"),
		line(99, "still building"),
	}, "\n")+"\n", res.Segments[3])
	assert.NotContains(t, res.Segments, 4)
}

func TestPastAllWindowsLandsOnLastStep(t *testing.T) {
	steps := []model.Step{
		{Number: 1, Name: "a", StartedAt: at(0), CompletedAt: at(1)},
		{Number: 2, Name: "b", StartedAt: at(2), CompletedAt: at(3)},
		{Number: 5, Name: "c", StartedAt: at(4), CompletedAt: at(5)},
	}
	res, err := Segment(steps, strings.NewReader(line(60, "cleanup")), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, line(60, "cleanup")+"\n", res.Segments[5])
}

func TestCursorIsMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		var steps []model.Step
		next := 0
		for n := 1; n <= 1+rng.Intn(8); n++ {
			num := n * (1 + rng.Intn(2)) // sparse numbering
			if num <= next {
				num = next + 1
			}
			next = num
			s := model.Step{Number: num, StartedAt: at(rng.Intn(100))}
			if rng.Intn(3) > 0 {
				s.CompletedAt = at(rng.Intn(100))
			}
			if rng.Intn(5) == 0 {
				s.StartedAt = nil
			}
			steps = append(steps, s)
		}

		c := newCursor(steps)
		prev := c.curr
		for i := 0; i < 200; i++ {
			var l string
			switch rng.Intn(4) {
			case 0:
				l = "x"
			case 1:
				l = "2024-02-11T18:09:51.DDDDDDDZ garbage"
			default:
				l = line(float64(rng.Intn(120)), "msg")
			}
			got := c.stepOf(l, zap.NewNop())
			require.GreaterOrEqual(t, got, prev, "trial %d line %d", trial, i)
			prev = got
		}
	}
}

func TestOversizedStepIsReplacedByMarker(t *testing.T) {
	steps := []model.Step{
		{Number: 1, Name: "small", StartedAt: at(0), CompletedAt: at(10)},
		{Number: 2, Name: "huge", StartedAt: at(11), CompletedAt: at(20)},
	}
	var raw strings.Builder
	raw.WriteString(line(1, "hello") + "\n")
	payload := strings.Repeat("y", 1000)
	for raw.Len() < 1_200_000 {
		raw.WriteString(line(12, payload) + "\n")
	}

	res, err := Segment(steps, strings.NewReader(raw.String()), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Contains(t, res.Text, TooBigMarker)
	assert.Contains(t, res.Text, "hello")
	assert.Less(t, len(res.Text), 1_000_000)
}

func TestBodiesStopAfterSoftLimit(t *testing.T) {
	// Lines are 1020 bytes: 28 byte timestamp, space, payload, newline.
	sizes := map[int]int{1: 588, 2: 370, 3: 10, 4: 5}
	var steps []model.Step
	var raw strings.Builder
	for n := 1; n <= 4; n++ {
		steps = append(steps, model.Step{Number: n, Name: fmt.Sprintf("s%d", n), StartedAt: at(n * 10), CompletedAt: at(n*10 + 5)})
		payload := strings.Repeat(string(rune('a'+n)), 990)
		for i := 0; i < sizes[n]; i++ {
			raw.WriteString(line(float64(n*10+1), payload) + "\n")
		}
	}

	res, err := Segment(steps, strings.NewReader(raw.String()), zaptest.NewLogger(t))
	require.NoError(t, err)

	// Steps 1 and 2 fit under the hard limit but leave the output past the
	// soft one, so steps 3 and 4 only get their headers.
	assert.NotContains(t, res.Text, TooBigMarker)
	assert.Contains(t, res.Text, strings.Repeat("c", 990))
	assert.Contains(t, res.Text, "---- Step   3: s3 ----")
	assert.Contains(t, res.Text, "---- Step   4: s4 ----")
	assert.NotContains(t, res.Text, strings.Repeat("d", 990))
	assert.NotContains(t, res.Text, strings.Repeat("e", 990))
	assert.Greater(t, len(res.Text), softLimit)
	assert.Less(t, len(res.Text), hardLimit)
	for n := 1; n <= 4; n++ {
		assert.NotEmpty(t, res.Segments[n])
	}
}

func TestUnknownStepIsReportedNotRendered(t *testing.T) {
	steps := []model.Step{
		{Number: 2, Name: "only", StartedAt: at(10), CompletedAt: at(20)},
		{Number: 3, Name: "last", StartedAt: at(21), CompletedAt: at(30)},
	}
	raw := "no timestamp here\n" + line(12, "in step two") + "\n"

	core, logs := observer.New(zapcore.WarnLevel)
	res, err := Segment(steps, strings.NewReader(raw), zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, "no timestamp here\n", res.Segments[1])
	assert.NotContains(t, res.Text, "no timestamp here")
	assert.Contains(t, res.Text, "in step two")
	assert.Equal(t, 1, logs.FilterMessage("log has lines for a step the job does not list").Len())
}

func TestByteOrderMarkIsDropped(t *testing.T) {
	steps := []model.Step{
		{Number: 1, Name: "a", StartedAt: at(0), CompletedAt: at(5)},
		{Number: 2, Name: "b", StartedAt: at(6), CompletedAt: at(10)},
	}
	raw := "\ufeff" + line(7, "first") + "\r\n"

	res, err := Segment(steps, strings.NewReader(raw), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, line(7, "first")+"\n", res.Segments[2])
}

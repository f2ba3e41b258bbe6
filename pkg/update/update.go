// Package update applies a reviewed date report to the photos it lists.
package update

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/quidome/photo-date-tools/pkg/plan"
	"github.com/quidome/photo-date-tools/pkg/report"
	"github.com/quidome/photo-date-tools/pkg/writer"
)

// Status describes what happened to one report row.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

const (
	reasonNoChange   = "no change requested"
	reasonAlreadySet = "already set"
	reasonNotFound   = "file not found"
)

// Outcome is the result for a single report row.
type Outcome struct {
	Line   int
	Path   string
	Status Status
	Reason string
	Err    error
}

// Summary tallies a run.
type Summary struct {
	Success int
	Skipped int
	Failed  int

	Outcomes []Outcome
}

// Total is the number of rows processed.
func (s Summary) Total() int {
	return s.Success + s.Skipped + s.Failed
}

// AllFailed reports whether there was at least one row and every row failed.
func (s Summary) AllFailed() bool {
	return s.Failed > 0 && s.Success == 0 && s.Skipped == 0
}

func (s *Summary) add(o Outcome) {
	switch o.Status {
	case StatusSuccess:
		s.Success++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
	s.Outcomes = append(s.Outcomes, o)
}

// DateWriter sets a photo's capture time.
type DateWriter interface {
	Write(path, target string) (writer.Status, error)
}

// Runner applies report rows one at a time.
type Runner struct {
	w    DateWriter
	opts plan.Options
	log  *zap.Logger
}

// NewRunner returns a Runner. A nil logger disables logging.
func NewRunner(w DateWriter, opts plan.Options, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{w: w, opts: opts, log: log}
}

// RunFile applies the report at path. Only a report that cannot be opened
// or has an unusable header is an error; row problems end up in the Summary.
func (r *Runner) RunFile(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	return r.Run(f)
}

// Run applies every row of a report read from rd.
func (r *Runner) Run(rd io.Reader) (Summary, error) {
	er, err := report.NewEntryReader(rd)
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	for {
		e, err := er.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var o Outcome
		if err != nil {
			o = Outcome{Line: e.Line, Status: StatusFailed, Reason: "unreadable row", Err: err}
		} else {
			o = r.apply(e)
		}
		r.logOutcome(o)
		s.add(o)
	}
	return s, nil
}

func (r *Runner) apply(e report.Entry) Outcome {
	op, err := plan.FromEntry(e, r.opts)
	if err != nil {
		path := plan.PhotoPath(e, r.opts.PathStyle)
		if errors.Is(err, plan.ErrNoDate) {
			return Outcome{Line: e.Line, Path: path, Status: StatusSkipped, Reason: reasonNoChange}
		}
		return Outcome{Line: e.Line, Path: path, Status: StatusFailed, Reason: "invalid row", Err: err}
	}

	o := Outcome{Line: op.Line, Path: op.Path}
	if _, err := os.Stat(op.Path); err != nil {
		o.Status, o.Err = StatusFailed, err
		if errors.Is(err, os.ErrNotExist) {
			o.Reason = reasonNotFound
		} else {
			o.Reason = "stat failed"
		}
		return o
	}

	status, err := r.w.Write(op.Path, op.Raw())
	switch {
	case err != nil:
		o.Status, o.Reason, o.Err = StatusFailed, "write failed", err
	case status == writer.StatusUnchanged:
		o.Status, o.Reason = StatusSkipped, reasonAlreadySet
	default:
		o.Status = StatusSuccess
	}
	return o
}

func (r *Runner) logOutcome(o Outcome) {
	fields := []zap.Field{
		zap.Int("line", o.Line),
		zap.String("path", o.Path),
		zap.String("status", string(o.Status)),
	}
	if o.Reason != "" {
		fields = append(fields, zap.String("reason", o.Reason))
	}

	switch o.Status {
	case StatusFailed:
		r.log.Warn("row failed", append(fields, zap.Error(o.Err))...)
	case StatusSkipped:
		r.log.Debug("row skipped", fields...)
	default:
		r.log.Info("date updated", fields...)
	}
}

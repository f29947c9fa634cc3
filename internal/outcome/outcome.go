package outcome

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Status int

const (
	Success Status = iota
	Skipped
	// Degraded steps completed with reduced output; the run continues
	Degraded
	// Fatal steps abort the stage
	Fatal
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Skipped:
		return "skipped"
	case Degraded:
		return "degraded"
	case Fatal:
		return "fatal"
	}
	return "unknown"
}

// Outcome is the result of one step of the stage
type Outcome struct {
	Step     string
	Status   Status
	Err      error
	Warnings []string
}

func Ok(step string) Outcome {
	return Outcome{Step: step, Status: Success}
}

func Skip(step string, reason string) Outcome {
	return Outcome{Step: step, Status: Skipped, Warnings: []string{reason}}
}

func Degrade(step string, format string, a ...interface{}) Outcome {
	return Outcome{Step: step, Status: Degraded, Warnings: []string{fmt.Sprintf(format, a...)}}
}

func Fail(step string, err error) Outcome {
	return Outcome{Step: step, Status: Fatal, Err: err}
}

// Warn downgrades a successful outcome and records the warning
func (o *Outcome) Warn(format string, a ...interface{}) {
	if o.Status == Success {
		o.Status = Degraded
	}
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, a...))
}

// Report aggregates the outcomes of one stage run
type Report struct {
	RunID    string
	Outcomes []Outcome
}

func NewReport() *Report {
	return &Report{RunID: uuid.NewString()}
}

// Add records an outcome, logs it and returns false when the stage must stop
func (r *Report) Add(o Outcome) bool {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case Success:
		glog.V(1).Infof("[%s] %s done", r.RunID, o.Step)
	case Skipped:
		glog.Infof("[%s] %s skipped: %s", r.RunID, o.Step, strings.Join(o.Warnings, "; "))
	case Degraded:
		for _, w := range o.Warnings {
			glog.Warningf("[%s] %s: %s", r.RunID, o.Step, w)
		}
	case Fatal:
		glog.Errorf("[%s] %s failed: %v", r.RunID, o.Step, o.Err)
		return false
	}
	return true
}

// Err returns the error of the first fatal outcome
func (r *Report) Err() error {
	for _, o := range r.Outcomes {
		if o.Status == Fatal {
			return errors.Wrap(o.Err, o.Step)
		}
	}
	return nil
}

func (r *Report) Find(step string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Step == step {
			return o, true
		}
	}
	return Outcome{}, false
}

func (r *Report) Warnings() []string {
	var warnings []string
	for _, o := range r.Outcomes {
		if o.Status == Degraded {
			warnings = append(warnings, o.Warnings...)
		}
	}
	return warnings
}

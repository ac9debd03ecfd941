// internal/writer/writer.go
package writer

import (
	"errors"

	"github.com/tamzrod/battery-monitor/internal/status"
)

var errNoTargets = errors.New("writer: no targets")

type writerImpl struct {
	plan    Plan
	targets []*blockWriter
}

// New builds a writer fanning each snapshot out to every target of the plan.
func New(plan Plan, clients map[string]RegisterWriter) Writer {
	w := &writerImpl{plan: plan}
	for _, t := range plan.Targets {
		w.targets = append(w.targets, newBlockWriter(t, clients[t.Endpoint]))
	}
	return w
}

// WriteStatus writes s into every target.
// A failing target does not stop delivery to the others.
func (w *writerImpl) WriteStatus(s status.Snapshot) error {
	if len(w.targets) == 0 {
		return errNoTargets
	}

	var errs []error
	for _, bw := range w.targets {
		if err := bw.WriteStatus(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package scenario

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	domainerrors "github.com/davidleathers/deterministic-dispatch/internal/domain/errors"
	"github.com/davidleathers/deterministic-dispatch/internal/service/looper"
)

// Report summarizes one scenario run.
type Report struct {
	Scenario       string
	StepsRun       int
	Dispatched     int
	AutoDispatched int
	Remaining      int
}

// Runner replays scenarios against a looper.
type Runner struct {
	looper *looper.Looper
	logger *zap.Logger
}

func NewRunner(lp *looper.Looper, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{looper: lp, logger: logger}
}

// Run executes the scenario's steps in order. A stop_auto step that
// dispatched nothing is reported at warn level but does not abort the
// run, mirroring how test drivers treat that usage signal.
func (r *Runner) Run(sc *Scenario) (Report, error) {
	report := Report{Scenario: sc.Name}
	logger := r.logger.With(zap.String("scenario", sc.Name))

	for i, step := range sc.Steps {
		if err := r.runStep(step, &report, logger); err != nil {
			return report, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		report.StepsRun++
	}

	report.Remaining = r.looper.Pending()
	logger.Info("scenario finished",
		zap.Int("steps", report.StepsRun),
		zap.Int("dispatched", report.Dispatched),
		zap.Int("auto_dispatched", report.AutoDispatched),
		zap.Int("remaining", report.Remaining))
	return report, nil
}

func (r *Runner) runStep(step Step, report *Report, logger *zap.Logger) error {
	switch step.Op {
	case OpSend:
		return r.looper.SendDelayed(step.Tag, step.Delay)

	case OpAdvance:
		return r.looper.MoveTimeForward(step.Amount)

	case OpDispatch:
		n := r.looper.DispatchAll()
		report.Dispatched += n
		logger.Debug("dispatch step", zap.Int("count", n))
		return nil

	case OpStartAuto:
		return r.looper.StartAutoDispatch()

	case OpStopAuto:
		n, err := r.looper.StopAutoDispatch()
		report.AutoDispatched += n
		if errors.Is(err, domainerrors.ErrNoMessagesDispatched) {
			logger.Warn("auto-dispatch session delivered no messages")
			return nil
		}
		return err

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

package cli

import (
	"fmt"

	"github.com/sdejongh/mediakit/pkg/models"
	"github.com/sdejongh/mediakit/pkg/output"
)

// ExitCodeError carries the process exit code of a finished run. Err is nil
// when the run completed with a non-success status but nothing failed
// outright (partial runs).
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error { return e.Err }

// finishRun writes the optional run report and turns the run status into
// the command result
func finishRun(report models.Report, runErr error, flags ReportFlags) error {
	if report == nil {
		return runErr
	}
	if flags.Path != "" {
		if err := output.WriteRunReport(report, flags.Path, flags.Format); err != nil {
			if runErr == nil {
				runErr = fmt.Errorf("failed to write report: %w", err)
			}
		}
	}

	code := report.Info().Status.ExitCode()
	if runErr == nil && code == 0 {
		return nil
	}
	if code == 0 {
		code = 1
	}
	return &ExitCodeError{Code: code, Err: runErr}
}

package semantic

import (
	stderrors "errors"
	"fmt"

	"solcheck/internal/core"
	"solcheck/internal/errors"
)

// inContract attaches the contract, and the function when known, to
// analysis errors that do not carry a location yet.
func inContract(err error, c *core.Contract, fn *core.Function) error {
	var ae *errors.AnalysisError
	if !stderrors.As(err, &ae) {
		return err
	}
	if ae.Contract == "" && c != nil {
		ae.Contract = c.Name
	}
	if ae.Function == "" && fn != nil {
		ae.Function = fn.Name
		if fn.Name == "" {
			ae.Function = fn.Kind.String()
		}
	}
	return err
}

// isolatedFailure marks a contract skipped because an ancestor failed.
func isolatedFailure(c *core.Contract, ancestor string) error {
	return errors.NewAnalysisError(errors.KindTypeResolution, errors.WarningIsolatedFailure,
		fmt.Sprintf("skipped because ancestor %s failed", ancestor)).
		InContract(c.Name).
		Build()
}

func unknownLibrary(c *core.Contract, name string) error {
	return errors.NewAnalysisError(errors.KindTypeResolution, errors.WarningUnknownLibrary,
		fmt.Sprintf("using-for library '%s' is not part of the unit", name)).
		InContract(c.Name).
		Build()
}

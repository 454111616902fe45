// Package logging configures the structured loggers shared by the analysis
// packages.
package logging

import (
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Root is the name prefix of every solcheck logger.
const Root = "solcheck"

// Configure sets the verbosity of all loggers. Verbosity follows commonlog:
// 0 logs notices, 1 info, 2 and above debug, negative values are quieter.
// An empty path logs to stderr.
func Configure(verbosity int, path string) {
	if path == "" {
		commonlog.Configure(verbosity, nil)
		return
	}
	commonlog.Configure(verbosity, &path)
}

// Get returns the logger for one component, e.g. Get("semantic").
func Get(component string) commonlog.Logger {
	return commonlog.GetLogger(Root + "." + component)
}

// ForContract scopes a logger to one contract of a compilation unit.
func ForContract(log commonlog.Logger, contract string) commonlog.Logger {
	return commonlog.NewKeyValueLogger(log, "contract", contract)
}

// Quiet reports whether debug output of the component is discarded, so
// callers can skip building expensive messages.
func Quiet(log commonlog.Logger) bool {
	return !log.AllowLevel(commonlog.Debug)
}

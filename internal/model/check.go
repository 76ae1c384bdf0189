package model

// CheckStatus is the outcome of a preflight check.
type CheckStatus string

const (
	CheckStatusOK      CheckStatus = "ok"
	CheckStatusWarning CheckStatus = "warning"
	CheckStatusError   CheckStatus = "error"
)

// CheckResult is a single preflight check of a sandbox dependency, like the
// solc binary, the docker daemon or the run log schema.
type CheckResult struct {
	ID      string
	Message string
	Status  CheckStatus
}

// CheckGroup groups the checks of a single sandbox component.
type CheckGroup struct {
	Name    string
	Results []CheckResult
}

// CheckSummary counts check results by status.
type CheckSummary struct {
	OK       int
	Warnings int
	Errors   int
}

// Failed returns true when at least one check failed.
func (s CheckSummary) Failed() bool { return s.Errors > 0 }

// Clean returns true when all checks passed without warnings.
func (s CheckSummary) Clean() bool { return s.Errors == 0 && s.Warnings == 0 }

// Summarize counts the results of all the groups.
func Summarize(groups []CheckGroup) CheckSummary {
	var s CheckSummary
	for _, g := range groups {
		for _, r := range g.Results {
			switch r.Status {
			case CheckStatusOK:
				s.OK++
			case CheckStatusWarning:
				s.Warnings++
			case CheckStatusError:
				s.Errors++
			}
		}
	}
	return s
}

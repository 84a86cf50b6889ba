package formatter

import (
	"fmt"
	"io"
)

// Check is the result of one environment check run by the doctor command
type Check struct {
	Component string
	Target    string
	Detail    string
	Err       error
}

// PrintChecks prints check results and returns how many failed
func PrintChecks(w io.Writer, checks []Check) int {
	failed := 0
	tw := newTable(w)
	fmt.Fprintln(tw, "COMPONENT\tTARGET\tRESULT\tDETAIL")
	for _, c := range checks {
		result, detail := "OK", c.Detail
		if c.Err != nil {
			failed++
			result, detail = "FAIL", c.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Component, c.Target, result, TruncateString(dash(detail), 100))
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d of %d checks passed\n", len(checks)-failed, len(checks))
	return failed
}

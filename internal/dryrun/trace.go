package dryrun

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/executor"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/planner"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	statusSuccess = "SUCCESS"
	statusFailed  = "FAILED"

	// statusPlanned marks actions of a plan that was never executed
	statusPlanned = "planned"
	// statusNotRun marks actions after the one that stopped execution
	statusNotRun = "not_run"
)

// PlanTrace contains all data needed to render the outcome of a run.
type PlanTrace struct {
	RunID  string
	DryRun bool
	Plan   *planner.Plan
	// Result is nil when the plan was only computed
	Result *executor.ExecutionResult
	// Transport is set when OCM was served offline
	Transport *Transport
	Verbose   bool
	// Color enables ANSI colors for statuses
	Color bool
}

// TraceJSON is the JSON-serializable representation of the trace.
type TraceJSON struct {
	RunID       string            `json:"runId,omitempty"`
	DryRun      bool              `json:"dryRun"`
	Status      string            `json:"status"`
	Summary     map[string]int    `json:"summary"`
	Actions     []TraceAction     `json:"actions,omitempty"`
	Errors      []TraceError      `json:"errors,omitempty"`
	APIRequests []TraceAPIRequest `json:"apiRequests,omitempty"`
}

// TraceAction is the JSON representation of a planned action and its outcome.
type TraceAction struct {
	Operation string                 `json:"operation"`
	Cluster   string                 `json:"cluster"`
	PoolID    string                 `json:"poolId"`
	Kind      string                 `json:"kind"`
	Status    string                 `json:"status"`
	Error     string                 `json:"error,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// TraceError is the JSON representation of a rejected change.
type TraceError struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// TraceAPIRequest is the JSON representation of a recorded OCM request.
type TraceAPIRequest struct {
	Method     string `json:"method"`
	URL        string `json:"url"`
	StatusCode int    `json:"statusCode"`
	Request    string `json:"requestBody,omitempty"`
	Response   string `json:"responseBody,omitempty"`
}

// Status is FAILED when the plan has errors or execution stopped on a client error
func (t *PlanTrace) Status() string {
	if t.Plan != nil && len(t.Plan.Errors) > 0 {
		return statusFailed
	}
	if t.Result != nil && t.Result.Status == executor.StatusFailed {
		return statusFailed
	}
	return statusSuccess
}

func (t *PlanTrace) actions() []planner.Action {
	if t.Plan == nil {
		return nil
	}
	return t.Plan.Actions
}

// actionStatus returns the outcome of the i-th planned action
func (t *PlanTrace) actionStatus(i int) (string, error) {
	if t.Result == nil {
		return statusPlanned, nil
	}
	if i < len(t.Result.Results) {
		res := t.Result.Results[i]
		return string(res.Status), res.Error
	}
	return statusNotRun, nil
}

func (t *PlanTrace) colorize(status string) string {
	if !t.Color {
		return status
	}
	switch status {
	case statusFailed, string(executor.ActionFailed):
		return text.FgRed.Sprint(status)
	case statusSuccess, string(executor.ActionExecuted):
		return text.FgGreen.Sprint(status)
	case string(executor.ActionSkipped), statusNotRun:
		return text.FgYellow.Sprint(status)
	default:
		return text.FgHiCyan.Sprint(status)
	}
}

// FormatText formats the trace as human-readable text.
func (t *PlanTrace) FormatText() string {
	var b strings.Builder
	title := cases.Title(language.English)

	b.WriteString("Machine Pool Reconciliation\n")
	b.WriteString("===========================\n")
	if t.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", t.RunID)
	}
	fmt.Fprintf(&b, "Dry run: %t\n\n", t.DryRun)

	actions := t.actions()
	fmt.Fprintf(&b, "Actions (%d)\n", len(actions))
	if len(actions) == 0 {
		b.WriteString("  No changes\n")
	} else {
		tw := table.NewWriter()
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"#", "Operation", "Cluster", "Pool", "Kind", "Status"})
		for i, a := range actions {
			status, _ := t.actionStatus(i)
			tw.AppendRow(table.Row{
				i + 1,
				title.String(string(a.Operation)),
				a.Pool.GetCluster(),
				a.Pool.GetID(),
				a.Pool.Kind(),
				t.colorize(status),
			})
		}
		b.WriteString(tw.Render())
		b.WriteString("\n")

		for i, a := range actions {
			_, err := t.actionStatus(i)
			if err != nil {
				fmt.Fprintf(&b, "  [%d] Error: %v\n", i+1, err)
			}
			if t.Verbose {
				payload := a.Pool.Payload()
				if a.Operation == planner.OperationUpdate {
					payload = a.Pool.UpdatePayload()
				}
				raw, _ := json.Marshal(payload)
				fmt.Fprintf(&b, "  [%d] [verbose] Payload:\n      %s\n", i+1, prettyJSON(raw))
			}
		}
	}
	b.WriteString("\n")

	if t.Plan != nil && len(t.Plan.Errors) > 0 {
		fmt.Fprintf(&b, "Errors (%d)\n", len(t.Plan.Errors))
		for i, err := range t.Plan.Errors {
			kind := planner.KindOf(err)
			if kind == "" {
				fmt.Fprintf(&b, "  [%d] %v\n", i+1, err)
				continue
			}
			fmt.Fprintf(&b, "  [%d] %s: %v\n", i+1, kind, err)
		}
		b.WriteString("\n")
	}

	if t.Transport != nil && len(t.Transport.Requests) > 0 {
		fmt.Fprintf(&b, "OCM Requests (%d)\n", len(t.Transport.Requests))
		for _, req := range t.Transport.Requests {
			fmt.Fprintf(&b, "  %s %s -> %d\n", req.Method, req.URL, req.StatusCode)
			if t.Verbose {
				if len(req.Body) > 0 {
					fmt.Fprintf(&b, "    [verbose] Request body:\n      %s\n", prettyJSON(req.Body))
				}
				if len(req.Response) > 0 {
					fmt.Fprintf(&b, "    [verbose] Response body:\n      %s\n", prettyJSON(req.Response))
				}
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Result: %s\n", t.colorize(t.Status()))
	return b.String()
}

// FormatJSON formats the trace as JSON.
func (t *PlanTrace) FormatJSON() ([]byte, error) {
	trace := TraceJSON{
		RunID:   t.RunID,
		DryRun:  t.DryRun,
		Status:  t.Status(),
		Summary: map[string]int{},
	}

	for i, a := range t.actions() {
		status, err := t.actionStatus(i)
		ta := TraceAction{
			Operation: string(a.Operation),
			Cluster:   a.Pool.GetCluster(),
			PoolID:    a.Pool.GetID(),
			Kind:      a.Pool.Kind(),
			Status:    status,
		}
		if err != nil {
			ta.Error = err.Error()
		}
		if t.Verbose {
			ta.Payload = a.Pool.Payload()
			if a.Operation == planner.OperationUpdate {
				ta.Payload = a.Pool.UpdatePayload()
			}
		}
		trace.Summary[string(a.Operation)]++
		trace.Actions = append(trace.Actions, ta)
	}

	if t.Plan != nil {
		for _, err := range t.Plan.Errors {
			trace.Errors = append(trace.Errors, TraceError{
				Kind:    string(planner.KindOf(err)),
				Message: err.Error(),
			})
		}
		trace.Summary["errors"] = len(t.Plan.Errors)
	}

	if t.Transport != nil {
		for _, req := range t.Transport.Requests {
			tr := TraceAPIRequest{
				Method:     req.Method,
				URL:        req.URL,
				StatusCode: req.StatusCode,
			}
			if t.Verbose {
				if len(req.Body) > 0 {
					tr.Request = string(req.Body)
				}
				if len(req.Response) > 0 {
					tr.Response = string(req.Response)
				}
			}
			trace.APIRequests = append(trace.APIRequests, tr)
		}
	}

	return json.MarshalIndent(trace, "", "  ")
}

// prettyJSON attempts to indent raw JSON bytes for readable output.
// If the input is not valid JSON, it is returned as-is.
func prettyJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "      ", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

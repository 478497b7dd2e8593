package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lumenlake/swarmsql/catalog"
	"github.com/lumenlake/swarmsql/core"
	"github.com/lumenlake/swarmsql/model"
)

const sqlRunnerInstructions = `You write a single read-only SQL query answering
the request, using only the tables and columns named in the findings. Reply
with the SQL statement alone, optionally inside a code fence. No commentary.`

// SQLRunner turns the accumulated schema findings into a SQL query, executes
// it, and completes the run with a summary of the results.
type SQLRunner struct {
	name     string
	model    model.Model
	executor catalog.QueryExecutor
}

var _ core.Worker = (*SQLRunner)(nil)

// SQLRunnerOptions configure the SQL worker.
type SQLRunnerOptions struct {
	// Name defaults to "sql_runner".
	Name string
}

// NewSQLRunner creates the query generation + execution worker.
func NewSQLRunner(m model.Model, exec catalog.QueryExecutor, optFns ...func(o *SQLRunnerOptions)) *SQLRunner {
	opts := SQLRunnerOptions{Name: "sql_runner"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &SQLRunner{name: opts.Name, model: m, executor: exec}
}

// Name implements core.Worker.
func (s *SQLRunner) Name() string { return s.name }

// Capability implements core.Worker.
func (s *SQLRunner) Capability() string { return core.CapabilitySQL }

// Invoke implements core.Worker.
func (s *SQLRunner) Invoke(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n", view.Request())
	for _, f := range view.Findings() {
		fmt.Fprintf(&b, "%s: %v\n", f.Key, f.Value)
	}

	reply, err := model.Complete(ctx, s.model, model.Request{
		Instructions: sqlRunnerInstructions,
		Messages:     []model.Message{{Role: "user", Text: b.String()}},
	})
	if err != nil {
		return core.Failure{Kind: core.FailureCollaborator, Detail: fmt.Sprintf("sql model call failed: %v", err)}, nil
	}

	query := stripFence(reply)
	if query == "" {
		return core.Failure{Kind: core.FailureWorkerInternal, Detail: "model produced no SQL"}, nil
	}
	view.SetFinding("generated_sql", query)

	rs, err := s.executor.Execute(ctx, query)
	if err != nil {
		return core.Failure{Kind: core.FailureCollaborator, Detail: fmt.Sprintf("query execution failed: %v", err)}, nil
	}
	if rs.Truncated {
		view.AddDiagnostic("query results truncated at the row cap")
	}
	view.SetFinding("query_results", renderResults(rs))

	return core.Completion{Result: summarize(view.Request(), query, rs)}, nil
}

// stripFence removes a surrounding markdown code fence, if any.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```sql")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func renderResults(rs catalog.ResultSet) string {
	out, err := json.Marshal(struct {
		Columns   []string `json:"columns"`
		Rows      [][]any  `json:"rows"`
		Truncated bool     `json:"truncated,omitempty"`
	}{rs.Columns, rs.Rows, rs.Truncated})
	if err != nil {
		return fmt.Sprintf("%v", rs.Rows)
	}
	return string(out)
}

func summarize(request, query string, rs catalog.ResultSet) string {
	return fmt.Sprintf("Query for %q returned %d row(s).\nSQL: %s\nResults: %s",
		request, len(rs.Rows), query, renderResults(rs))
}

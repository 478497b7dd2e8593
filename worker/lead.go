package worker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lumenlake/swarmsql/core"
	"github.com/lumenlake/swarmsql/model"
)

const leadInstructions = `You are the lead coordinator of a data-analysis team.
Decide the single next step for the user's request. Reply with one JSON object:
{"action":"handoff","target":"<worker or capability>","reason":"<why>"} to delegate,
{"action":"complete","answer":"<final answer>"} when the findings already answer the request,
{"action":"fail","reason":"<why>"} only when no worker can make progress.
Prefer delegating to the schema expert before SQL is written.`

// Lead is the entry worker: it reads the request plus accumulated findings
// and either delegates to a collaborator or finalizes the answer.
type Lead struct {
	name          string
	model         model.Model
	collaborators map[string]string // name -> one-line description
}

var _ core.Worker = (*Lead)(nil)

// LeadOptions configure the lead worker.
type LeadOptions struct {
	// Name defaults to "lead".
	Name string
	// Collaborators maps worker names to one-line descriptions included in
	// the routing prompt.
	Collaborators map[string]string
}

// NewLead creates the coordinating worker over the given model.
func NewLead(m model.Model, optFns ...func(o *LeadOptions)) *Lead {
	opts := LeadOptions{Name: "lead"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Lead{name: opts.Name, model: m, collaborators: opts.Collaborators}
}

// Name implements core.Worker.
func (l *Lead) Name() string { return l.name }

// Capability implements core.Worker.
func (l *Lead) Capability() string { return core.CapabilityCoordination }

// Invoke implements core.Worker.
func (l *Lead) Invoke(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
	prompt := l.buildPrompt(view)
	reply, err := model.Complete(ctx, l.model, model.Request{
		Instructions: leadInstructions,
		Messages:     []model.Message{{Role: "user", Text: prompt}},
	})
	if err != nil {
		return core.Failure{Kind: core.FailureCollaborator, Detail: fmt.Sprintf("lead model call failed: %v", err)}, nil
	}

	d, ok := parseDecision(reply)
	if !ok {
		// A reply without a parseable decision is treated as the final
		// answer rather than discarded.
		view.AddDiagnostic("lead reply carried no structured decision; using it as the answer")
		return core.Completion{Result: strings.TrimSpace(reply)}, nil
	}
	for k, v := range d.Findings {
		view.SetFinding(k, v)
	}
	switch d.Action {
	case "handoff":
		return core.Handoff{Target: d.Target, Reason: d.Reason}, nil
	case "complete":
		return core.Completion{Result: d.Answer}, nil
	default:
		return core.Failure{Kind: core.FailureWorkerInternal, Detail: d.Reason}, nil
	}
}

func (l *Lead) buildPrompt(view *core.ContextView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n", view.Request())

	if len(l.collaborators) > 0 {
		b.WriteString("\nAvailable workers:\n")
		names := make([]string, 0, len(l.collaborators))
		for name := range l.collaborators {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "- %s: %s\n", name, l.collaborators[name])
		}
	}

	if findings := view.Findings(); len(findings) > 0 {
		b.WriteString("\nFindings so far:\n")
		for _, f := range findings {
			fmt.Fprintf(&b, "- %s (%s): %v\n", f.Key, f.Worker, f.Value)
		}
	}
	return b.String()
}

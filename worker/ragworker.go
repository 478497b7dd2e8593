package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumenlake/swarmsql/core"
	"github.com/lumenlake/swarmsql/retrieval"
)

// RAGWorker looks up reference material (table docs, vetted query examples)
// for the request and attaches it as findings. It never answers on its own:
// a retrieval miss or an index outage degrades to a handoff toward the
// catalog capability instead of failing the run, since schema inspection can
// answer what the references could not.
type RAGWorker struct {
	name      string
	retriever retrieval.Retriever
	topK      int
	fallback  string
}

var _ core.Worker = (*RAGWorker)(nil)

// RAGOptions configure the retrieval worker.
type RAGOptions struct {
	// Name defaults to "rag".
	Name string
	// TopK caps the number of attached references. Defaults to
	// retrieval.DefaultTopK.
	TopK int
	// Fallback is the capability handed to when retrieval yields nothing.
	// Defaults to the catalog capability.
	Fallback string
}

// NewRAGWorker creates the reference retrieval worker.
func NewRAGWorker(r retrieval.Retriever, optFns ...func(o *RAGOptions)) *RAGWorker {
	opts := RAGOptions{Name: "rag", TopK: retrieval.DefaultTopK, Fallback: core.CapabilityCatalog}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RAGWorker{name: opts.Name, retriever: r, topK: opts.TopK, fallback: opts.Fallback}
}

// Name implements core.Worker.
func (w *RAGWorker) Name() string { return w.name }

// Capability implements core.Worker.
func (w *RAGWorker) Capability() string { return core.CapabilityRetrieval }

// Invoke implements core.Worker.
func (w *RAGWorker) Invoke(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
	results, err := w.retriever.Retrieve(ctx, view.Request(), func(o *retrieval.SearchOptions) { o.TopK = w.topK })
	if err != nil {
		view.AddDiagnostic(fmt.Sprintf("reference index unavailable: %v", err))
		return core.Handoff{Capability: w.fallback, Reason: "retrieval degraded, continuing from the schema"}, nil
	}
	if len(results) == 0 {
		view.AddDiagnostic("no reference material matched the request")
		return core.Handoff{Capability: w.fallback, Reason: "no references found, continuing from the schema"}, nil
	}

	var b strings.Builder
	for i, res := range results {
		fmt.Fprintf(&b, "[%d] (%.2f) %s\n", i+1, res.Score, res.Content)
	}
	view.SetFinding("reference_examples", b.String())
	return core.Handoff{Capability: w.fallback, Reason: fmt.Sprintf("%d reference(s) attached", len(results))}, nil
}

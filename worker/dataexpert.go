package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumenlake/swarmsql/catalog"
	"github.com/lumenlake/swarmsql/core"
	"github.com/lumenlake/swarmsql/model"
)

const dataExpertInstructions = `You are a data catalog expert. Given a request and
the available schema, identify the tables and columns that answer it. Reply with
one JSON object:
{"action":"handoff","target":"sql","reason":"<why>","findings":{"relevant_tables":"<tables>","schema_notes":"<notes>"}}
once the schema is understood, or
{"action":"fail","reason":"<why>"} if no table can answer the request.`

// DataExpert inspects the catalog, records which tables and columns matter
// for the request, and hands off to the SQL capability.
type DataExpert struct {
	name    string
	model   model.Model
	catalog catalog.Catalog
}

var _ core.Worker = (*DataExpert)(nil)

// DataExpertOptions configure the schema expert.
type DataExpertOptions struct {
	// Name defaults to "data_expert".
	Name string
}

// NewDataExpert creates the schema analysis worker.
func NewDataExpert(m model.Model, cat catalog.Catalog, optFns ...func(o *DataExpertOptions)) *DataExpert {
	opts := DataExpertOptions{Name: "data_expert"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &DataExpert{name: opts.Name, model: m, catalog: cat}
}

// Name implements core.Worker.
func (d *DataExpert) Name() string { return d.name }

// Capability implements core.Worker.
func (d *DataExpert) Capability() string { return core.CapabilityCatalog }

// Invoke implements core.Worker.
func (d *DataExpert) Invoke(ctx context.Context, view *core.ContextView) (core.Outcome, error) {
	schema, err := d.renderSchema(ctx)
	if err != nil {
		return core.Failure{Kind: core.FailureCollaborator, Detail: fmt.Sprintf("catalog unavailable: %v", err)}, nil
	}

	prompt := fmt.Sprintf("Request: %s\n\nSchema:\n%s", view.Request(), schema)
	reply, err := model.Complete(ctx, d.model, model.Request{
		Instructions: dataExpertInstructions,
		Messages:     []model.Message{{Role: "user", Text: prompt}},
	})
	if err != nil {
		return core.Failure{Kind: core.FailureCollaborator, Detail: fmt.Sprintf("data expert model call failed: %v", err)}, nil
	}

	dec, ok := parseDecision(reply)
	if !ok {
		// keep the analysis as a finding and move on to SQL anyway
		view.SetFinding("schema_notes", strings.TrimSpace(reply))
		return core.Handoff{Capability: core.CapabilitySQL, Reason: "schema analyzed"}, nil
	}
	for k, v := range dec.Findings {
		view.SetFinding(k, v)
	}
	switch dec.Action {
	case "handoff":
		if dec.Target == "" {
			return core.Handoff{Capability: core.CapabilitySQL, Reason: dec.Reason}, nil
		}
		return core.Handoff{Target: dec.Target, Reason: dec.Reason}, nil
	case "complete":
		return core.Completion{Result: dec.Answer}, nil
	default:
		return core.Failure{Kind: core.FailureWorkerInternal, Detail: dec.Reason}, nil
	}
}

// renderSchema flattens the catalog into prompt text.
func (d *DataExpert) renderSchema(ctx context.Context) (string, error) {
	dbs, err := d.catalog.ListDatabases(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, db := range dbs {
		tables, err := d.catalog.ListTables(ctx, db)
		if err != nil {
			return "", err
		}
		for _, table := range tables {
			info, err := d.catalog.DescribeTable(ctx, db, table)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "%s.%s:\n", db, table)
			for _, col := range info.Columns {
				flags := ""
				if col.PrimaryKey {
					flags = " [pk]"
				}
				fmt.Fprintf(&b, "  %s %s%s\n", col.Name, col.Type, flags)
			}
		}
	}
	return b.String(), nil
}

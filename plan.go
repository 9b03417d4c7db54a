package engine

import (
	"fmt"

	"github.com/jsonstream/engine/internal/compiler"
	"github.com/jsonstream/engine/internal/lang"
	"github.com/jsonstream/engine/internal/operator"
	"github.com/jsonstream/engine/internal/runtime"
	"github.com/jsonstream/engine/internal/value"
	"github.com/jsonstream/engine/internal/window"
)

// plan is a realized pipeline: its head operator (ready to Push/Flush) and
// the chain of every operator in it (for Flush ordering), plus the set of
// sink stream names it inserts into. The stream-deletion cascade keys on a
// flow's source stream and does not consult sinks.
type plan struct {
	head  operator.Operator
	chain []operator.Operator
	sinks []string
}

// flush runs Flush on every stage, source-to-sink, so that upstream
// buffered state (e.g. a live Summarize group) is emitted before the
// downstream stage that will receive it is itself flushed.
func (p *plan) flush() {
	for _, op := range p.chain {
		op.Flush()
	}
}

// realizePipeline compiles every stage of q into a wired chain of
// operators (spec §4.2, §4.12 "Flow creation"). onResult backs the default
// Collect sink appended when the pipeline doesn't end with insert_into.
func (e *Engine) realizePipeline(q *lang.Query, onResult func(value.Value)) (*plan, error) {
	p := &plan{}

	for i, op := range q.Ops {
		if _, ok := op.(*lang.CollectOp); ok && i == len(q.Ops)-1 {
			// A final collect is the default Collect sink appended below.
			continue
		}
		stage, sink, err := e.realizeOp(op)
		if err != nil {
			return nil, err
		}
		p.chain = append(p.chain, stage)
		if sink != "" {
			p.sinks = append(p.sinks, sink)
		}
	}

	if _, endsInInsert := lastOp(q).(*lang.InsertIntoOp); !endsInInsert {
		p.chain = append(p.chain, operator.NewCollect(onResult))
	}

	for i := 0; i < len(p.chain)-1; i++ {
		p.chain[i].SetDownstream(p.chain[i+1])
	}
	if len(p.chain) > 0 {
		p.head = p.chain[0]
	}
	return p, nil
}

func lastOp(q *lang.Query) lang.Operation {
	if len(q.Ops) == 0 {
		return nil
	}
	return q.Ops[len(q.Ops)-1]
}

// realizeOp compiles one pipe stage into its operator, returning the sink
// stream name when the stage is an InsertInto.
func (e *Engine) realizeOp(op lang.Operation) (operator.Operator, string, error) {
	switch node := op.(type) {
	case *lang.WhereOp:
		cond, err := compiler.CompileWhere(node.Cond)
		if err != nil {
			return nil, "", fmt.Errorf("where: %w", err)
		}
		return operator.NewFilter(cond), "", nil

	case *lang.SelectOp:
		entries, err := compiler.CompileObject(node.Obj)
		if err != nil {
			return nil, "", fmt.Errorf("select: %w", err)
		}
		return operator.NewSelect(entries), "", nil

	case *lang.ScanOp:
		stepNames := make([]string, len(node.Steps))
		for i, s := range node.Steps {
			stepNames[i] = s.Name
		}
		steps := make([]operator.ScanStep, len(node.Steps))
		for i, s := range node.Steps {
			cond, err := compiler.CompileScanBool(s.Cond, stepNames)
			if err != nil {
				return nil, "", fmt.Errorf("scan step %q: %w", s.Name, err)
			}
			stmts := make([]operator.ScanStatement, len(s.Statements))
			for j, stmt := range s.Statements {
				switch st := stmt.(type) {
				case *lang.AssignStmt:
					fn, err := compiler.CompileScanValue(st.Value, stepNames)
					if err != nil {
						return nil, "", fmt.Errorf("scan step %q assignment: %w", s.Name, err)
					}
					stmts[j] = operator.ScanStatement{Target: st.Target, Value: fn}
				case *lang.EmitStmt:
					fn, err := compiler.CompileScanValue(st.Value, stepNames)
					if err != nil {
						return nil, "", fmt.Errorf("scan step %q emit: %w", s.Name, err)
					}
					stmts[j] = operator.ScanStatement{IsEmit: true, Value: fn}
				}
			}
			steps[i] = operator.ScanStep{Name: s.Name, Cond: cond, Statements: stmts}
		}
		return operator.NewScan(steps), "", nil

	case *lang.SummarizeOp:
		return e.realizeSummarize(node)

	case *lang.InsertIntoOp:
		return operator.NewInsertInto(node.Stream, e.streams, e.streams), node.Stream, nil

	case *lang.CollectOp:
		return nil, "", fmt.Errorf("collect must be the final pipe stage")

	default:
		return nil, "", fmt.Errorf("unknown operation %T", op)
	}
}

func (e *Engine) realizeSummarize(node *lang.SummarizeOp) (operator.Operator, string, error) {
	if node.Window != nil && node.Emit != nil {
		return nil, "", fmt.Errorf("summarize: over and emit are mutually exclusive")
	}
	template, err := compiler.CompileAggregationTemplate(node.Agg, node.OverName)
	if err != nil {
		return nil, "", fmt.Errorf("summarize: %w", err)
	}
	byExprs, err := compiler.CompileByExprs(node.By)
	if err != nil {
		return nil, "", fmt.Errorf("summarize by: %w", err)
	}

	var windowFn window.Func
	if node.Window != nil {
		windowFn, err = compiler.CompileWindowCall(node.Window)
		if err != nil {
			return nil, "", fmt.Errorf("summarize over: %w", err)
		}
	}

	var emit *operator.EmitPolicy
	if node.Emit != nil {
		emit, err = compileEmitClause(node.Emit)
		if err != nil {
			return nil, "", fmt.Errorf("summarize emit: %w", err)
		}
	}

	// Every summarize gets its own scheduler, which runs its process()
	// calls one at a time on a single worker; no scheduler is shared
	// between stages or flows (spec §4.4, §5).
	scheduler := runtime.NewScheduler(e.config.SchedulerCapacity, e.config.OverflowStrategy, e.config.BlockTimeout)

	return operator.NewSummarize(template, byExprs, node.OverName, windowFn, emit, scheduler), "", nil
}

func compileEmitClause(c *lang.EmitClause) (*operator.EmitPolicy, error) {
	switch {
	case c.Every != nil:
		fn, err := compiler.CompileValue(c.Every)
		if err != nil {
			return nil, err
		}
		n, ok := fn(value.Null()).AsNumber()
		if !ok {
			return nil, fmt.Errorf("emit every: argument must be a number literal")
		}
		return &operator.EmitPolicy{Kind: operator.EmitEvery, Every: int64(n)}, nil
	case c.OnChangeOf != "":
		return &operator.EmitPolicy{Kind: operator.EmitOnChangeOf, Field: c.OnChangeOf}, nil
	case c.OnGroupChange:
		return &operator.EmitPolicy{Kind: operator.EmitOnGroupChange}, nil
	case c.OnUpdate:
		return &operator.EmitPolicy{Kind: operator.EmitOnUpdate}, nil
	default:
		return nil, fmt.Errorf("empty emit clause")
	}
}

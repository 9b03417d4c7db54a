package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonstream/engine/internal/compiler"
	"github.com/jsonstream/engine/internal/lang"
	"github.com/jsonstream/engine/internal/value"
)

func compileScan(t *testing.T, src string) *Scan {
	t.Helper()
	q, err := lang.Parse("events | scan(" + src + ")")
	require.NoError(t, err)
	scanOp := q.Ops[0].(*lang.ScanOp)

	names := make([]string, len(scanOp.Steps))
	for i, s := range scanOp.Steps {
		names[i] = s.Name
	}

	steps := make([]ScanStep, len(scanOp.Steps))
	for i, s := range scanOp.Steps {
		cond, err := compiler.CompileScanBool(s.Cond, names)
		require.NoError(t, err)
		stmts := make([]ScanStatement, len(s.Statements))
		for j, stmt := range s.Statements {
			switch st := stmt.(type) {
			case *lang.AssignStmt:
				fn, err := compiler.CompileScanValue(st.Value, names)
				require.NoError(t, err)
				stmts[j] = ScanStatement{Target: st.Target, Value: fn}
			case *lang.EmitStmt:
				fn, err := compiler.CompileScanValue(st.Value, names)
				require.NoError(t, err)
				stmts[j] = ScanStatement{IsEmit: true, Value: fn}
			}
		}
		steps[i] = ScanStep{Name: s.Name, Cond: cond, Statements: stmts}
	}
	return NewScan(steps)
}

func TestScanEmitsOnFinalStep(t *testing.T) {
	s := compileScan(t, `
		step login: event_type=="login" => user_id=user_id;
		step act: event_type=="action" => seen=true;
		step end: event_type=="logout" => emit({user_id});
	`)
	rec := &recorder{}
	s.SetDownstream(rec)

	s.Push(value.FromNative(map[string]interface{}{"event_type": "login", "user_id": "alice"}))
	s.Push(value.FromNative(map[string]interface{}{"event_type": "action"}))
	s.Push(value.FromNative(map[string]interface{}{"event_type": "logout", "user_id": "alice"}))

	require.Len(t, rec.got, 1)
	obj, ok := rec.got[0].AsObject()
	require.True(t, ok)
	userID, _ := obj.Get("user_id")
	s2, _ := userID.AsString()
	assert.Equal(t, "alice", s2)
}

func TestScanCrossStepStateReference(t *testing.T) {
	s := compileScan(t, `
		step s1: a=="start" => s1.x=1;
		step s2: s1.x==1 => emit({done: true});
	`)
	rec := &recorder{}
	s.SetDownstream(rec)

	s.Push(value.FromNative(map[string]interface{}{"a": "start"}))
	s.Push(value.FromNative(map[string]interface{}{"a": "next"}))

	require.Len(t, rec.got, 1)
}

func TestScanFlushDiscardsLiveMatches(t *testing.T) {
	s := compileScan(t, `
		step login: event_type=="login" => user_id=user_id;
		step end: event_type=="logout" => emit({user_id});
	`)
	rec := &recorder{}
	s.SetDownstream(rec)

	s.Push(value.FromNative(map[string]interface{}{"event_type": "login", "user_id": "alice"}))
	s.Flush()
	s.Push(value.FromNative(map[string]interface{}{"event_type": "logout"}))

	assert.Empty(t, rec.got, "flush must discard an in-progress match without emitting")
}

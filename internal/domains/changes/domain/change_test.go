package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func noop(context.Context, TargetSystem) error { return nil }

func TestNewStage_SortsByOrderThenID(t *testing.T) {
	stage, err := NewStage("inventory",
		Change{ID: "c", Order: "0002", TargetSystem: "t", Transactional: true, Apply: noop},
		Change{ID: "b", Order: "0001", TargetSystem: "t", Transactional: true, Apply: noop},
		Change{ID: "a", Order: "0002", TargetSystem: "t", Transactional: true, Apply: noop},
	)
	require.NoError(t, err)

	var ids []string
	for _, c := range stage.Changes {
		ids = append(ids, c.ID)
	}
	require.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestNewStage_Validation(t *testing.T) {
	cases := map[string]struct {
		name    string
		changes []Change
		want    error
	}{
		"empty stage name": {name: " ", want: ErrEmptyStageName},
		"empty id":         {name: "s", changes: []Change{{TargetSystem: "t", Apply: noop, Rollback: noop}}, want: ErrEmptyChangeID},
		"no target":        {name: "s", changes: []Change{{ID: "x", Apply: noop, Rollback: noop}}, want: ErrEmptyTargetSystem},
		"no apply":         {name: "s", changes: []Change{{ID: "x", TargetSystem: "t", Rollback: noop}}, want: ErrMissingApply},
		"no rollback":      {name: "s", changes: []Change{{ID: "x", TargetSystem: "t", Apply: noop}}, want: ErrMissingRollback},
		"duplicate": {name: "s", changes: []Change{
			{ID: "x", TargetSystem: "t", Transactional: true, Apply: noop},
			{ID: "x", TargetSystem: "t", Transactional: true, Apply: noop},
		}, want: ErrDuplicateChangeID},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewStage(tc.name, tc.changes...)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNewPipeline_PositionsAcrossStages(t *testing.T) {
	first, err := NewStage("one", Change{ID: "a", TargetSystem: "t", Transactional: true, Apply: noop})
	require.NoError(t, err)
	second, err := NewStage("two", Change{ID: "b", TargetSystem: "t", Transactional: true, Apply: noop})
	require.NoError(t, err)

	pipeline, err := NewPipeline(first, second)
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, pipeline.Stages())

	planned, ok := pipeline.Lookup("b")
	require.True(t, ok)
	require.Equal(t, "two", planned.Stage)
	require.Equal(t, 1, planned.Position)

	_, err = NewPipeline(first, first)
	require.ErrorIs(t, err, ErrDuplicateChangeID)
}

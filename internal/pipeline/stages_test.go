package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStages_StopsOnFirstError(t *testing.T) {
	bs := newBuildState(nil, nil)
	var ran []StageName
	stage := func(name StageName, err error) StageDef {
		return StageDef{Name: name, Fn: func(context.Context, *BuildState) error {
			ran = append(ran, name)
			return err
		}}
	}
	boom := errors.New("boom")

	err := RunStages(context.Background(), bs, []StageDef{
		stage(StageAssignRoutes, nil),
		stage(StageRender, boom),
		stage(StageValidate, nil),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageRender, se.Stage)
	assert.False(t, se.Canceled)
	assert.Equal(t, []StageName{StageAssignRoutes, StageRender}, ran)
	assert.Contains(t, bs.Durations, StageRender)
	assert.NotContains(t, bs.Durations, StageValidate)
}

func TestRunStages_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false

	err := RunStages(ctx, newBuildState(nil, nil), []StageDef{{Name: StageRender, Fn: func(context.Context, *BuildState) error {
		called = true
		return nil
	}}})

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestPlan_AddIf(t *testing.T) {
	noop := func(context.Context, *BuildState) error { return nil }
	p := NewPlan().Add(StageAssignRoutes, noop).AddIf(false, StageDropDrafts, noop).AddIf(true, StageValidate, noop)
	require.Len(t, p.Defs, 2)
	assert.Equal(t, StageValidate, p.Defs[1].Name)
}

func TestPageLink(t *testing.T) {
	assert.Equal(t, "", pageLink("index.html"))
	assert.Equal(t, "posts/a/", pageLink("posts/a/index.html"))
	assert.Equal(t, "about.html", pageLink("about.html"))
	assert.Equal(t, "images/index.html.png", pageLink("images/index.html.png"))
}

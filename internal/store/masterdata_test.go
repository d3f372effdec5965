package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasterData_CreateAndUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	dt, err := s.CreateDieType(ctx, MasterDataInput{Code: " EXT ", Name: "Extrusion"})
	require.NoError(t, err)
	assert.Equal(t, "EXT", dt.Code)
	assert.True(t, dt.IsActive, "new master data is active unless stated otherwise")

	_, err = s.CreateDieType(ctx, MasterDataInput{Code: "EXT", Name: "Again"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.CreateDieType(ctx, MasterDataInput{Code: "FRG"})
	assert.ErrorIs(t, err, ErrValidation)

	inactive := false
	dt, err = s.UpdateDieType(ctx, dt.ID, MasterDataInput{Name: "Hollow extrusion", IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "EXT", dt.Code)
	assert.Equal(t, "Hollow extrusion", dt.Name)
	assert.False(t, dt.IsActive)

	_, err = s.UpdateDieType(ctx, 999, MasterDataInput{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMasterData_UpdateCodeConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateWorkCenter(ctx, MasterDataInput{Code: "SAW", Name: "Saw"})
	require.NoError(t, err)
	lathe, err := s.CreateWorkCenter(ctx, MasterDataInput{Code: "LATHE", Name: "Lathe"})
	require.NoError(t, err)

	_, err = s.UpdateWorkCenter(ctx, lathe.ID, MasterDataInput{Code: "SAW"})
	assert.ErrorIs(t, err, ErrConflict)

	wc, err := s.UpdateWorkCenter(ctx, lathe.ID, MasterDataInput{Code: "LATHE"})
	require.NoError(t, err, "keeping its own code is not a conflict")
	assert.Equal(t, "LATHE", wc.Code)
}

func TestMasterData_ActiveFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inactive := false
	_, err := s.CreateComponentType(ctx, MasterDataInput{Code: "MAN", Name: "Mandrel"})
	require.NoError(t, err)
	_, err = s.CreateComponentType(ctx, MasterDataInput{Code: "OLD", Name: "Retired", IsActive: &inactive})
	require.NoError(t, err)

	all, err := s.ListComponentTypes(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active := true
	visible, err := s.ListComponentTypes(ctx, ListFilter{Active: &active})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "MAN", visible[0].Code)
}

func TestReplaceComponentTypeSteps(t *testing.T) {
	f := newFixture(t)

	steps, err := f.s.ListComponentTypeSteps(f.ctx, f.mandrel.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 10, steps[0].SequenceNumber)
	assert.Equal(t, "Turning", steps[1].Name)
	require.NotNil(t, steps[1].WorkCenter)
	assert.Equal(t, "LATHE", steps[1].WorkCenter.Code)

	testCases := []struct {
		name  string
		steps []StepInput
	}{
		{"duplicate sequence", []StepInput{
			{SequenceNumber: 10, Name: "a", WorkCenterID: f.saw.ID},
			{SequenceNumber: 10, Name: "b", WorkCenterID: f.saw.ID},
		}},
		{"zero sequence", []StepInput{{SequenceNumber: 0, Name: "a", WorkCenterID: f.saw.ID}}},
		{"missing name", []StepInput{{SequenceNumber: 5, WorkCenterID: f.saw.ID}}},
		{"unknown work center", []StepInput{{SequenceNumber: 5, Name: "a", WorkCenterID: 999}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.s.ReplaceComponentTypeSteps(f.ctx, f.mandrel.ID, tc.steps)
			assert.ErrorIs(t, err, ErrValidation)

			kept, err := f.s.ListComponentTypeSteps(f.ctx, f.mandrel.ID)
			require.NoError(t, err)
			assert.Len(t, kept, 2, "a rejected route leaves the old one in place")
		})
	}

	steps, err = f.s.ReplaceComponentTypeSteps(f.ctx, f.mandrel.ID, []StepInput{
		{SequenceNumber: 30, Name: "Harden", WorkCenterID: f.saw.ID},
		{SequenceNumber: 5, Name: "Saw", WorkCenterID: f.saw.ID},
	})
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 5, steps[0].SequenceNumber)
	assert.Equal(t, 30, steps[1].SequenceNumber)
}

func TestDeleteWorkCenter(t *testing.T) {
	f := newFixture(t)

	err := f.s.DeleteWorkCenter(f.ctx, f.saw.ID)
	assert.ErrorIs(t, err, ErrConflict, "referenced by BOM steps")

	spare, err := f.s.CreateWorkCenter(f.ctx, MasterDataInput{Code: "EDM", Name: "Wire EDM"})
	require.NoError(t, err)
	_, err = f.s.SetOperatorWorkCenters(f.ctx, f.operator.ID, []int64{f.saw.ID, spare.ID})
	require.NoError(t, err)

	require.NoError(t, f.s.DeleteWorkCenter(f.ctx, spare.ID))
	_, err = f.s.GetWorkCenter(f.ctx, spare.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	o, err := f.s.GetOperator(f.ctx, f.operator.ID)
	require.NoError(t, err)
	require.Len(t, o.WorkCenters, 1)
	assert.Equal(t, f.saw.ID, o.WorkCenters[0].ID)
}

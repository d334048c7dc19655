package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    ReportStatus
		to      ReportStatus
		allowed bool
	}{
		{"submitted to in_review", StatusSubmitted, StatusInReview, true},
		{"submitted to assigned", StatusSubmitted, StatusAssigned, true},
		{"submitted to rejected", StatusSubmitted, StatusRejected, true},
		{"submitted to resolved skips workflow", StatusSubmitted, StatusResolved, false},
		{"in_review to assigned", StatusInReview, StatusAssigned, true},
		{"in_review back to submitted", StatusInReview, StatusSubmitted, false},
		{"assigned to in_progress", StatusAssigned, StatusInProgress, true},
		{"in_progress to resolved", StatusInProgress, StatusResolved, true},
		{"resolved is terminal", StatusResolved, StatusInProgress, false},
		{"rejected is terminal", StatusRejected, StatusSubmitted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusResolved.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusSubmitted.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
}

func TestStatusDisplay(t *testing.T) {
	assert.Equal(t, "In Review", StatusInReview.Display())
	assert.Equal(t, "In Progress", StatusInProgress.Display())
	assert.Equal(t, "Submitted", StatusSubmitted.Display())
	assert.Equal(t, "Resolved", StatusResolved.Display())
}

func TestNewReportInitialState(t *testing.T) {
	submitter := primitive.NewObjectID()
	report := NewReport(submitter, "Broken light", "The lamp at the corner is out",
		CategoryStreetlight, PriorityMedium, NewPoint(30.5, 50.4), "Main St 1", nil)

	assert.Equal(t, StatusSubmitted, report.Status)
	assert.Equal(t, submitter, report.SubmittedBy)
	require.Len(t, report.StatusHistory, 1)
	assert.Equal(t, StatusSubmitted, report.StatusHistory[0].Status)
	assert.Equal(t, "Report submitted", report.StatusHistory[0].Comment)
	assert.NotNil(t, report.Images)
	assert.Nil(t, report.ResolvedAt)
}

func TestApplyStatusAppendsHistory(t *testing.T) {
	report := NewReport(primitive.NewObjectID(), "Pothole", "Deep pothole on the bridge",
		CategoryPothole, PriorityHigh, NewPoint(30.5, 50.4), "", nil)

	now := time.Now().UTC()
	changed, err := report.ApplyStatus(StatusInReview, "Taking a look", now)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, StatusInReview, report.Status)
	require.Len(t, report.StatusHistory, 2)
	assert.Equal(t, "Taking a look", report.StatusHistory[1].Comment)

	// History tail always matches the current status.
	assert.Equal(t, report.Status, report.CurrentHistoryEntry().Status)
}

func TestApplyStatusDefaultComment(t *testing.T) {
	report := NewReport(primitive.NewObjectID(), "Trash", "Overflowing bins",
		CategoryTrash, PriorityLow, NewPoint(0, 0), "", nil)

	changed, err := report.ApplyStatus(StatusInReview, "", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Status updated to in_review", report.CurrentHistoryEntry().Comment)
}

func TestApplyStatusRejectsInvalidTransition(t *testing.T) {
	report := NewReport(primitive.NewObjectID(), "Graffiti", "Tags on the wall",
		CategoryGraffiti, PriorityLow, NewPoint(0, 0), "", nil)

	changed, err := report.ApplyStatus(StatusResolved, "", time.Now().UTC())
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, StatusSubmitted, report.Status)
	assert.Len(t, report.StatusHistory, 1)
}

func TestApplyStatusRejectsUnknownStatus(t *testing.T) {
	report := NewReport(primitive.NewObjectID(), "Leak", "Water leaking",
		CategoryWaterLeak, PriorityUrgent, NewPoint(0, 0), "", nil)

	changed, err := report.ApplyStatus(ReportStatus("escalated"), "", time.Now().UTC())
	assert.Error(t, err)
	assert.False(t, changed)
}

func TestApplyStatusSameStatusNoComment(t *testing.T) {
	report := NewReport(primitive.NewObjectID(), "Leak", "Water leaking",
		CategoryWaterLeak, PriorityUrgent, NewPoint(0, 0), "", nil)

	changed, err := report.ApplyStatus(StatusSubmitted, "", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, report.StatusHistory, 1)
}

func TestApplyStatusSameStatusWithComment(t *testing.T) {
	report := NewReport(primitive.NewObjectID(), "Leak", "Water leaking",
		CategoryWaterLeak, PriorityUrgent, NewPoint(0, 0), "", nil)

	changed, err := report.ApplyStatus(StatusSubmitted, "Still waiting for triage", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, report.StatusHistory, 2)
	assert.Equal(t, StatusSubmitted, report.Status)
	assert.Equal(t, "Still waiting for triage", report.CurrentHistoryEntry().Comment)
}

func TestResolvedAtStamp(t *testing.T) {
	report := NewReport(primitive.NewObjectID(), "Pothole", "Deep pothole",
		CategoryPothole, PriorityHigh, NewPoint(0, 0), "", nil)

	base := time.Now().UTC()
	mustApply := func(status ReportStatus, at time.Time) {
		changed, err := report.ApplyStatus(status, "", at)
		require.NoError(t, err)
		require.True(t, changed)
	}

	mustApply(StatusAssigned, base)
	mustApply(StatusInProgress, base.Add(time.Hour))
	mustApply(StatusResolved, base.Add(2*time.Hour))

	require.NotNil(t, report.ResolvedAt)
	assert.Equal(t, base.Add(2*time.Hour), *report.ResolvedAt)
	assert.InDelta(t, 2.0, report.ResolutionHours(), 0.01)
	assert.True(t, report.IsResolved())
}

func TestAllowedTransitionsCopy(t *testing.T) {
	transitions := StatusSubmitted.AllowedTransitions()
	require.NotEmpty(t, transitions)
	transitions[0] = StatusResolved

	// Mutating the returned slice must not alter the lifecycle graph.
	assert.False(t, StatusSubmitted.CanTransitionTo(StatusResolved))
}

func TestCategoryValidation(t *testing.T) {
	assert.True(t, CategoryPothole.IsValid())
	assert.True(t, CategoryOther.IsValid())
	assert.False(t, ReportCategory("noise").IsValid())
	assert.Len(t, AllCategories(), 6)
}

func TestAssignSetsAssignment(t *testing.T) {
	report := NewReport(primitive.NewObjectID(), "Trash", "Bins",
		CategoryTrash, PriorityLow, NewPoint(0, 0), "", nil)

	dept := primitive.NewObjectID()
	now := time.Now().UTC()
	report.Assign(dept, now)

	require.NotNil(t, report.AssignedTo)
	assert.Equal(t, dept, report.AssignedTo.Department)
	assert.Equal(t, now, report.AssignedTo.AssignedAt)
}

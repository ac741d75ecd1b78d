package dispatch

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmiles/backend/pkg/messages"
	"github.com/greenmiles/backend/pkg/prefs"
)

func TestJobFile_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	batch := []Job{
		NewJob(MessageNotification{
			Email:    "t@example.com",
			Name:     "Tester",
			Subject:  "[HIGH] Hi",
			Content:  "body",
			Category: prefs.CategorySystem,
			Priority: messages.PriorityHigh,
			Type:     string(JobMessageNotification),
		}),
		NewJob(ExchangeConfirmation{
			UserID:      7,
			Email:       "t@example.com",
			ProductName: "Bamboo bottle",
			Quantity:    2,
			PointsSpent: 300,
		}),
	}

	path, err := WriteJobFile(dir, batch)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "payloads carry addresses")

	jobs, err := ReadJobFile(path)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	first, ok := jobs[0].Payload.(MessageNotification)
	require.True(t, ok)
	assert.Equal(t, "[HIGH] Hi", first.Subject)
	assert.Equal(t, prefs.CategorySystem, first.Category)

	second, ok := jobs[1].Payload.(ExchangeConfirmation)
	require.True(t, ok)
	assert.Equal(t, 300, second.PointsSpent)
}

func TestJobFile_WireFormat(t *testing.T) {
	t.Parallel()

	path, err := WriteJobFile(t.TempDir(), []Job{
		NewJob(ActivityApproved{UserID: 3, Email: "u@example.com", ActivityName: "Bike commute", Points: 50}),
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	raw := string(data)
	assert.True(t, strings.HasPrefix(raw, `{"jobs":[`))
	assert.Contains(t, raw, `"job_type":"activity_approved_notification"`)
	assert.Contains(t, raw, `"activity_name":"Bike commute"`)
}

func TestJob_UnmarshalUnknownType(t *testing.T) {
	t.Parallel()

	var job Job
	err := json.Unmarshal([]byte(`{"job_type":"mystery","payload":{}}`), &job)
	require.ErrorIs(t, err, ErrUnknownJobType)
}

func TestJob_UnmarshalMalformedPayload(t *testing.T) {
	t.Parallel()

	var job Job
	err := json.Unmarshal([]byte(`{"job_type":"exchange_confirmation","payload":{"points_spent":"lots"}}`), &job)
	require.Error(t, err)
}

func TestNewJob_DerivesType(t *testing.T) {
	t.Parallel()

	job := NewJob(ActivityRejected{UserID: 1, ActivityName: "Bus ride", Reason: "duplicate"})
	assert.Equal(t, JobActivityRejected, job.Type)
	assert.False(t, job.CreatedAt.IsZero())
}

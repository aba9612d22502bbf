package handlers

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/usecase"
)

func decodeTaskRequest(t *testing.T, body string) TaskRequest {
	t.Helper()
	var req TaskRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal %s: %v", body, err)
	}
	return req
}

func TestTaskRequestPatchDueDate(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		wantDue   *time.Time
		wantClear bool
	}{
		{name: "absent", body: `{"title":"a"}`},
		{name: "explicit null clears", body: `{"due_date":null}`, wantClear: true},
		{name: "empty string clears", body: `{"due_date":""}`, wantClear: true},
		{name: "date", body: `{"due_date":"2026-03-01"}`, wantDue: ptr(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			patch, err := decodeTaskRequest(t, tc.body).patch()
			require.NoError(t, err)
			assert.Equal(t, tc.wantClear, patch.ClearDueDate)
			if tc.wantDue == nil {
				assert.Nil(t, patch.DueDate)
				return
			}
			require.NotNil(t, patch.DueDate)
			assert.True(t, tc.wantDue.Equal(*patch.DueDate))
		})
	}
}

func TestTaskRequestPatchRejectsMalformedDate(t *testing.T) {
	for _, body := range []string{`{"due_date":"01/03/2026"}`, `{"due_date":20260301}`} {
		_, err := decodeTaskRequest(t, body).patch()

		var verr *usecase.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected validation error, got %v", body, err)
		}
		assert.Equal(t, "due_date", verr.Field)
	}
}

func TestTaskRequestPatchCopiesEnums(t *testing.T) {
	patch, err := decodeTaskRequest(t, `{"status":"DONE","priority":"HIGH"}`).patch()
	require.NoError(t, err)
	require.NotNil(t, patch.Status)
	require.NotNil(t, patch.Priority)
	assert.Equal(t, domain.TaskStatusDone, *patch.Status)
	assert.Equal(t, domain.TaskPriorityHigh, *patch.Priority)
	assert.Nil(t, patch.Title)
}

func TestBindingReportsJSONFieldNames(t *testing.T) {
	require.NoError(t, RegisterValidators())
	require.NoError(t, RegisterValidators())

	req := TaskRequest{Status: ptr("archived"), Priority: ptr("urgent")}
	err := binding.Validator.ValidateStruct(req)
	require.Error(t, err)

	fields := bindingFields(err)
	assert.Equal(t, []string{`"archived" is not a valid choice.`}, fields["status"])
	assert.Equal(t, []string{`"urgent" is not a valid choice.`}, fields["priority"])

	ok := TaskRequest{Status: ptr("DOING"), Priority: ptr("LOW")}
	assert.NoError(t, binding.Validator.ValidateStruct(ok))
}

func TestBindingFieldsIgnoresNonValidationErrors(t *testing.T) {
	assert.Nil(t, bindingFields(errors.New("unexpected EOF")))
}

func ptr[T any](v T) *T { return &v }

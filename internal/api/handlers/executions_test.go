package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugh/go-inspect/internal/api/dto"
	"github.com/hugh/go-inspect/internal/api/handlers"
	"github.com/hugh/go-inspect/internal/testutil"
)

func (e *testEnv) createExecution(t *testing.T, templateID uuid.UUID) handlers.ExecutionResponse {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/v1/executions", map[string]interface{}{"template_id": templateID})
	testutil.AssertStatus(t, rr, http.StatusCreated)
	var resp handlers.ExecutionResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	return resp
}

func TestExecutionHandler_Create(t *testing.T) {
	env := setupTestRouter(t, nil)
	tpl := testutil.CreateTestTemplate(t, env.DB, env.OrgID, 2)
	machine := testutil.CreateTestMachine(t, env.DB, env.OrgID, "Press 1")
	otherOrgTpl := testutil.CreateTestTemplate(t, env.DB, uuid.New(), 2)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
	}{
		{
			name:       "template only",
			body:       map[string]interface{}{"template_id": tpl.ID},
			wantStatus: http.StatusCreated,
		},
		{
			name: "with machine and date",
			body: map[string]interface{}{
				"template_id":   tpl.ID,
				"machine_id":    machine.ID,
				"scheduled_for": "2025-04-02",
				"location":      "Hall B",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing template",
			body:       map[string]interface{}{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad date",
			body:       map[string]interface{}{"template_id": tpl.ID, "scheduled_for": "02/04/2025"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown machine",
			body:       map[string]interface{}{"template_id": tpl.ID, "machine_id": uuid.New()},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "template of another organization",
			body:       map[string]interface{}{"template_id": otherOrgTpl.ID},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid body",
			body:       "not an object",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/v1/executions", tt.body)
			testutil.AssertStatus(t, rr, tt.wantStatus)
		})
	}
}

func TestExecutionHandler_CreateSnapshot(t *testing.T) {
	env := setupTestRouter(t, nil)
	tpl := testutil.CreateTestTemplate(t, env.DB, env.OrgID, 2)
	machine := testutil.CreateTestMachine(t, env.DB, env.OrgID, "Press 1")

	rr := env.do(t, http.MethodPost, "/api/v1/executions", map[string]interface{}{
		"template_id":   tpl.ID,
		"machine_id":    machine.ID,
		"scheduled_for": "2025-04-02",
	})
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var resp handlers.ExecutionResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.True(t, strings.HasPrefix(resp.ExecutionNumber, "CF-"), resp.ExecutionNumber)
	assert.Equal(t, "InProgress", resp.Status)
	assert.Equal(t, "Daily press check", resp.TemplateName)
	assert.Equal(t, "Press 1", resp.MachineName)
	assert.Equal(t, "Hall A", resp.MachineLocation)
	require.NotNil(t, resp.ScheduledFor)
	assert.Equal(t, "2025-04-02", *resp.ScheduledFor)
	assert.Equal(t, "Test Inspector", resp.ExecutedByPersonName)
	assert.Len(t, resp.ChecklistResponses, 2)
	assert.Equal(t, 0, resp.CompletionRate)
	assert.False(t, resp.HasCriticalIssues)
}

func TestExecutionHandler_Unauthorized(t *testing.T) {
	env := setupTestRouter(t, nil)

	rr := env.doAs(t, "", http.MethodGet, "/api/v1/executions", nil)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	rr = env.doAs(t, "not-a-token", http.MethodGet, "/api/v1/executions", nil)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestExecutionHandler_AnswerAndComplete(t *testing.T) {
	env := setupTestRouter(t, nil)
	tpl := testutil.CreateTestTemplate(t, env.DB, env.OrgID, 2)
	exec := env.createExecution(t, tpl.ID)
	path := "/api/v1/executions/" + exec.ID

	// Save one answer
	rr := env.do(t, http.MethodPut, path, map[string]interface{}{
		"checklist_responses": []map[string]interface{}{
			{"item_id": "item-1", "boolean_value": true},
		},
	})
	testutil.AssertStatus(t, rr, http.StatusOK)
	var saved handlers.ExecutionResponse
	testutil.ParseJSONResponse(t, rr, &saved)
	assert.Equal(t, "InProgress", saved.Status)
	assert.Equal(t, 50, saved.CompletionRate)

	// Completing with item-2 unanswered is refused
	rr = env.do(t, http.MethodPut, path, map[string]interface{}{"status": "Completed"})
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	var errResp dto.ErrorResponse
	testutil.ParseJSONResponse(t, rr, &errResp)
	require.Len(t, errResp.MissingItems, 1)
	assert.Equal(t, "item-2", errResp.MissingItems[0].ItemID)

	// The refused completion left the saved answer in place
	rr = env.do(t, http.MethodGet, path, nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.ParseJSONResponse(t, rr, &saved)
	assert.Equal(t, "InProgress", saved.Status)
	assert.Equal(t, 50, saved.CompletionRate)

	rr = env.do(t, http.MethodPut, path, map[string]interface{}{
		"status": "Completed",
		"notes":  "All good",
		"checklist_responses": []map[string]interface{}{
			{"item_id": "item-1", "boolean_value": true},
			{"item_id": "item-2", "boolean_value": false},
		},
	})
	testutil.AssertStatus(t, rr, http.StatusOK)
	var done handlers.ExecutionResponse
	testutil.ParseJSONResponse(t, rr, &done)
	assert.Equal(t, "Completed", done.Status)
	assert.Equal(t, 100, done.CompletionRate)
	assert.Equal(t, "All good", done.Notes)
	assert.NotNil(t, done.CompletedAt)
	require.NotNil(t, done.SuccessPercentage)
	assert.Equal(t, 50, *done.SuccessPercentage)

	// Terminal executions cannot change
	rr = env.do(t, http.MethodPut, path, map[string]interface{}{"status": "Cancelled"})
	testutil.AssertStatus(t, rr, http.StatusConflict)
}

func TestExecutionHandler_UpdateValidation(t *testing.T) {
	env := setupTestRouter(t, nil)
	tpl := testutil.CreateTestTemplate(t, env.DB, env.OrgID, 2)
	exec := env.createExecution(t, tpl.ID)
	path := "/api/v1/executions/" + exec.ID

	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown status", map[string]interface{}{"status": "Paused"}},
		{"two values", map[string]interface{}{
			"checklist_responses": []map[string]interface{}{{"item_id": "item-1", "boolean_value": true, "text_value": "yes"}},
		}},
		{"wrong type", map[string]interface{}{
			"checklist_responses": []map[string]interface{}{{"item_id": "item-1", "number_value": 3}},
		}},
		{"unknown item", map[string]interface{}{
			"checklist_responses": []map[string]interface{}{{"item_id": "item-9", "boolean_value": true}},
		}},
		{"missing item id", map[string]interface{}{
			"checklist_responses": []map[string]interface{}{{"boolean_value": true}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPut, path, tt.body)
			testutil.AssertStatus(t, rr, http.StatusBadRequest)
		})
	}

	rr := env.do(t, http.MethodPut, "/api/v1/executions/not-a-uuid", map[string]interface{}{})
	testutil.AssertStatus(t, rr, http.StatusBadRequest)

	rr = env.do(t, http.MethodPut, "/api/v1/executions/"+uuid.NewString(), map[string]interface{}{})
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestExecutionHandler_Cancel(t *testing.T) {
	env := setupTestRouter(t, nil)
	tpl := testutil.CreateTestTemplate(t, env.DB, env.OrgID, 1)
	exec := env.createExecution(t, tpl.ID)

	rr := env.do(t, http.MethodPut, "/api/v1/executions/"+exec.ID, map[string]interface{}{
		"status": "Cancelled",
		"notes":  "Machine under repair",
	})
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp handlers.ExecutionResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Equal(t, "Cancelled", resp.Status)
	assert.Equal(t, "Machine under repair", resp.Notes)
	assert.NotNil(t, resp.CancelledAt)
}

func TestExecutionHandler_BulkCreate(t *testing.T) {
	env := setupTestRouter(t, nil)
	tpl := testutil.CreateTestTemplate(t, env.DB, env.OrgID, 2)
	m1 := testutil.CreateTestMachine(t, env.DB, env.OrgID, "Press 1")
	m2 := testutil.CreateTestMachine(t, env.DB, env.OrgID, "Press 2")
	unknown := uuid.New()

	rr := env.do(t, http.MethodPost, "/api/v1/executions/bulk", map[string]interface{}{
		"template_id": tpl.ID,
		"machine_ids": []uuid.UUID{m1.ID, unknown, m2.ID},
	})
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var resp handlers.BulkCreateResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Len(t, resp.Created, 2)
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, unknown.String(), resp.Failed[0].MachineID)
	assert.NotEqual(t, resp.Created[0].ExecutionNumber, resp.Created[1].ExecutionNumber)

	rr = env.do(t, http.MethodPost, "/api/v1/executions/bulk", map[string]interface{}{"template_id": tpl.ID})
	testutil.AssertStatus(t, rr, http.StatusBadRequest)

	rr = env.do(t, http.MethodPost, "/api/v1/executions/bulk", map[string]interface{}{
		"template_id": tpl.ID,
		"machine_ids": []uuid.UUID{uuid.New()},
	})
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestExecutionHandler_ListAndDelete(t *testing.T) {
	env := setupTestRouter(t, nil)
	tpl := testutil.CreateTestTemplate(t, env.DB, env.OrgID, 1)
	first := env.createExecution(t, tpl.ID)
	env.createExecution(t, tpl.ID)

	rr := env.do(t, http.MethodPut, "/api/v1/executions/"+first.ID, map[string]interface{}{"status": "Cancelled"})
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodGet, "/api/v1/executions?per_page=1", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	var page struct {
		Data       []handlers.ExecutionResponse `json:"data"`
		Total      int64                        `json:"total"`
		TotalPages int                          `json:"total_pages"`
	}
	testutil.ParseJSONResponse(t, rr, &page)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Data, 1)

	rr = env.do(t, http.MethodGet, "/api/v1/executions?status=Cancelled", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.ParseJSONResponse(t, rr, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, first.ID, page.Data[0].ID)

	rr = env.do(t, http.MethodGet, "/api/v1/executions?machine_id=nope&created_from=yesterday", nil)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	var errResp dto.ErrorResponse
	testutil.ParseJSONResponse(t, rr, &errResp)
	assert.Contains(t, errResp.Details, "machine_id")
	assert.Contains(t, errResp.Details, "created_from")

	rr = env.do(t, http.MethodDelete, "/api/v1/executions/"+first.ID, nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodGet, "/api/v1/executions/"+first.ID, nil)
	testutil.AssertStatus(t, rr, http.StatusNotFound)

	rr = env.do(t, http.MethodDelete, "/api/v1/executions/"+first.ID, nil)
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

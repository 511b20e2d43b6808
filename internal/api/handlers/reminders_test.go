package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugh/go-inspect/internal/api/handlers"
	"github.com/hugh/go-inspect/internal/auth"
	"github.com/hugh/go-inspect/internal/testutil"
)

func TestReminderHandler_CompleteAndSkip(t *testing.T) {
	env := setupTestRouter(t, nil)
	planID := uuid.New()
	done := testutil.CreateTestReminder(t, env.DB, env.OrgID, planID, time.Now())
	skipped := testutil.CreateTestReminder(t, env.DB, env.OrgID, planID, time.Now())

	rr := env.do(t, http.MethodPost, "/api/v1/reminders/"+done.ID.String()+"/complete", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	var resp handlers.ReminderResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Equal(t, "Completed", resp.Status)
	assert.NotNil(t, resp.CompletedAt)

	// Completing twice is fine
	rr = env.do(t, http.MethodPost, "/api/v1/reminders/"+done.ID.String()+"/complete", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodPost, "/api/v1/reminders/"+done.ID.String()+"/skip", nil)
	testutil.AssertStatus(t, rr, http.StatusConflict)

	rr = env.do(t, http.MethodPost, "/api/v1/reminders/"+skipped.ID.String()+"/skip", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Equal(t, "Skipped", resp.Status)

	rr = env.do(t, http.MethodPost, "/api/v1/reminders/"+uuid.NewString()+"/complete", nil)
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestReminderHandler_List(t *testing.T) {
	env := setupTestRouter(t, nil)
	planID := uuid.New()
	testutil.CreateTestReminder(t, env.DB, env.OrgID, planID, time.Now().AddDate(0, 0, -2))
	open := testutil.CreateTestReminder(t, env.DB, env.OrgID, planID, time.Now())
	testutil.CreateTestReminder(t, env.DB, uuid.New(), planID, time.Now())

	rr := env.do(t, http.MethodGet, "/api/v1/reminders", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	var page struct {
		Data  []handlers.ReminderResponse `json:"data"`
		Total int64                       `json:"total"`
	}
	testutil.ParseJSONResponse(t, rr, &page)
	assert.EqualValues(t, 2, page.Total)

	from := time.Now().UTC().Format(time.DateOnly)
	rr = env.do(t, http.MethodGet, "/api/v1/reminders?status=Open&due_from="+from, nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.ParseJSONResponse(t, rr, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, open.ID.String(), page.Data[0].ID)

	rr = env.do(t, http.MethodGet, "/api/v1/reminders?control_plan_id=123", nil)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestReminderHandler_PurgeOld(t *testing.T) {
	env := setupTestRouter(t, nil)
	planID := uuid.New()
	testutil.CreateTestReminder(t, env.DB, env.OrgID, planID, time.Now().AddDate(0, 0, -120))
	testutil.CreateTestReminder(t, env.DB, env.OrgID, planID, time.Now().AddDate(0, 0, -40))
	testutil.CreateTestReminder(t, env.DB, env.OrgID, planID, time.Now())

	rr := env.do(t, http.MethodDelete, "/api/v1/reminders/purge-old", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	var resp handlers.PurgeResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Equal(t, 90, resp.Days)
	assert.EqualValues(t, 1, resp.Deleted)

	rr = env.do(t, http.MethodDelete, "/api/v1/reminders/purge-old?days=30", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.EqualValues(t, 1, resp.Deleted)

	rr = env.do(t, http.MethodDelete, "/api/v1/reminders/purge-old?days=30", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Zero(t, resp.Deleted)

	rr = env.do(t, http.MethodDelete, "/api/v1/reminders/purge-old?days=0", nil)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestReminderHandler_PurgeOldRequiresAdmin(t *testing.T) {
	env := setupTestRouter(t, nil)

	member := testutil.GenerateTestToken(t, env.JWTService, auth.Identity{
		UserID:         uuid.New(),
		OrganizationID: env.OrgID,
		Email:          "member@example.com",
		Role:           "member",
	})

	rr := env.doAs(t, member, http.MethodDelete, "/api/v1/reminders/purge-old", nil)
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

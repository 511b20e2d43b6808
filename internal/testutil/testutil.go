package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hugh/go-inspect/internal/auth"
	"github.com/hugh/go-inspect/internal/checklist"
	"github.com/hugh/go-inspect/internal/database"
	"github.com/hugh/go-inspect/internal/database/models"
)

// SetupTestDB creates an in-memory SQLite database for testing. The pool is
// limited to one connection so every goroutine sees the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.Options(logger.Default.LogMode(logger.Silent)))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// DiscardLogger is a logger for services under test.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Date is midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TestItems returns n required checkbox items worth one point each.
func TestItems(n int) checklist.Items {
	items := make(checklist.Items, n)
	for i := range items {
		score := 1.0
		items[i] = checklist.Item{
			ID:           fmt.Sprintf("item-%d", i+1),
			Text:         fmt.Sprintf("Check %d", i+1),
			IsRequired:   true,
			ResponseType: checklist.ResponseCheckbox,
			MaxScore:     &score,
		}
	}
	return items
}

// CreateTestTemplate creates an active template with n checkbox items.
func CreateTestTemplate(t *testing.T, db *gorm.DB, orgID uuid.UUID, n int) *models.FormTemplate {
	t.Helper()
	return CreateTestTemplateWithItems(t, db, orgID, TestItems(n))
}

func CreateTestTemplateWithItems(t *testing.T, db *gorm.DB, orgID uuid.UUID, items checklist.Items) *models.FormTemplate {
	t.Helper()

	tpl := &models.FormTemplate{
		Base:           models.Base{ID: uuid.New()},
		OrganizationID: orgID,
		Name:           "Daily press check",
		MachineType:    "press",
		Items:          items,
		IsActive:       true,
	}

	if err := db.Create(tpl).Error; err != nil {
		t.Fatalf("failed to create test template: %v", err)
	}
	return tpl
}

// CreateTestMachine creates an active machine
func CreateTestMachine(t *testing.T, db *gorm.DB, orgID uuid.UUID, name string) *models.Machine {
	t.Helper()

	m := &models.Machine{
		Base:           models.Base{ID: uuid.New()},
		OrganizationID: orgID,
		Name:           name,
		Model:          "HX-200",
		SerialNumber:   "SN-" + uuid.New().String()[:8],
		Location:       "Hall A",
		MachineType:    "press",
		IsActive:       true,
	}

	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to create test machine: %v", err)
	}
	return m
}

// CreateTestPlan creates an active daily plan due on next. Pass mutators to
// adjust the plan before it is stored.
func CreateTestPlan(t *testing.T, db *gorm.DB, orgID, templateID uuid.UUID, next time.Time, opts ...func(*models.ControlPlan)) *models.ControlPlan {
	t.Helper()

	next = next.UTC()
	activated := next.AddDate(0, 0, -1)
	plan := &models.ControlPlan{
		Base:           models.Base{ID: uuid.New()},
		OrganizationID: orgID,
		Name:           "Daily press plan",
		TemplateID:     templateID,
		Mode:           models.PlanModeExecution,
		Period:         "Daily",
		IntervalValue:  1,
		StartRule:      "OnFirstApproval",
		NextRunDate:    &next,
		ActivatedAt:    &activated,
		IsActive:       true,
		Version:        1,
	}
	for _, opt := range opts {
		opt(plan)
	}

	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("failed to create test plan: %v", err)
	}
	return plan
}

// CreateTestReminder creates an open reminder created at createdAt.
func CreateTestReminder(t *testing.T, db *gorm.DB, orgID, planID uuid.UUID, createdAt time.Time) *models.ReminderTask {
	t.Helper()

	createdAt = createdAt.UTC()
	r := &models.ReminderTask{
		Base:           models.Base{ID: uuid.New(), CreatedAt: createdAt, UpdatedAt: createdAt},
		OrganizationID: orgID,
		ControlPlanID:  planID,
		Title:          "Check press",
		DueDate:        Date(createdAt.Year(), createdAt.Month(), createdAt.Day()),
		Period:         "Daily",
		Status:         models.ReminderOpen,
	}

	if err := db.Create(r).Error; err != nil {
		t.Fatalf("failed to create test reminder: %v", err)
	}
	return r
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given identity
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, id auth.Identity) string {
	t.Helper()

	token, err := jwtService.GenerateToken(id)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Identity   auth.Identity
	OrgID      uuid.UUID
	Token      string
}

// NewTestContext creates a complete test setup with DB, identity and token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	id := auth.Identity{
		UserID:         uuid.New(),
		OrganizationID: uuid.New(),
		Email:          "inspector-" + uuid.New().String()[:8] + "@example.com",
		Name:           "Test Inspector",
		Role:           "owner",
	}

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Identity:   id,
		OrgID:      id.OrganizationID,
		Token:      GenerateTestToken(t, jwtService, id),
	}
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

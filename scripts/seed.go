//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/hugh/go-inspect/internal/auth"
	"github.com/hugh/go-inspect/internal/catalog"
	"github.com/hugh/go-inspect/internal/checklist"
	"github.com/hugh/go-inspect/internal/database"
	"github.com/hugh/go-inspect/internal/database/models"
	"github.com/hugh/go-inspect/internal/inspection"
	"github.com/hugh/go-inspect/internal/numbering"
	"github.com/hugh/go-inspect/internal/recurrence"
	"github.com/hugh/go-inspect/internal/scheduler"
	"github.com/hugh/go-inspect/pkg/config"
	"github.com/hugh/go-inspect/pkg/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	orgID := uuid.New()
	if v := os.Getenv("SEED_ORG_ID"); v != "" {
		if orgID, err = uuid.Parse(v); err != nil {
			log.Fatalf("invalid SEED_ORG_ID: %v", err)
		}
	}

	maxScore := 10.0
	tpl := models.FormTemplate{
		OrganizationID: orgID,
		Name:           "Daily safety check",
		MachineType:    "press",
		IsActive:       true,
		Items: checklist.Items{
			{ID: "guard", Text: "Safety guard in place", IsRequired: true, IsCritical: true, ResponseType: checklist.ResponseCheckbox, MaxScore: &maxScore},
			{ID: "oil", Text: "Oil level (%)", IsRequired: true, ResponseType: checklist.ResponseNumber},
			{ID: "noise", Text: "Noise level", ResponseType: checklist.ResponseSelect, SelectOptions: []string{"low", "normal", "high"}},
			{ID: "remarks", Text: "Remarks", ResponseType: checklist.ResponseText},
		},
	}
	if err := db.Create(&tpl).Error; err != nil {
		log.Fatalf("failed to create template: %v", err)
	}

	var machineIDs []uuid.UUID
	for i := 1; i <= 2; i++ {
		m := models.Machine{
			OrganizationID: orgID,
			Name:           fmt.Sprintf("Press %d", i),
			MachineType:    "press",
			Location:       "Hall A",
			IsActive:       true,
		}
		if err := db.Create(&m).Error; err != nil {
			log.Fatalf("failed to create machine: %v", err)
		}
		machineIDs = append(machineIDs, m.ID)
	}

	store := catalog.NewStore(db)
	numbers := numbering.NewAllocator(cfg.Executions.NumberPrefix, cfg.Executions.AllocationAttempts)
	executions := inspection.NewService(db, store, store, numbers, logger, inspection.Options{BulkWorkers: cfg.Executions.BulkWorkers})
	plans := scheduler.NewService(db, executions, store, store, logger, scheduler.Options{BatchSize: cfg.Scheduler.BatchSize})

	ctx := context.Background()
	plan, err := plans.CreatePlan(ctx, orgID, scheduler.PlanInput{
		Name:             "Weekday safety round",
		TemplateID:       tpl.ID,
		Mode:             models.PlanModeExecution,
		Period:           string(recurrence.PeriodWeekly),
		IntervalValue:    1,
		WeekDays:         []string{"Mon", "Wed", "Fri"},
		StartRule:        string(recurrence.StartOnFirstApproval),
		TargetMachineIDs: machineIDs,
	})
	if err != nil {
		log.Fatalf("failed to create plan: %v", err)
	}
	if plan, err = plans.ActivatePlan(ctx, orgID, plan.ID); err != nil {
		log.Fatalf("failed to activate plan: %v", err)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	token, err := jwtService.GenerateToken(auth.Identity{
		UserID:         uuid.New(),
		OrganizationID: orgID,
		Email:          "admin@example.com",
		Name:           "Admin",
		Role:           "owner",
	})
	if err != nil {
		log.Fatalf("failed to create token: %v", err)
	}

	fmt.Printf("Seed data created successfully!\n")
	fmt.Printf("Organization: %s\n", orgID)
	fmt.Printf("Template: %s\n", tpl.ID)
	fmt.Printf("Plan: %s (next run %s)\n", plan.ID, plan.NextRunDate.Format("2006-01-02"))
	fmt.Printf("Token: %s\n", token)
}

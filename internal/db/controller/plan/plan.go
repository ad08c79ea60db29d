// Package plan provides CRUD operations for managing subscription plan templates.
package plan

import (
	"errors"

	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/db/models"
)

const (
	nameQueryPattern = "name = ?"
)

var (
	// ErrPlanNotFound is returned when a plan is not found.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrPlanNameEmpty is returned when attempting to create/update a plan with an empty name.
	ErrPlanNameEmpty = errors.New("plan name cannot be empty")
	// ErrPlanAlreadyExists is returned when attempting to create a plan whose name is taken.
	ErrPlanAlreadyExists = errors.New("plan already exists")
	// ErrPlanInvalidDuration is returned when the plan duration is not positive.
	ErrPlanInvalidDuration = errors.New("plan duration must be positive")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a plan by its ID.
func Get(db *gorm.DB, id uint) (*models.Plan, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var plan models.Plan
	result := db.First(&plan, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, result.Error
	}

	return &plan, nil
}

// GetByName retrieves a plan by its unique name.
func GetByName(db *gorm.DB, name string) (*models.Plan, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrPlanNameEmpty
	}

	var plan models.Plan
	result := db.Where(nameQueryPattern, name).First(&plan)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, result.Error
	}

	return &plan, nil
}

// GetAll retrieves all plans.
func GetAll(db *gorm.DB) ([]models.Plan, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var plans []models.Plan
	result := db.Order("price_cents ASC").Find(&plans)
	if result.Error != nil {
		return nil, result.Error
	}

	return plans, nil
}

// Create creates a new plan template.
func Create(db *gorm.DB, plan *models.Plan) (*models.Plan, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if plan.Name == "" {
		return nil, ErrPlanNameEmpty
	}
	if plan.DurationDays <= 0 {
		return nil, ErrPlanInvalidDuration
	}

	var existing models.Plan
	result := db.Where(nameQueryPattern, plan.Name).First(&existing)
	if result.Error == nil {
		return nil, ErrPlanAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	result = db.Create(plan)
	if result.Error != nil {
		return nil, result.Error
	}

	return plan, nil
}

// Update updates an existing plan template. Live subscriptions are unaffected:
// their limits were denormalized at creation time, so the edit only changes
// the semantics of subscriptions issued afterwards.
func Update(db *gorm.DB, id uint, updated *models.Plan) (*models.Plan, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if updated.Name == "" {
		return nil, ErrPlanNameEmpty
	}
	if updated.DurationDays <= 0 {
		return nil, ErrPlanInvalidDuration
	}

	var plan models.Plan
	result := db.First(&plan, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, result.Error
	}

	plan.Name = updated.Name
	plan.Description = updated.Description
	plan.PriceCents = updated.PriceCents
	plan.DurationDays = updated.DurationDays
	plan.MaxChatbotCount = updated.MaxChatbotCount
	plan.MaxChatbotShares = updated.MaxChatbotShares
	plan.MaxDocumentCount = updated.MaxDocumentCount
	plan.MaxWordCountPerDocument = updated.MaxWordCountPerDocument
	plan.IsPublicChatbotAllowed = updated.IsPublicChatbotAllowed
	plan.Benefits = updated.Benefits

	result = db.Save(&plan)
	if result.Error != nil {
		return nil, result.Error
	}

	return &plan, nil
}

// Delete deletes a plan template by ID.
func Delete(db *gorm.DB, id uint) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Delete(&models.Plan{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPlanNotFound
	}

	return nil
}

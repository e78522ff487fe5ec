package repositories

import (
	"commhub/internal/models"

	"gorm.io/gorm"
)

// RuleRepository stores the (tenant, module, event) -> template mappings
// the rule engine evaluates.
type RuleRepository interface {
	Create(rule *models.NotificationRule) error
	FindForEvent(tenantID, sourceModule, eventType string) ([]models.NotificationRule, error)
}

type ruleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) Create(rule *models.NotificationRule) error {
	return r.db.Create(rule).Error
}

func (r *ruleRepository) FindForEvent(tenantID, sourceModule, eventType string) ([]models.NotificationRule, error) {
	var rules []models.NotificationRule
	err := r.db.
		Where("tenant_id = ? AND source_module = ? AND event_type = ? AND enabled = ?",
			tenantID, sourceModule, eventType, true).
		Find(&rules).Error
	return rules, err
}

package services

import (
	"testing"

	"commhub/internal/models"
	"commhub/internal/repositories"
	"commhub/internal/services/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newRuleFixture(t *testing.T) (*engineFixture, *RuleService, repositories.RuleRepository) {
	t.Helper()
	f := newEngineFixture(t)
	ruleRepo := repositories.NewRuleRepository(f.db)
	return f, NewRuleService(ruleRepo, f.svc), ruleRepo
}

func seedRule(t *testing.T, repo repositories.RuleRepository, mutate func(*models.NotificationRule)) *models.NotificationRule {
	t.Helper()
	rule := &models.NotificationRule{
		TenantID:          "t1",
		SourceModule:      "ci",
		EventType:         "deploy_finished",
		Enabled:           true,
		TitleTemplate:     "Deploy of {{.service}} finished",
		BodyTemplate:      "Version {{.version}} is live",
		Kind:              "deploy",
		Priority:          models.PriorityNormal,
		RecipientStrategy: models.RecipientStrategyExplicit,
		RecipientIDs:      datatypes.JSON([]byte(`["bob"]`)),
	}
	if mutate != nil {
		mutate(rule)
	}
	require.NoError(t, repo.Create(rule))
	return rule
}

func TestEmitFiresMatchingRule(t *testing.T) {
	f, svc, repo := newRuleFixture(t)
	seedRule(t, repo, nil)

	fired, err := svc.Emit("t1", &dto.EmitRequest{
		EventType:    "deploy_finished",
		SourceModule: "ci",
		Payload:      map[string]interface{}{"service": "billing", "version": "1.4.2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	list, err := f.svc.GetForRecipient("t1", "bob", repositories.NotificationCriteria{})
	require.NoError(t, err)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, "Deploy of billing finished", list.Notifications[0].Title)
	assert.Equal(t, "Version 1.4.2 is live", list.Notifications[0].Body)
}

func TestEmitIgnoresOtherEventsAndDisabledRules(t *testing.T) {
	_, svc, repo := newRuleFixture(t)
	seedRule(t, repo, nil)
	seedRule(t, repo, func(r *models.NotificationRule) { r.Enabled = false })

	fired, err := svc.Emit("t1", &dto.EmitRequest{
		EventType:    "deploy_started",
		SourceModule: "ci",
	})
	require.NoError(t, err)
	assert.Zero(t, fired)

	// The disabled rule never fires even for its own event.
	fired, err = svc.Emit("t1", &dto.EmitRequest{
		EventType:    "deploy_finished",
		SourceModule: "ci",
		Payload:      map[string]interface{}{"service": "a", "version": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
}

func TestEmitEvaluatesConditions(t *testing.T) {
	_, svc, repo := newRuleFixture(t)
	seedRule(t, repo, func(r *models.NotificationRule) {
		r.Conditions = datatypes.JSON([]byte(`{"environment":"production"}`))
	})

	fired, err := svc.Emit("t1", &dto.EmitRequest{
		EventType:    "deploy_finished",
		SourceModule: "ci",
		Payload:      map[string]interface{}{"environment": "staging"},
	})
	require.NoError(t, err)
	assert.Zero(t, fired)

	fired, err = svc.Emit("t1", &dto.EmitRequest{
		EventType:    "deploy_finished",
		SourceModule: "ci",
		Payload:      map[string]interface{}{"environment": "production"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
}

func TestEmitSkipsUnresolvableStrategies(t *testing.T) {
	_, svc, repo := newRuleFixture(t)
	seedRule(t, repo, func(r *models.NotificationRule) {
		r.RecipientStrategy = models.RecipientStrategyRole
	})

	fired, err := svc.Emit("t1", &dto.EmitRequest{
		EventType:    "deploy_finished",
		SourceModule: "ci",
	})
	require.NoError(t, err)
	assert.Zero(t, fired)
}

func TestEmitIsTenantScoped(t *testing.T) {
	_, svc, repo := newRuleFixture(t)
	seedRule(t, repo, nil)

	fired, err := svc.Emit("t2", &dto.EmitRequest{
		EventType:    "deploy_finished",
		SourceModule: "ci",
	})
	require.NoError(t, err)
	assert.Zero(t, fired)
}

func TestBrokenTemplateFallsBackToRawText(t *testing.T) {
	payload := map[string]interface{}{"a": "b"}
	assert.Equal(t, "{{.broken", renderTemplate("{{.broken", payload))
	assert.Equal(t, "", renderTemplate("", payload))
	assert.Equal(t, "b", renderTemplate("{{.a}}", payload))
}

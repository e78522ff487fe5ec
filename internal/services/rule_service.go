package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"commhub/internal/logger"
	"commhub/internal/models"
	"commhub/internal/repositories"
	"commhub/internal/services/dto"
	"commhub/pkg/apperrors"
)

// RuleService turns domain events into notifications through the
// per-tenant rule table.
type RuleService struct {
	rules         repositories.RuleRepository
	notifications NotificationService
}

func NewRuleService(rules repositories.RuleRepository, notifications NotificationService) *RuleService {
	return &RuleService{rules: rules, notifications: notifications}
}

// Emit evaluates every enabled rule matching (tenant, module, event) and
// produces a notification for each rule that passes its conditions.
// Returns the number of rules fired.
func (s *RuleService) Emit(tenantID string, req *dto.EmitRequest) (int, error) {
	rules, err := s.rules.FindForEvent(tenantID, req.SourceModule, req.EventType)
	if err != nil {
		return 0, apperrors.DatabaseError("notifications", err)
	}

	fired := 0
	for i := range rules {
		rule := &rules[i]
		if !conditionsMatch(rule, req.Payload) {
			continue
		}
		recipients := s.resolveRecipients(rule, req.Payload)
		if len(recipients) == 0 {
			continue
		}

		_, err := s.notifications.Create(&dto.CreateNotificationRequest{
			TenantID:     tenantID,
			Recipients:   recipients,
			Title:        renderTemplate(rule.TitleTemplate, req.Payload),
			Body:         renderTemplate(rule.BodyTemplate, req.Payload),
			Kind:         rule.Kind,
			Priority:     rule.Priority,
			SourceModule: req.SourceModule,
			SourceEvent:  req.EventType,
			Data:         req.Payload,
		})
		if err != nil {
			logger.Error("rule notification failed",
				"rule_id", rule.ID, "tenant_id", tenantID, "error", err.Error())
			continue
		}
		fired++
	}
	return fired, nil
}

// conditionsMatch checks the rule's field-equality conditions against the
// payload. A missing or empty condition set always matches.
func conditionsMatch(rule *models.NotificationRule, payload map[string]interface{}) bool {
	if len(rule.Conditions) == 0 {
		return true
	}
	var conditions map[string]interface{}
	if err := json.Unmarshal(rule.Conditions, &conditions); err != nil {
		logger.Warn("rule has unreadable conditions", "rule_id", rule.ID, "error", err.Error())
		return false
	}
	for field, want := range conditions {
		got, ok := payload[field]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// resolveRecipients maps the rule's strategy to concrete user IDs. Only
// the explicit strategy is resolvable inside this module; the directory-
// backed strategies are declared for when a directory source is wired.
func (s *RuleService) resolveRecipients(rule *models.NotificationRule, payload map[string]interface{}) []string {
	switch rule.RecipientStrategy {
	case models.RecipientStrategyExplicit, "":
		var ids []string
		if len(rule.RecipientIDs) == 0 {
			return nil
		}
		if err := json.Unmarshal(rule.RecipientIDs, &ids); err != nil {
			logger.Warn("rule has unreadable recipient list", "rule_id", rule.ID, "error", err.Error())
			return nil
		}
		return ids
	default:
		logger.Warn("rule uses an unresolvable recipient strategy",
			"rule_id", rule.ID, "strategy", rule.RecipientStrategy)
		return nil
	}
}

// renderTemplate fills a rule template from the event payload; a broken
// template falls back to its raw text rather than dropping the rule.
func renderTemplate(text string, payload map[string]interface{}) string {
	if text == "" {
		return ""
	}
	tpl, err := template.New("rule").Parse(text)
	if err != nil {
		return text
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, payload); err != nil {
		return text
	}
	return buf.String()
}

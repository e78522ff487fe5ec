package services

import (
	"fmt"
	"time"

	"commhub/internal/logger"
	"commhub/internal/models"
	"commhub/internal/repositories"
)

// DedupOptions tunes one dedup sweep.
type DedupOptions struct {
	Window          time.Duration
	DryRun          bool
	IncludeAdvanced bool
}

type DedupResult struct {
	SimpleArchived   int64
	AdvancedArchived int64
}

// DedupService collapses recent duplicate notifications: within the
// window, records sharing a group key keep only the newest, the rest are
// archived. Archiving instead of deleting keeps the roll-up reversible
// and visible to the retention passes.
type DedupService struct {
	notifications repositories.NotificationRepository
	advanced      repositories.AdvancedRepository
	clock         func() time.Time
}

func NewDedupService(notifications repositories.NotificationRepository, advanced repositories.AdvancedRepository) *DedupService {
	return &DedupService{
		notifications: notifications,
		advanced:      advanced,
		clock:         time.Now,
	}
}

func (s *DedupService) Run(opts DedupOptions) (*DedupResult, error) {
	since := s.clock().Add(-opts.Window)
	result := &DedupResult{}

	archived, err := s.dedupSimple(since, opts.DryRun)
	if err != nil {
		return nil, err
	}
	result.SimpleArchived = archived

	if opts.IncludeAdvanced {
		archived, err := s.dedupAdvanced(since, opts.DryRun)
		if err != nil {
			return nil, err
		}
		result.AdvancedArchived = archived
	}

	if result.SimpleArchived+result.AdvancedArchived > 0 {
		logger.Info("dedup sweep",
			"simple_archived", result.SimpleArchived,
			"advanced_archived", result.AdvancedArchived,
			"dry_run", opts.DryRun)
	}
	return result, nil
}

// simpleKey groups per tenant and recipient on the correlation key when
// the producer supplied one, otherwise on (kind, title).
func simpleKey(n *models.Notification) string {
	if n.CorrelationID != "" {
		return fmt.Sprintf("%s|%s|%s|%s", n.TenantID, n.RecipientID, n.SourceModule, n.CorrelationID)
	}
	return fmt.Sprintf("%s|%s|k|%s|%s", n.TenantID, n.RecipientID, n.Kind, n.Title)
}

// advancedKey groups on the causing domain object when identified,
// otherwise on the rendered title.
func advancedKey(n *models.NotificationAdvanced) string {
	if n.SourceObjectType != "" && n.SourceObjectID != "" {
		return fmt.Sprintf("%s|%s|%s|%s", n.TenantID, n.SourceModule, n.SourceObjectType, n.SourceObjectID)
	}
	return fmt.Sprintf("%s|%s|t|%s", n.TenantID, n.SourceModule, n.Title)
}

func (s *DedupService) dedupSimple(since time.Time, dryRun bool) (int64, error) {
	window, err := s.notifications.FindWindow(since)
	if err != nil {
		return 0, err
	}

	ids := duplicateIDs(window, func(n *models.Notification) string { return simpleKey(n) },
		func(n *models.Notification) (time.Time, string) { return n.CreatedAt, n.ID })
	if dryRun || len(ids) == 0 {
		return int64(len(ids)), nil
	}
	return int64(len(ids)), s.notifications.ArchiveByIDs(ids)
}

func (s *DedupService) dedupAdvanced(since time.Time, dryRun bool) (int64, error) {
	window, err := s.advanced.FindWindow(since)
	if err != nil {
		return 0, err
	}

	ids := duplicateIDs(window, func(n *models.NotificationAdvanced) string { return advancedKey(n) },
		func(n *models.NotificationAdvanced) (time.Time, string) { return n.CreatedAt, n.ID })
	if dryRun || len(ids) == 0 {
		return int64(len(ids)), nil
	}
	return int64(len(ids)), s.advanced.ArchiveByIDs(ids)
}

// duplicateIDs returns every record that is not the newest of its group.
// Ties on creation time break on ID so repeated sweeps pick the same
// survivor.
func duplicateIDs[T any](records []T, key func(*T) string, order func(*T) (time.Time, string)) []string {
	type survivor struct {
		createdAt time.Time
		id        string
	}
	newest := make(map[string]survivor)
	var ids []string

	for i := range records {
		k := key(&records[i])
		createdAt, id := order(&records[i])

		cur, seen := newest[k]
		if !seen {
			newest[k] = survivor{createdAt, id}
			continue
		}
		if createdAt.After(cur.createdAt) || (createdAt.Equal(cur.createdAt) && id > cur.id) {
			ids = append(ids, cur.id)
			newest[k] = survivor{createdAt, id}
		} else {
			ids = append(ids, id)
		}
	}
	return ids
}

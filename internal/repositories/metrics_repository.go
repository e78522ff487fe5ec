package repositories

import (
	"errors"
	"time"

	"commhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrDeliveryNotFound = errors.New("email delivery not found")

// MetricDeltas names the counters to add to one hourly bucket.
type MetricDeltas struct {
	Created   int64
	Sent      int64
	Delivered int64
	Read      int64

	InAppSent int64
	EmailSent int64
	SMSSent   int64
	PushSent  int64

	EmailDelivered int64
	EmailOpened    int64
	EmailClicked   int64
}

// MetricsRepository keeps the hourly counter buckets and the per-attempt
// email delivery rows.
type MetricsRepository interface {
	Increment(tenantID string, at time.Time, deltas MetricDeltas) error
	FindBucket(tenantID string, at time.Time) (*models.NotificationMetrics, error)
	CreateEmailDelivery(d *models.EmailDelivery) error
	FindEmailDelivery(id string) (*models.EmailDelivery, error)
	TrackEmailOpen(id string, at time.Time) error
	TrackEmailClick(id string, at time.Time) error
}

type metricsRepository struct {
	db *gorm.DB
}

func NewMetricsRepository(db *gorm.DB) MetricsRepository {
	return &metricsRepository{db: db}
}

func bucketKey(at time.Time) (date string, hour int) {
	return at.Format("2006-01-02"), at.Hour()
}

func (r *metricsRepository) Increment(tenantID string, at time.Time, d MetricDeltas) error {
	date, hour := bucketKey(at)

	assignments := map[string]interface{}{}
	add := func(col string, delta int64) {
		if delta != 0 {
			assignments[col] = gorm.Expr(col+" + ?", delta)
		}
	}
	add("created_count", d.Created)
	add("sent_count", d.Sent)
	add("delivered_count", d.Delivered)
	add("read_count", d.Read)
	add("in_app_sent_count", d.InAppSent)
	add("email_sent_count", d.EmailSent)
	add("sms_sent_count", d.SMSSent)
	add("push_sent_count", d.PushSent)
	add("email_delivered_count", d.EmailDelivered)
	add("email_opened_count", d.EmailOpened)
	add("email_clicked_count", d.EmailClicked)
	if len(assignments) == 0 {
		return nil
	}

	bucket := models.NotificationMetrics{
		TenantID: tenantID,
		Date:     date,
		Hour:     hour,

		CreatedCount:   d.Created,
		SentCount:      d.Sent,
		DeliveredCount: d.Delivered,
		ReadCount:      d.Read,

		InAppSentCount: d.InAppSent,
		EmailSentCount: d.EmailSent,
		SMSSentCount:   d.SMSSent,
		PushSentCount:  d.PushSent,

		EmailDeliveredCount: d.EmailDelivered,
		EmailOpenedCount:    d.EmailOpened,
		EmailClickedCount:   d.EmailClicked,
	}

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"}, {Name: "date"}, {Name: "hour"},
		},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&bucket).Error
}

func (r *metricsRepository) FindBucket(tenantID string, at time.Time) (*models.NotificationMetrics, error) {
	date, hour := bucketKey(at)
	var bucket models.NotificationMetrics
	err := r.db.First(&bucket, "tenant_id = ? AND date = ? AND hour = ?", tenantID, date, hour).Error
	if err != nil {
		return nil, err
	}
	return &bucket, nil
}

func (r *metricsRepository) CreateEmailDelivery(d *models.EmailDelivery) error {
	return r.db.Create(d).Error
}

func (r *metricsRepository) FindEmailDelivery(id string) (*models.EmailDelivery, error) {
	var d models.EmailDelivery
	err := r.db.First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeliveryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *metricsRepository) TrackEmailOpen(id string, at time.Time) error {
	d, err := r.FindEmailDelivery(id)
	if err != nil {
		return err
	}
	if d.OpenedAt != nil {
		return nil // already counted
	}
	if err := r.db.Model(d).Update("opened_at", at).Error; err != nil {
		return err
	}
	return r.Increment(d.TenantID, at, MetricDeltas{EmailOpened: 1})
}

func (r *metricsRepository) TrackEmailClick(id string, at time.Time) error {
	d, err := r.FindEmailDelivery(id)
	if err != nil {
		return err
	}
	if d.ClickedAt != nil {
		return nil
	}
	if err := r.db.Model(d).Update("clicked_at", at).Error; err != nil {
		return err
	}
	return r.Increment(d.TenantID, at, MetricDeltas{EmailClicked: 1})
}

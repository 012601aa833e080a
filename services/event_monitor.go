package services

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/yeremiapane/locum-staffing/metrics"
	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/utils"
	"gorm.io/gorm"
)

// EventPublisher delivers outbox events to live subscribers.
type EventPublisher interface {
	Publish(event models.AssignmentEvent) int
}

// EventMonitor polls the assignment outbox and hands new rows to the publisher.
type EventMonitor struct {
	DB        *gorm.DB
	Publisher EventPublisher
	Interval  time.Duration
	BatchSize int

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewEventMonitor(db *gorm.DB, publisher EventPublisher, interval time.Duration) *EventMonitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &EventMonitor{
		DB:        db,
		Publisher: publisher,
		Interval:  interval,
		BatchSize: 100,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (m *EventMonitor) Start(ctx context.Context) {
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := m.ProcessPending(ctx); err != nil {
					utils.ErrorLogger.WithError(err).Error("event monitor pass failed")
				}
			case <-ctx.Done():
				return
			case <-m.stopChan:
				return
			}
		}
	}()
}

// Stop ends the polling loop and waits for the current pass to finish.
func (m *EventMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
	<-m.done
}

// ProcessPending publishes one batch of unprocessed events, oldest first, and marks them
// processed. It returns the number of events handled.
func (m *EventMonitor) ProcessPending(ctx context.Context) (int, error) {
	var events []models.AssignmentEvent
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("processed = ?", false).
			Order("id asc").
			Limit(m.BatchSize).
			Find(&events).Error; err != nil {
			return errors.Wrap(err, "fetch pending events")
		}
		if len(events) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(events))
		for _, ev := range events {
			reached := m.Publisher.Publish(ev)
			metrics.EventsBroadcast.Add(float64(reached))
			ids = append(ids, ev.ID)
		}
		if err := tx.Model(&models.AssignmentEvent{}).
			Where("id IN ?", ids).
			Update("processed", true).Error; err != nil {
			return errors.Wrap(err, "mark events processed")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(events) > 0 {
		utils.InfoLogger.WithField("count", len(events)).Debug("published assignment events")
	}
	return len(events), nil
}

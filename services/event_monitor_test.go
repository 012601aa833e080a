package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/locum-staffing/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.AssignmentEvent
}

func (p *recordingPublisher) Publish(event models.AssignmentEvent) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return 1
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func TestProcessPending(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleNurse, "", 1)
	nurse := createUser(t, db, models.RoleNurse, "")
	offerAndAccept(t, engine, job.ID, nurse)

	pub := &recordingPublisher{}
	monitor := NewEventMonitor(db, pub, time.Hour)
	monitor.BatchSize = 1

	n, err := monitor.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	monitor.BatchSize = 100
	n, err = monitor.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{models.EventOfferCreated, models.EventAssignmentAccepted}, pub.kinds())

	var pending int64
	require.NoError(t, db.Model(&models.AssignmentEvent{}).Where("processed = ?", false).Count(&pending).Error)
	assert.Zero(t, pending)

	n, err = monitor.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, pub.kinds(), 2)
}

func TestEventMonitor_StartStop(t *testing.T) {
	db, engine := newEngine(t)
	job := createJob(t, db, models.RoleNurse, "", 1)
	nurse := createUser(t, db, models.RoleNurse, "")
	_, err := engine.CreateOffers(context.Background(), job.ID, []models.User{nurse})
	require.NoError(t, err)

	pub := &recordingPublisher{}
	monitor := NewEventMonitor(db, pub, 10*time.Millisecond)
	monitor.Start(context.Background())

	assert.Eventually(t, func() bool { return len(pub.kinds()) == 1 }, 2*time.Second, 10*time.Millisecond)
	monitor.Stop()
	monitor.Stop()
}

package middlewares

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "Idempotency-Replayed"
	maxIdempotencyKeyLength   = 128
)

type bodyRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a request retried with the same Idempotency-Key.
type Idempotency struct {
	DB  *gorm.DB
	TTL time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewIdempotency(db *gorm.DB, ttl time.Duration) *Idempotency {
	return &Idempotency{DB: db, TTL: ttl, inFlight: make(map[string]struct{})}
}

func (i *Idempotency) acquire(key string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, busy := i.inFlight[key]; busy {
		return false
	}
	i.inFlight[key] = struct{}{}
	return true
}

func (i *Idempotency) release(key string) {
	i.mu.Lock()
	delete(i.inFlight, key)
	i.mu.Unlock()
}

// Middleware must run after AuthMiddleware; keys are scoped per user.
func (i *Idempotency) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			utils.RespondError(c, http.StatusBadRequest,
				errors.Errorf("%s must be at most %d characters", IdempotencyKeyHeader, maxIdempotencyKeyLength))
			c.Abort()
			return
		}
		session, ok := GetSession(c)
		if !ok {
			c.Next()
			return
		}

		lockKey := fmt.Sprintf("%d:%s", session.UserID, key)
		if !i.acquire(lockKey) {
			utils.RespondError(c, http.StatusConflict, errors.New("a request with this idempotency key is in progress"))
			c.Abort()
			return
		}
		defer i.release(lockKey)

		// Looked up under the lock: a finished request stores its record before releasing it.
		var record models.IdempotencyRecord
		err := i.DB.WithContext(c.Request.Context()).
			Where("idem_key = ? AND user_id = ?", key, session.UserID).
			First(&record).Error
		switch {
		case err == nil:
			if record.Method != c.Request.Method || record.Path != c.Request.URL.Path {
				utils.RespondError(c, http.StatusConflict,
					errors.New("idempotency key was already used for a different request"))
				c.Abort()
				return
			}
			c.Header(IdempotencyReplayedHeader, "true")
			c.Data(record.StatusCode, "application/json; charset=utf-8", record.Body)
			c.Abort()
			return
		case !errors.Is(err, gorm.ErrRecordNotFound):
			utils.ErrorLogger.WithError(err).Error("idempotency lookup failed")
			c.Next()
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = recorder
		c.Next()

		status := recorder.Status()
		if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
			return
		}
		record = models.IdempotencyRecord{
			Key:        key,
			UserID:     session.UserID,
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			StatusCode: status,
			Body:       recorder.body.Bytes(),
		}
		if err := i.DB.WithContext(context.WithoutCancel(c.Request.Context())).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&record).Error; err != nil {
			utils.ErrorLogger.WithError(err).Error("store idempotent response")
		}
	}
}

// Purge removes records older than the TTL.
func (i *Idempotency) Purge(ctx context.Context, now time.Time) (int64, error) {
	res := i.DB.WithContext(ctx).
		Where("created_at < ?", now.Add(-i.TTL)).
		Delete(&models.IdempotencyRecord{})
	return res.RowsAffected, res.Error
}

func (i *Idempotency) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n, err := i.Purge(ctx, time.Now()); err != nil {
				utils.ErrorLogger.WithError(err).Error("purge idempotency records")
			} else if n > 0 {
				utils.InfoLogger.Printf("Purged %d idempotency records", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

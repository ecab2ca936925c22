package jobs

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/afya-ehr/afya-backend/internal/services"
)

// CleanupJob periodically sweeps stale USSD sessions and orphaned
// medical records. Session expiry is lazy on access, so the sweep only
// exists to keep abandoned sessions from piling up in the store.
type CleanupJob struct {
	sessions *services.SessionManager
	records  *services.RecordService
	interval time.Duration
	running  atomic.Bool
}

// NewCleanupJob creates a new cleanup job scheduler
func NewCleanupJob(sessions *services.SessionManager, records *services.RecordService) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		records:  records,
		interval: 10 * time.Minute,
	}
}

// Start begins the periodic cleanup sweep
func (j *CleanupJob) Start() {
	if !j.running.CompareAndSwap(false, true) {
		log.Println("Cleanup job already running")
		return
	}

	log.Printf("Starting cleanup job (every %v)...", j.interval)

	go j.run()
}

// Stop halts the cleanup sweep
func (j *CleanupJob) Stop() {
	j.running.Store(false)
	log.Println("Stopping cleanup job...")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for range ticker.C {
		if !j.running.Load() {
			return
		}

		ended := j.sessions.CleanupExpiredSessions()
		removed, err := j.records.CleanupInvalidRecords()
		if err != nil {
			log.Printf("Record cleanup failed: %v", err)
		}
		if ended > 0 || removed > 0 {
			log.Printf("Cleanup sweep: %d sessions ended, %d records removed", ended, removed)
		}
	}
}

package services

import (
	"log"

	"github.com/afya-ehr/afya-backend/internal/models"
	"github.com/afya-ehr/afya-backend/internal/storage"
)

// AuditService writes activity events to the store. Writes are
// best-effort: failures are logged locally and never reach the caller,
// and the default mode detaches the write from the request goroutine.
type AuditService struct {
	store storage.Store
	sync  bool
}

// NewAuditService creates the production audit logger (detached writes)
func NewAuditService(store storage.Store) *AuditService {
	return &AuditService{store: store}
}

// NewSyncAuditService creates an audit logger that writes inline.
// Used by tests that assert on emitted events.
func NewSyncAuditService(store storage.Store) *AuditService {
	return &AuditService{store: store, sync: true}
}

// Log records an activity event. Never returns an error and never
// blocks the user-facing turn on a slow store.
func (a *AuditService) Log(entry models.ActivityLog) {
	if a == nil || a.store == nil {
		return
	}
	write := func() {
		if err := a.store.CreateActivityLog(&entry); err != nil {
			log.Printf("Failed to log activity %s: %v", entry.Action, err)
		}
	}
	if a.sync {
		write()
		return
	}
	go write()
}

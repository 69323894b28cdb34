package preview

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"partsadmin/internal/models"
)

// Ledger remembers which previews are live and since when.
type Ledger interface {
	Record(rec *models.PreviewRecord) error
	Forget(token string) error
	OlderThan(cutoff time.Time) ([]models.PreviewRecord, error)
}

// GormLedger keeps the ledger in the database so orphans of a previous
// process can be swept.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) (*GormLedger, error) {
	if err := db.AutoMigrate(&models.PreviewRecord{}); err != nil {
		return nil, err
	}
	return &GormLedger{db: db}, nil
}

func (l *GormLedger) Record(rec *models.PreviewRecord) error {
	return l.db.Create(rec).Error
}

func (l *GormLedger) Forget(token string) error {
	return l.db.Where("token = ?", token).Delete(&models.PreviewRecord{}).Error
}

func (l *GormLedger) OlderThan(cutoff time.Time) ([]models.PreviewRecord, error) {
	var recs []models.PreviewRecord
	err := l.db.Where("created_at < ?", cutoff).Order("id").Find(&recs).Error
	return recs, err
}

// MemoryLedger is used when no database is configured.
type MemoryLedger struct {
	mu   sync.Mutex
	recs map[string]models.PreviewRecord
	seq  uint
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{recs: map[string]models.PreviewRecord{}}
}

func (l *MemoryLedger) Record(rec *models.PreviewRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	rec.ID = l.seq
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.UpdatedAt = rec.CreatedAt
	l.recs[rec.Token] = *rec
	return nil
}

func (l *MemoryLedger) Forget(token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.recs, token)
	return nil
}

func (l *MemoryLedger) OlderThan(cutoff time.Time) ([]models.PreviewRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.PreviewRecord
	for _, rec := range l.recs {
		if rec.CreatedAt.Before(cutoff) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Len is the number of live previews.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recs)
}

package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/smartgrid/internal/readiness"
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// Level ranks an alert.
type Level string

// Alert levels.
const (
	LevelAlert   Level = "ALERT"
	LevelWarning Level = "WARNING"
	LevelInfo    Level = "INFO"
)

// DefaultAlertLimit bounds the feed when no limit is configured.
const DefaultAlertLimit = 100

// Alert is one entry in the operator feed.
type Alert struct {
	ID       string    `json:"id"`
	Level    Level     `json:"type"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	KitID    string    `json:"backpack_id,omitempty"`
	ModuleID string    `json:"module_id,omitempty"`
	At       time.Time `json:"timestamp"`
	Read     bool      `json:"read"`
}

// Feed is a bounded, newest-first list of alerts. Once full, the oldest
// entry is dropped.
type Feed struct {
	mu    sync.Mutex
	limit int
	items []Alert
}

// NewFeed returns an empty feed holding at most limit alerts.
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = DefaultAlertLimit
	}
	return &Feed{limit: limit}
}

// Add stores a, assigning an ID when it has none, and returns the stored
// copy.
func (f *Feed) Add(a Alert) Alert {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append([]Alert{a}, f.items...)
	if len(f.items) > f.limit {
		f.items = f.items[:f.limit]
	}
	return a
}

// List returns a copy of the feed, newest first.
func (f *Feed) List() []Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Alert(nil), f.items...)
}

// Unread counts alerts not yet marked read.
func (f *Feed) Unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.items {
		if !a.Read {
			n++
		}
	}
	return n
}

// MarkRead flags one alert as read. It reports whether the ID was found.
func (f *Feed) MarkRead(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Read = true
			return true
		}
	}
	return false
}

// Clear empties the feed.
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
}

func urgent(s types.ModuleStatus) bool {
	switch s {
	case types.ModuleOpened, types.ModuleError, types.ModuleMissing:
		return true
	}
	return false
}

// diffAlerts compares a fresh snapshot against the previous one and returns
// the alerts for conditions that are new. A kit absent from prev reports
// every current problem but no status change.
func diffAlerts(prev map[string]*types.Kit, next []*types.Kit, expiry readiness.Classifier, now time.Time) []Alert {
	var out []Alert
	for _, k := range next {
		p := prev[k.ID]
		if p != nil && p.Status != k.Status {
			out = append(out, Alert{
				Level:   LevelInfo,
				Title:   "Status changed",
				Message: fmt.Sprintf("%s is now %s (was %s)", k.Name, k.Status, p.Status),
				KitID:   k.ID,
				At:      now,
			})
		}
		if k.Status == types.StatusInUse && (p == nil || p.Status != types.StatusInUse) {
			out = append(out, Alert{
				Level:   LevelWarning,
				Title:   "Kit not synced",
				Message: fmt.Sprintf("%s has not reported since %s", k.Name, k.LastSync.Format(time.RFC3339)),
				KitID:   k.ID,
				At:      now,
			})
		}

		before := make(map[string]*types.Module)
		if p != nil {
			for _, m := range p.Modules {
				before[m.ID] = m
			}
		}
		for _, m := range k.Modules {
			pm := before[m.ID]
			if urgent(m.Status) && (pm == nil || pm.Status != m.Status) {
				out = append(out, Alert{
					Level:    LevelAlert,
					Title:    "Module " + string(m.Status),
					Message:  fmt.Sprintf("%s in %s at %d,%d", m.Name, k.Name, m.Col, m.Row),
					KitID:    k.ID,
					ModuleID: m.ID,
					At:       now,
				})
			}
			fresh := expiry.Classify(m.Expiry, now)
			was := types.FreshnessOK
			if pm != nil {
				was = expiry.Classify(pm.Expiry, now)
			}
			if fresh != types.FreshnessOK && fresh != was {
				out = append(out, Alert{
					Level:    LevelWarning,
					Title:    "Contents " + string(fresh),
					Message:  expiryMessage(m, k, fresh, now),
					KitID:    k.ID,
					ModuleID: m.ID,
					At:       now,
				})
			}
		}
	}
	return out
}

func expiryMessage(m *types.Module, k *types.Kit, f types.Freshness, now time.Time) string {
	if f == types.FreshnessExpired {
		return fmt.Sprintf("%s in %s expired on %s", m.Name, k.Name, m.Expiry.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s in %s expires in %d days", m.Name, k.Name, readiness.DaysUntil(*m.Expiry, now))
}

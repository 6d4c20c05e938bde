package swap

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/smartgrid/internal/readiness"
	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

// Config holds what a Session needs beyond the kit and slot.
type Config struct {
	Repo     types.Repository
	Resolver readiness.Resolver
	Template *types.Template
	Logger   *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// OnCommit, if set, receives the kit after a successful commit.
	OnCommit func(*types.Kit)
}

// Session runs the scan protocol for one slot of one kit. Events are
// processed one at a time; a scan in flight blocks the next.
type Session struct {
	mu  sync.Mutex
	cfg Config
	kit *types.Kit
	m   Machine
	log *zap.Logger

	committed bool
}

// Open starts a session on target, a module from the kit's effective list.
// The returned Outcome reports the first step, or why the slot cannot be
// worked on; in that case the session is already Idle.
func Open(cfg Config, kit *types.Kit, target *types.Module) (*Session, Outcome) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{cfg: cfg, kit: kit.Clone(), log: log.With(zap.String("kit", kit.ID))}
	var t *types.Module
	if target != nil {
		t = target.Clone()
	}
	var out Outcome
	s.m, out = Step(Machine{}, Event{Kind: EventBegin, Target: t})
	if out.Success {
		s.log.Debug("session opened",
			zap.String("target", t.ID),
			zap.Stringer("state", s.m.State))
	}
	return s, out
}

// State returns the current protocol step.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.State
}

// Target returns the slot the session works on, or nil once Idle.
func (s *Session) Target() *types.Module {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Target
}

// Kit returns the session's copy of the kit, including any committed
// change.
func (s *Session) Kit() *types.Kit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kit.Clone()
}

// Committed reports whether a new pouch was written into the slot.
func (s *Session) Committed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

// Rebase swaps in a freshly loaded copy of the kit. The target slot and
// step are left alone.
func (s *Session) Rebase(kit *types.Kit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kit = kit.Clone()
}

// Skip jumps from ScanOld to ScanNew without scanning the old pouch.
func (s *Session) Skip() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(Event{Kind: EventSkip})
}

// Cancel abandons the session.
func (s *Session) Cancel() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(Event{Kind: EventCancel})
}

// Scan feeds a scanned identifier into the current step. In ScanNew the
// identifier is looked up and, if accepted, the pouch is moved into the
// slot and the kit is saved as one unit. A failed save keeps the session in
// ScanNew so the caller may retry.
func (s *Session) Scan(ctx context.Context, raw string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := Event{Kind: EventScan, ID: raw}
	if s.m.State != ScanNew {
		return s.apply(ev)
	}

	cand, err := s.cfg.Repo.ModuleByID(ctx, types.NormalizeScan(raw))
	if err != nil {
		err = types.Transport("module lookup", err)
		s.log.Warn("module lookup failed", zap.String("scanned", raw), zap.Error(err))
		return fail(CodeTransport, err, "could not look up pouch: %v", err)
	}
	ev.Candidate = cand

	prev := s.m
	next, out := Step(s.m, ev)
	if !out.Success {
		s.log.Debug("scan rejected", zap.String("scanned", raw), zap.String("code", string(out.Code)))
		return out
	}

	kit, err := s.commit(ctx, prev.Target, cand)
	if err != nil {
		s.log.Warn("commit failed", zap.String("scanned", raw), zap.Error(err))
		return fail(CodeTransport, err, "could not save kit: %v", err)
	}
	s.kit = kit
	s.m = next
	s.committed = true
	s.log.Info("pouch committed",
		zap.String("module", cand.ID),
		zap.Int("col", prev.Target.Col),
		zap.Int("row", prev.Target.Row),
		zap.String("status", string(kit.Status)))
	if s.cfg.OnCommit != nil {
		s.cfg.OnCommit(kit.Clone())
	}
	return out
}

func (s *Session) apply(ev Event) Outcome {
	next, out := Step(s.m, ev)
	if out.Success && next.State != s.m.State {
		s.log.Debug("session step",
			zap.Stringer("from", s.m.State),
			zap.Stringer("to", next.State))
	}
	s.m = next
	return out
}

// commit builds the updated kit and saves it. The session's own copy is
// only replaced once the save succeeded.
func (s *Session) commit(ctx context.Context, target, cand *types.Module) (*types.Kit, error) {
	now := s.cfg.Now()
	kit := s.kit.Clone()
	m := cand.Clone()
	m.AssignTo(kit.ID, target.Placement, now)
	kit.Place(m)
	kit.Status = s.cfg.Resolver.Resolve(kit, s.cfg.Template, now)

	if err := s.cfg.Repo.SaveBackpack(ctx, kit); err != nil {
		return nil, types.Transport("save backpack", err)
	}
	return kit, nil
}

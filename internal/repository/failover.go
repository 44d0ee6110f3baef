package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"echoeditor/internal/model"
)

const probeTimeout = 2 * time.Second

// Probe reports whether the durable backend is reachable right now.
type Probe func(ctx context.Context) error

// Failover routes each call to the durable store while it is reachable and
// degrades to the in-memory store otherwise. Connectivity is checked fresh
// on every operation, so the system moves between modes without a restart.
// A durable failure is never surfaced to the caller; collaboration keeps
// working on the in-memory copy.
type Failover struct {
	durable SessionStore
	memory  *MemoryStore
	probe   Probe
	log     *logrus.Entry
}

// NewFailover wires the durable backend, its in-memory fallback, and the
// connectivity probe.
func NewFailover(durable SessionStore, memory *MemoryStore, probe Probe) *Failover {
	return &Failover{
		durable: durable,
		memory:  memory,
		probe:   probe,
		log:     logrus.WithField("component", "session-store"),
	}
}

func (f *Failover) online(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := f.probe(probeCtx); err != nil {
		f.log.Warnf("durable store unreachable, using in-memory fallback: %v", err)
		return false
	}
	return true
}

func (f *Failover) Get(ctx context.Context, roomID string) (*model.Session, error) {
	if f.online(ctx) {
		session, err := f.durable.Get(ctx, roomID)
		if err == nil || errors.Is(err, ErrNotFound) {
			return session, err
		}
		f.log.Warnf("durable get failed for room %s: %v", roomID, err)
	}
	return f.memory.Get(ctx, roomID)
}

func (f *Failover) CreateIfAbsent(ctx context.Context, roomID string, defaults model.SessionDefaults) (*model.Session, error) {
	if f.online(ctx) {
		session, err := f.durable.CreateIfAbsent(ctx, roomID, defaults)
		if err == nil {
			return session, nil
		}
		f.log.Warnf("durable create failed for room %s: %v", roomID, err)
	}
	return f.memory.CreateIfAbsent(ctx, roomID, defaults)
}

func (f *Failover) SetCode(ctx context.Context, roomID, code string) error {
	if f.online(ctx) {
		err := f.durable.SetCode(ctx, roomID, code)
		if err == nil || errors.Is(err, ErrNotFound) {
			return err
		}
		f.log.Warnf("durable code write failed for room %s: %v", roomID, err)
	}
	f.ensure(ctx, roomID)
	return f.memory.SetCode(ctx, roomID, code)
}

func (f *Failover) SetLanguage(ctx context.Context, roomID, language string) error {
	if f.online(ctx) {
		err := f.durable.SetLanguage(ctx, roomID, language)
		if err == nil || errors.Is(err, ErrNotFound) {
			return err
		}
		f.log.Warnf("durable language write failed for room %s: %v", roomID, err)
	}
	f.ensure(ctx, roomID)
	return f.memory.SetLanguage(ctx, roomID, language)
}

func (f *Failover) AddOrReplaceUser(ctx context.Context, roomID string, user model.PresenceUser) (*model.Session, error) {
	if f.online(ctx) {
		session, err := f.durable.AddOrReplaceUser(ctx, roomID, user)
		if err == nil || errors.Is(err, ErrNotFound) {
			return session, err
		}
		f.log.Warnf("durable presence write failed for room %s: %v", roomID, err)
	}
	f.ensure(ctx, roomID)
	return f.memory.AddOrReplaceUser(ctx, roomID, user)
}

func (f *Failover) RemoveUser(ctx context.Context, roomID, userID string) (*model.Session, error) {
	if f.online(ctx) {
		session, err := f.durable.RemoveUser(ctx, roomID, userID)
		if err == nil || errors.Is(err, ErrNotFound) {
			return session, err
		}
		f.log.Warnf("durable presence write failed for room %s: %v", roomID, err)
	}
	return f.memory.RemoveUser(ctx, roomID, userID)
}

func (f *Failover) ReplaceUsers(ctx context.Context, roomID string, users []model.PresenceUser) (*model.Session, error) {
	if f.online(ctx) {
		session, err := f.durable.ReplaceUsers(ctx, roomID, users)
		if err == nil || errors.Is(err, ErrNotFound) {
			return session, err
		}
		f.log.Warnf("durable presence write failed for room %s: %v", roomID, err)
	}
	return f.memory.ReplaceUsers(ctx, roomID, users)
}

// ensure seeds the room in the fallback store so a mid-session failover
// does not turn writes into not-found errors. The buffer restarts from the
// defaults; the next edit broadcast replaces it.
func (f *Failover) ensure(ctx context.Context, roomID string) {
	if _, err := f.memory.CreateIfAbsent(ctx, roomID, model.NewSessionDefaults("", "")); err != nil {
		f.log.Warnf("fallback seed failed for room %s: %v", roomID, err)
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tavernkeep/tavern/internal/domain"
)

// ErrCodeTaken is returned by stores when a session insert loses a room
// code race; the directory regenerates and retries.
var ErrCodeTaken = errors.New("room code taken")

// Directory maps room codes to sessions and admits members.
type Directory struct {
	store Store

	mu  sync.Mutex
	rng *rand.Rand
}

func NewDirectory(store Store, rng *rand.Rand) *Directory {
	return &Directory{store: store, rng: rng}
}

func (d *Directory) nextCode() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return domain.GenerateRoomCode(d.rng)
}

// CreateSession allocates a session under a fresh room code. Codes are
// regenerated until one is free; the store's unique constraint closes
// the window between the check and the insert, so a lost race just
// loops again. Bounded only by the 900000-code space.
func (d *Directory) CreateSession(ctx context.Context, name, hostName string) (*domain.Session, error) {
	session, err := domain.NewSession(name, hostName)
	if err != nil {
		return nil, err
	}

	for {
		code := d.nextCode()
		if _, err := d.store.SessionByCode(ctx, code); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("check room code: %w", err)
		}

		session.RoomCode = code
		err := d.store.CreateSession(ctx, session)
		if errors.Is(err, ErrCodeTaken) {
			log.Warn().Str("module", "app.directory").Str("code", code).Msg("room code collision, regenerating")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		log.Info().Str("module", "app.directory").Str("session", string(session.ID)).Str("code", code).Msg("session created")
		return session, nil
	}
}

// ResolveByCode looks a session up by its shared room code.
func (d *Directory) ResolveByCode(ctx context.Context, code string) (*domain.Session, error) {
	if !domain.IsValidRoomCode(code) {
		return nil, domain.ErrNotFound
	}
	return d.store.SessionByCode(ctx, code)
}

// Join admits a new member slot into the session. The capacity check
// and the insert are atomic inside the store, so near-simultaneous
// joins cannot exceed domain.MaxMembers.
func (d *Directory) Join(ctx context.Context, sessionID domain.SessionID) (*domain.Member, error) {
	if _, err := d.store.SessionByID(ctx, sessionID); err != nil {
		return nil, err
	}
	member := domain.NewMember(sessionID)
	if err := d.store.AddMember(ctx, member); err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.directory").Str("session", string(sessionID)).Str("member", string(member.ID)).Msg("member joined")
	return member, nil
}

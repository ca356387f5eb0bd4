package app

import (
	"context"

	"github.com/tavernkeep/tavern/internal/domain"
)

// Store is the durable record store the coordination core writes through.
// Implementations return domain.ErrNotFound for missing records and
// domain.ErrRoomFull when a member insert would exceed capacity.
type Store interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	SessionByID(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	SessionByCode(ctx context.Context, code string) (*domain.Session, error)

	AddMember(ctx context.Context, m *domain.Member) error
	MemberByID(ctx context.Context, id domain.MemberID) (*domain.Member, error)
	Members(ctx context.Context, sessionID domain.SessionID) ([]domain.Member, error)
	SetMemberChannel(ctx context.Context, id domain.MemberID, channelID string, connected bool) error

	CreateCharacter(ctx context.Context, c *domain.Character) error

	SaveTurnState(ctx context.Context, ts *domain.TurnState) error
	TurnState(ctx context.Context, sessionID domain.SessionID) (*domain.TurnState, error)

	SaveCombatLog(ctx context.Context, sessionID domain.SessionID, log []string) error
	CombatLog(ctx context.Context, sessionID domain.SessionID) ([]string, error)
}

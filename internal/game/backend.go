// internal/game/backend.go
package game

import (
	"context"

	"github.com/MafiaJoker/mafia-game-sub000/internal/cache"
	"github.com/MafiaJoker/mafia-game-sub000/internal/models"
	"github.com/MafiaJoker/mafia-game-sub000/internal/outbox"
)

// Backend is the remote game store. database.Store implements it.
type Backend interface {
	GetGame(ctx context.Context, id int64) (models.GameRecord, error)
	GetGameState(ctx context.Context, id int64) (models.GameState, error)
	CreatePhase(ctx context.Context, id int64, p models.PhaseRecord) error
	UpdatePhase(ctx context.Context, id int64, p models.PhaseRecord) error
	CreatePlayers(ctx context.Context, id int64, players []models.PlayerRecord) error
	AddPlayers(ctx context.Context, id int64, players []models.PlayerRecord) error
	UpdateGameStatus(ctx context.Context, id int64, status, result string) error
}

// Historian receives the action log. cache.Historian implements it.
type Historian interface {
	PublishGameAction(ctx context.Context, rec cache.GameActionRecord) error
}

// Outbox parks writes that exhausted their attempts. outbox.Store
// implements it.
type Outbox interface {
	Put(ctx context.Context, e outbox.Entry) (string, error)
	Pending(ctx context.Context, limit int) ([]outbox.Entry, error)
	Delete(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, cause string) error
}

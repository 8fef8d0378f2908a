// internal/database/database.go
package database

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MafiaJoker/mafia-game-sub000/internal/models"
)

// ErrNotFound is returned when a game or phase does not exist.
var ErrNotFound = errors.New("not found")

//go:embed schema.sql
var schema string

// Store is the PostgreSQL-backed game repository.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for url and checks connectivity.
func Connect(ctx context.Context, url string) (*Store, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("database url is required")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate creates the tables if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// GetGame loads the game row and its seated players.
func (s *Store) GetGame(ctx context.Context, id int64) (models.GameRecord, error) {
	rec := models.GameRecord{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT status, result, updated_at FROM games WHERE id = $1`, id,
	).Scan(&rec.Status, &rec.Result, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, fmt.Errorf("game %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("get game %d: %w", id, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT seat, name, role, original_role, silent, silent_next_round, base_score, bonus_score
		FROM game_players WHERE game_id = $1 ORDER BY seat`, id)
	if err != nil {
		return rec, fmt.Errorf("get players of game %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var p models.PlayerRecord
		if err := rows.Scan(&p.Seat, &p.Name, &p.Role, &p.OriginalRole, &p.Silent, &p.SilentNextRound, &p.BaseScore, &p.BonusScore); err != nil {
			return rec, fmt.Errorf("scan player of game %d: %w", id, err)
		}
		rec.Players = append(rec.Players, p)
	}
	return rec, rows.Err()
}

// GetGameState loads every phase of the game in order.
func (s *Store) GetGameState(ctx context.Context, id int64) (models.GameState, error) {
	state := models.GameState{GameID: id, Phases: []models.PhaseRecord{}}
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM game_phases WHERE game_id = $1 ORDER BY phase_id`, id)
	if err != nil {
		return state, fmt.Errorf("get phases of game %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return state, fmt.Errorf("scan phase of game %d: %w", id, err)
		}
		var p models.PhaseRecord
		if err := json.Unmarshal(raw, &p); err != nil {
			return state, fmt.Errorf("decode phase of game %d: %w", id, err)
		}
		state.Phases = append(state.Phases, p)
	}
	return state, rows.Err()
}

// ensureGame inserts an empty game row so child rows can reference it.
func ensureGame(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `INSERT INTO games (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id)
	return err
}

// CreatePhase inserts a phase. Inserting an existing phase id is a no-op so
// replayed writes stay harmless.
func (s *Store) CreatePhase(ctx context.Context, id int64, p models.PhaseRecord) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode phase %d: %w", p.PhaseID, err)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := ensureGame(ctx, tx, id); err != nil {
			return fmt.Errorf("ensure game %d: %w", id, err)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO game_phases (game_id, phase_id, data) VALUES ($1, $2, $3)
			ON CONFLICT (game_id, phase_id) DO NOTHING`, id, p.PhaseID, raw)
		if err != nil {
			return fmt.Errorf("create phase %d of game %d: %w", p.PhaseID, id, err)
		}
		return nil
	})
}

// UpdatePhase overwrites an existing phase.
func (s *Store) UpdatePhase(ctx context.Context, id int64, p models.PhaseRecord) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode phase %d: %w", p.PhaseID, err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE game_phases SET data = $3, updated_at = now()
		WHERE game_id = $1 AND phase_id = $2`, id, p.PhaseID, raw)
	if err != nil {
		return fmt.Errorf("update phase %d of game %d: %w", p.PhaseID, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("phase %d of game %d: %w", p.PhaseID, id, ErrNotFound)
	}
	return nil
}

const upsertPlayer = `
	INSERT INTO game_players (game_id, seat, name, role, original_role, silent, silent_next_round, base_score, bonus_score)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (game_id, seat) DO UPDATE SET
		name = EXCLUDED.name,
		role = EXCLUDED.role,
		original_role = EXCLUDED.original_role,
		silent = EXCLUDED.silent,
		silent_next_round = EXCLUDED.silent_next_round,
		base_score = EXCLUDED.base_score,
		bonus_score = EXCLUDED.bonus_score`

func writePlayers(ctx context.Context, tx pgx.Tx, id int64, players []models.PlayerRecord) error {
	batch := &pgx.Batch{}
	for _, p := range players {
		batch.Queue(upsertPlayer, id, p.Seat, p.Name, p.Role, p.OriginalRole, p.Silent, p.SilentNextRound, p.BaseScore, p.BonusScore)
	}
	return tx.SendBatch(ctx, batch).Close()
}

// CreatePlayers replaces the game's seating with players.
func (s *Store) CreatePlayers(ctx context.Context, id int64, players []models.PlayerRecord) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := ensureGame(ctx, tx, id); err != nil {
			return fmt.Errorf("ensure game %d: %w", id, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM game_players WHERE game_id = $1`, id); err != nil {
			return fmt.Errorf("clear players of game %d: %w", id, err)
		}
		if err := writePlayers(ctx, tx, id, players); err != nil {
			return fmt.Errorf("create players of game %d: %w", id, err)
		}
		return nil
	})
}

// AddPlayers inserts or updates the given seats, leaving other seats alone.
func (s *Store) AddPlayers(ctx context.Context, id int64, players []models.PlayerRecord) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := ensureGame(ctx, tx, id); err != nil {
			return fmt.Errorf("ensure game %d: %w", id, err)
		}
		if err := writePlayers(ctx, tx, id, players); err != nil {
			return fmt.Errorf("add players to game %d: %w", id, err)
		}
		return nil
	})
}

// UpdateGameStatus stores the status and, when non-empty, the result.
func (s *Store) UpdateGameStatus(ctx context.Context, id int64, status, result string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO games (id, status, result) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			result = CASE WHEN EXCLUDED.result = '' THEN games.result ELSE EXCLUDED.result END,
			updated_at = now()`, id, status, result)
	if err != nil {
		return fmt.Errorf("update status of game %d: %w", id, err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hendrikreh/chessmate/internal/chessengine"
	"github.com/hendrikreh/chessmate/internal/errs"
	"github.com/hendrikreh/chessmate/internal/fen"
	"github.com/hendrikreh/chessmate/internal/metadata"
	"github.com/hendrikreh/chessmate/internal/pgn"
	"github.com/hendrikreh/chessmate/internal/queryfilter"
)

// Repository is the C6 persistence boundary: games/positions/jobs live
// behind it, fronted by Pool.
type Repository struct {
	pool *Pool
}

// New wraps an already-open Pool.
func New(pool *Pool) *Repository {
	return &Repository{pool: pool}
}

// Stats exposes the underlying pool's occupancy snapshot.
func (r *Repository) Stats() Stats { return r.pool.Stats() }

// JobStatus is the embedding job lifecycle state (spec §3).
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job is a claimed (or otherwise read) embedding_jobs row.
type Job struct {
	ID         string
	PositionID string
	FEN        string
	Status     JobStatus
	Attempts   int
	LastError  string
}

// GameSummary is a search_games result row (spec §4.6).
type GameSummary struct {
	ID          string
	White       string
	Black       string
	Event       string
	Result      string
	OpeningName string
	OpeningSlug string
	ECOCode     string
}

// InsertGame persists metadata, the raw PGN, and every replayed position,
// enqueueing one Pending embedding job per position, all inside a single
// transaction (spec §4.6). Nothing is visible to other connections until
// commit; any failure rolls the whole insert back.
func (r *Repository) InsertGame(ctx context.Context, md metadata.GameMetadata, pgnText string, moves []pgn.Move) (gameID string, nPositions int, err error) {
	plies, err := chessengine.ReplayGame(moves)
	if err != nil {
		return "", 0, err
	}

	txErr := r.pool.withConnection(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		defer tx.Rollback()

		whiteID, err := upsertPlayer(ctx, tx, md.White.Name, md.White.FideID)
		if err != nil {
			return err
		}
		blackID, err := upsertPlayer(ctx, tx, md.Black.Name, md.Black.FideID)
		if err != nil {
			return err
		}

		gameID = uuid.NewString()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO games (id, white_player_id, black_player_id, event, site, round,
				played_on, eco_code, result, white_rating, black_rating, opening_name, opening_slug, pgn)
			VALUES ($1,$2,$3,$4,$5,$6, NULLIF($7,'')::date, $8,$9,$10,$11,$12,$13,$14)`,
			gameID, whiteID, blackID, md.Event, md.Site, md.Round,
			md.Date, md.ECOCode, md.Result, md.White.Rating, md.Black.Rating, md.OpeningName, md.OpeningSlug, pgnText,
		)
		if err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}

		for i, ply := range plies {
			positionID := uuid.NewString()
			moveNumber := (i / 2) + 1
			sideToMove := "b"
			if i%2 == 0 {
				sideToMove = "w"
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO positions (id, game_id, ply, move_number, side_to_move, fen, san)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				positionID, gameID, i+1, moveNumber, sideToMove, ply.FEN, ply.SAN,
			)
			if err != nil {
				return errs.DbError(errs.Sanitize(err.Error()), err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO embedding_jobs (id, position_id, fen, status)
				VALUES ($1,$2,$3,'pending')`,
				uuid.NewString(), positionID, ply.FEN,
			)
			if err != nil {
				return errs.DbError(errs.Sanitize(err.Error()), err)
			}
		}

		if err := tx.Commit(); err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		nPositions = len(plies)
		return nil
	})
	if txErr != nil {
		return "", 0, txErr
	}
	return gameID, nPositions, nil
}

func upsertPlayer(ctx context.Context, tx *sql.Tx, name, fideID string) (string, error) {
	var id string
	if fideID != "" {
		err := tx.QueryRowContext(ctx, `SELECT id FROM players WHERE fide_id = $1`, fideID).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return "", errs.DbError(errs.Sanitize(err.Error()), err)
		}
	} else {
		err := tx.QueryRowContext(ctx, `SELECT id FROM players WHERE fide_id IS NULL AND name = $1`, name).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return "", errs.DbError(errs.Sanitize(err.Error()), err)
		}
	}

	id = uuid.NewString()
	var fideArg any
	if fideID != "" {
		fideArg = fideID
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO players (id, name, fide_id) VALUES ($1,$2,$3)`, id, name, fideArg)
	if err != nil {
		return "", errs.DbError(errs.Sanitize(err.Error()), err)
	}
	return id, nil
}

// SearchGames dispatches filters and rating to queryfilter.Build and
// executes the resulting read-only query (spec §4.6).
func (r *Repository) SearchGames(ctx context.Context, filters []queryfilter.Filter, rating queryfilter.RatingFilter, limit int) ([]GameSummary, error) {
	conditions, params, next := queryfilter.Build(filters, rating, 1)

	query := `
		SELECT g.id, w.name, b.name, g.event, g.result, g.opening_name, g.opening_slug, g.eco_code
		FROM games g
		JOIN players w ON w.id = g.white_player_id
		JOIN players b ON b.id = g.black_player_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY g.id LIMIT $%d", next)
	params = append(params, limit)

	var out []GameSummary
	err := r.pool.withConnection(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, params...)
		if err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		defer rows.Close()
		for rows.Next() {
			var g GameSummary
			if err := rows.Scan(&g.ID, &g.White, &g.Black, &g.Event, &g.Result, &g.OpeningName, &g.OpeningSlug, &g.ECOCode); err != nil {
				return errs.DbError(errs.Sanitize(err.Error()), err)
			}
			out = append(out, g)
		}
		if err := rows.Err(); err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PendingEmbeddingJobCount reports how many jobs are awaiting a claim.
func (r *Repository) PendingEmbeddingJobCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.withConnection(ctx, func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, `SELECT count(*) FROM embedding_jobs WHERE status = 'pending'`)
		if err := row.Scan(&count); err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		return nil
	})
	return count, err
}

// ClaimPendingJobs atomically selects up to limit Pending jobs ordered by
// enqueued_at, transitions them to InProgress, and returns them (spec
// §4.6). FOR UPDATE SKIP LOCKED keeps two concurrent workers from ever
// claiming the same row.
func (r *Repository) ClaimPendingJobs(ctx context.Context, limit int) ([]Job, error) {
	var jobs []Job
	err := r.pool.withConnection(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		defer tx.Rollback()

		rows, err := tx.QueryContext(ctx, `
			SELECT id, position_id, fen, attempts
			FROM embedding_jobs
			WHERE status = 'pending'
			ORDER BY enqueued_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED`, limit)
		if err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		var claimed []Job
		for rows.Next() {
			var j Job
			if err := rows.Scan(&j.ID, &j.PositionID, &j.FEN, &j.Attempts); err != nil {
				rows.Close()
				return errs.DbError(errs.Sanitize(err.Error()), err)
			}
			claimed = append(claimed, j)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		rows.Close()

		for i := range claimed {
			_, err := tx.ExecContext(ctx, `
				UPDATE embedding_jobs
				SET status = 'in_progress', attempts = attempts + 1, started_at = $2
				WHERE id = $1`,
				claimed[i].ID, time.Now().UTC())
			if err != nil {
				return errs.DbError(errs.Sanitize(err.Error()), err)
			}
			claimed[i].Attempts++
			claimed[i].Status = StatusInProgress
		}

		if err := tx.Commit(); err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		jobs = claimed
		return nil
	})
	return jobs, err
}

// MarkJobCompleted transitions job to Completed, recording the vector's
// assigned ID against both the job and its position. Idempotent: marking
// an already-completed job again is a no-op, not an error.
func (r *Repository) MarkJobCompleted(ctx context.Context, jobID, vectorID string) error {
	return r.pool.withConnection(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		defer tx.Rollback()

		var positionID string
		err = tx.QueryRowContext(ctx, `SELECT position_id FROM embedding_jobs WHERE id = $1`, jobID).Scan(&positionID)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE embedding_jobs SET status = 'completed', completed_at = $2
			WHERE id = $1 AND status != 'completed'`, jobID, time.Now().UTC())
		if err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE positions SET vector_id = $2 WHERE id = $1`, positionID, vectorID)
		if err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		if err := tx.Commit(); err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		return nil
	})
}

// MarkJobFailed transitions job to Failed with a sanitized message.
// Idempotent like MarkJobCompleted.
func (r *Repository) MarkJobFailed(ctx context.Context, jobID, message string) error {
	sanitized := errs.Sanitize(message)
	return r.pool.withConnection(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			UPDATE embedding_jobs SET status = 'failed', last_error = $2, completed_at = $3
			WHERE id = $1 AND status != 'failed'`, jobID, sanitized, time.Now().UTC())
		if err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		return nil
	})
}

// VectorPayload is the denormalized payload a vector store point carries
// alongside its embedding (spec §4.9's payload_schema).
type VectorPayload struct {
	GameID      string
	FEN         string
	White       string
	Black       string
	OpeningSlug string
}

// VectorPayloadForJob reads the denormalized fields a point payload needs,
// joining from the job's position back to its game and players.
func (r *Repository) VectorPayloadForJob(ctx context.Context, jobID string) (VectorPayload, error) {
	var p VectorPayload
	err := r.pool.withConnection(ctx, func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, `
			SELECT g.id, p.fen, w.name, b.name, g.opening_slug
			FROM embedding_jobs j
			JOIN positions p ON p.id = j.position_id
			JOIN games g ON g.id = p.game_id
			JOIN players w ON w.id = g.white_player_id
			JOIN players b ON b.id = g.black_player_id
			WHERE j.id = $1`, jobID)
		if err := row.Scan(&p.GameID, &p.FEN, &p.White, &p.Black, &p.OpeningSlug); err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		return nil
	})
	return p, err
}

// FetchGamesWithPGN returns the raw PGN text for the given game IDs, used
// by re-ingestion / backfill tooling.
func (r *Repository) FetchGamesWithPGN(ctx context.Context, gameIDs []string) (map[string]string, error) {
	if len(gameIDs) == 0 {
		return map[string]string{}, nil
	}
	placeholders := make([]string, len(gameIDs))
	args := make([]any, len(gameIDs))
	for i, id := range gameIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, pgn FROM games WHERE id IN (%s)`, strings.Join(placeholders, ","))

	out := map[string]string{}
	err := r.pool.withConnection(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return errs.DbError(errs.Sanitize(err.Error()), err)
		}
		defer rows.Close()
		for rows.Next() {
			var id, pgnText string
			if err := rows.Scan(&id, &pgnText); err != nil {
				return errs.DbError(errs.Sanitize(err.Error()), err)
			}
			out[id] = pgnText
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// fen.Hash is used by callers (the worker) to derive a stable vector ID
// from a position's FEN before upserting; kept here as a thin re-export so
// repository callers don't need a second import for one function.
var HashFEN = fen.Hash

// Package memory persists conversation turns and derives per-user
// conversational context from them.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// recentTurnWindow is how many turns feed topic and preference
	// queries.
	recentTurnWindow = 10

	queryTimeout = 5 * time.Second
)

// Turn is one recorded exchange.
type Turn struct {
	ID        uuid.UUID
	UserID    string
	Question  string
	Answer    string
	Themes    []string
	CreatedAt time.Time
}

// Store persists turns in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a conversation memory store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// RecordTurn appends one exchange to the user's history.
func (s *Store) RecordTurn(ctx context.Context, userID, question, answer string, themes []string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if themes == nil {
		themes = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversation_turns (id, user_id, question, answer, themes)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), userID, question, answer, themes)
	if err != nil {
		return fmt.Errorf("recording turn for user %s: %w", userID, err)
	}
	return nil
}

// RecentTopics returns the distinct themes of the user's latest turns,
// most recent first, capped at limit. Unknown users get an empty list.
func (s *Store) RecentTopics(ctx context.Context, userID string, limit int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = recentTurnWindow
	}

	rows, err := s.pool.Query(ctx, `
		SELECT themes
		FROM conversation_turns
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, recentTurnWindow)
	if err != nil {
		return nil, fmt.Errorf("querying recent topics for user %s: %w", userID, err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	topics := make([]string, 0, limit)
	for rows.Next() {
		var themes []string
		if err := rows.Scan(&themes); err != nil {
			return nil, fmt.Errorf("scanning turn themes: %w", err)
		}
		for _, theme := range themes {
			if seen[theme] || len(topics) == limit {
				continue
			}
			seen[theme] = true
			topics = append(topics, theme)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent topics: %w", err)
	}
	return topics, nil
}

// PreferredTheme returns the theme the user returns to most often within
// the recent window. Empty string when the user has no themed history.
func (s *Store) PreferredTheme(ctx context.Context, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var theme string
	err := s.pool.QueryRow(ctx, `
		SELECT t.theme
		FROM (
			SELECT unnest(themes) AS theme
			FROM conversation_turns
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) t
		GROUP BY t.theme
		ORDER BY count(*) DESC, t.theme ASC
		LIMIT 1`,
		userID, recentTurnWindow).Scan(&theme)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("querying preferred theme for user %s: %w", userID, err)
	}
	return theme, nil
}

// History returns the user's latest turns, most recent first.
func (s *Store) History(ctx context.Context, userID string, limit int) ([]Turn, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = recentTurnWindow
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, question, answer, themes, created_at
		FROM conversation_turns
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history for user %s: %w", userID, err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.UserID, &t.Question, &t.Answer, &t.Themes, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return turns, nil
}

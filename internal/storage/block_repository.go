package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ocean-haven/booking/internal/storage/models"
)

// BlockRepository provides data access for manual availability blocks.
type BlockRepository struct {
	BaseRepository
}

// NewBlockRepository creates a new block repository.
func NewBlockRepository(db *DB) *BlockRepository {
	return &BlockRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new block.
func (r *BlockRepository) Create(ctx context.Context, b *models.Block) error {
	b.ID = GenerateID()
	b.CreatedAt = r.Now()
	b.From = b.From.UTC()
	b.To = b.To.UTC()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO blocks (id, from_ts, to_ts, note, created_at) VALUES (?, ?, ?, ?, ?)
	`, b.ID, b.From, b.To, b.Note, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting block: %w", err)
	}

	return nil
}

// List retrieves all blocks, latest start first.
func (r *BlockRepository) List(ctx context.Context) ([]models.Block, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, from_ts, to_ts, note, created_at FROM blocks ORDER BY from_ts DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying blocks: %w", err)
	}
	defer rows.Close()

	blocks := []models.Block{}
	for rows.Next() {
		var b models.Block
		if err := rows.Scan(&b.ID, &b.From, &b.To, &b.Note, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning block: %w", err)
		}
		blocks = append(blocks, b)
	}

	return blocks, rows.Err()
}

// DeleteOverlapping removes every block that intersects [from, to] and
// returns how many were removed.
func (r *BlockRepository) DeleteOverlapping(ctx context.Context, from, to time.Time) (int64, error) {
	result, err := r.DB().ExecContext(ctx,
		`DELETE FROM blocks WHERE NOT (to_ts < ? OR from_ts > ?)`, from.UTC(), to.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting blocks: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted blocks: %w", err)
	}
	return n, nil
}

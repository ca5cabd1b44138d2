package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// snapshotRow is the single-row table the Postgres store writes. Keeping one
// row per engine makes restore trivial and history a database concern.
type snapshotRow struct {
	bun.BaseModel `bun:"table:economy_snapshots"`

	ID      int64     `bun:"id,pk"`
	TakenAt time.Time `bun:"taken_at,notnull"`
	Data    []byte    `bun:"data,type:jsonb,notnull"`
}

// PGStore persists snapshots in Postgres through bun.
type PGStore struct {
	db *bun.DB
}

func NewPGStore(ctx context.Context, db *bun.DB) (*PGStore, error) {
	if _, err := db.NewCreateTable().
		Model((*snapshotRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}
	return &PGStore{db: db}, nil
}

func (p *PGStore) Save(ctx context.Context, state State) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	row := &snapshotRow{ID: 1, TakenAt: state.TakenAt, Data: data}
	if _, err := p.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("taken_at = EXCLUDED.taken_at").
		Set("data = EXCLUDED.data").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (p *PGStore) Load(ctx context.Context) (State, error) {
	row := new(snapshotRow)
	err := p.db.NewSelect().
		Model(row).
		Where("id = ?", 1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return State{}, ErrNotFound
		}
		return State{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return Decode(row.Data)
}

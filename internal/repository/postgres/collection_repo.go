package postgres

import (
	"context"

	"github.com/and161185/taskdex/internal/errs"
	"github.com/and161185/taskdex/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// CollectionRepo implements CollectionRepository using PostgreSQL.
type CollectionRepo struct{ db *DB }

// NewCollectionRepo constructs a collection repository.
func NewCollectionRepo(db *DB) *CollectionRepo { return &CollectionRepo{db: db} }

const insertItem = `
INSERT INTO collected_items (id, user_id, external_id, name, image_ref, rarity, container_type, acquired_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func itemArgs(it *model.CollectibleItem) []any {
	return []any{it.ID, it.UserID, it.ExternalID, it.Name, it.ImageRef, string(it.Rarity), it.ContainerType, it.AcquiredAt}
}

// Append inserts an item row.
func (r *CollectionRepo) Append(ctx context.Context, it *model.CollectibleItem) error {
	_, err := r.db.Pool.Exec(ctx, insertItem, itemArgs(it)...)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// AppendWithSpend inserts the item and saves the stats in one transaction.
func (r *CollectionRepo) AppendWithSpend(
	ctx context.Context, it *model.CollectibleItem, next model.ProgressionStats,
) (saved model.ProgressionStats, err error) {
	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertItem, itemArgs(it)...); err != nil {
			if isUniqueViolation(err) {
				return errs.ErrAlreadyExists
			}
			return err
		}
		var err error
		saved, err = saveStats(ctx, tx, next)
		return err
	})
	if err != nil {
		return model.ProgressionStats{}, err
	}
	return saved, nil
}

// List returns items newest first.
func (r *CollectionRepo) List(ctx context.Context, userID uuid.UUID) ([]model.CollectibleItem, error) {
	const q = `
SELECT id, user_id, external_id, name, image_ref, rarity, container_type, acquired_at
FROM collected_items
WHERE user_id=$1
ORDER BY acquired_at DESC, id`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CollectibleItem
	for rows.Next() {
		var (
			it  model.CollectibleItem
			rar string
		)
		if err = rows.Scan(&it.ID, &it.UserID, &it.ExternalID, &it.Name, &it.ImageRef, &rar, &it.ContainerType, &it.AcquiredAt); err != nil {
			return nil, err
		}
		it.Rarity = model.Rarity(rar)
		out = append(out, it)
	}
	return out, rows.Err()
}

// Summary counts items per rarity and distinct external ids.
func (r *CollectionRepo) Summary(ctx context.Context, userID uuid.UUID) (model.CollectionSummary, error) {
	const byRarity = `SELECT rarity, COUNT(*) FROM collected_items WHERE user_id=$1 GROUP BY rarity`
	const distinct = `SELECT COUNT(DISTINCT external_id) FROM collected_items WHERE user_id=$1`

	sum := model.CollectionSummary{ByRarity: make(map[model.Rarity]int, 3)}
	for _, rar := range model.Rarities() {
		sum.ByRarity[rar] = 0
	}

	rows, err := r.db.Pool.Query(ctx, byRarity, userID)
	if err != nil {
		return model.CollectionSummary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rar string
			n   int64
		)
		if err = rows.Scan(&rar, &n); err != nil {
			return model.CollectionSummary{}, err
		}
		sum.ByRarity[model.Rarity(rar)] = int(n)
		sum.Total += int(n)
	}
	if err = rows.Err(); err != nil {
		return model.CollectionSummary{}, err
	}

	var d int64
	if err = r.db.Pool.QueryRow(ctx, distinct, userID).Scan(&d); err != nil {
		return model.CollectionSummary{}, err
	}
	sum.Distinct = int(d)
	return sum, nil
}

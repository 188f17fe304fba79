package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/id"
	"pharmapos/internal/domain/inventory"
)

const batchesTable = "inv_batches"

var batchColumns = []string{
	"id", "product_id", "branch_id", "batch_no",
	"quantity", "selling_price", "expire_date",
	"created_at", "updated_at",
}

// BatchRepo implements inventory.Repository.
type BatchRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewBatchRepo creates a new batch repository.
func NewBatchRepo(txManager *TxManager) *BatchRepo {
	return &BatchRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *BatchRepo) Create(ctx context.Context, batch *inventory.Batch) error {
	q := r.builder.Insert(batchesTable).
		Columns(batchColumns...).
		Values(
			batch.ID, batch.ProductID, batch.BranchID, batch.BatchNo,
			batch.Quantity, batch.SellingPrice, batch.ExpireDate,
			batch.CreatedAt, batch.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("batch", "batch_no", batch.BatchNo)
		}
		return fmt.Errorf("insert batch: %w", err)
	}

	return nil
}

func (r *BatchRepo) GetByID(ctx context.Context, batchID id.ID) (inventory.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"id": batchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return inventory.Batch{}, fmt.Errorf("build select: %w", err)
	}

	var batch inventory.Batch
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &batch, sql, args...); err != nil {
		if isNoRows(err) {
			return inventory.Batch{}, apperror.NewNotFound("batch", batchID)
		}
		return inventory.Batch{}, fmt.Errorf("get batch: %w", err)
	}

	return batch, nil
}

// ListForAllocation locks all non-empty batch rows of a product in a branch
// for the caller's transaction. The lock serializes concurrent sales of the
// same product so allocation and decrement see consistent quantities.
func (r *BatchRepo) ListForAllocation(ctx context.Context, productID, branchID id.ID) ([]inventory.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"product_id": productID, "branch_id": branchID}).
		Where(squirrel.Gt{"quantity": 0}).
		OrderBy("created_at", "id").
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var batches []inventory.Batch
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("list batches for allocation: %w", err)
	}

	return batches, nil
}

func (r *BatchRepo) List(ctx context.Context, filter inventory.BatchFilter) ([]inventory.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"branch_id": filter.BranchID}).
		OrderBy("expire_date ASC NULLS LAST", "created_at", "id")

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.ExcludeEmpty {
		q = q.Where(squirrel.Gt{"quantity": 0})
	}
	if filter.ExcludeExpired {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"expire_date": nil},
			squirrel.GtOrEq{"expire_date": time.Now().UTC()},
		})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var batches []inventory.Batch
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	return batches, nil
}

// AdjustQuantity applies a signed delta to a batch's quantity. Negative
// deltas carry the guard in the UPDATE predicate: if stock changed between
// selection and decrement, the update matches zero rows and the operation
// fails instead of driving the quantity negative.
func (r *BatchRepo) AdjustQuantity(ctx context.Context, batchID id.ID, delta int64) error {
	q := r.builder.Update(batchesTable).
		Set("quantity", squirrel.Expr("quantity + ?", delta)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": batchID})

	if delta < 0 {
		q = q.Where(squirrel.GtOrEq{"quantity": -delta})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("adjust batch quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewBatchConflict(batchID.String())
	}

	return nil
}

func (r *BatchRepo) Availability(ctx context.Context, productID, branchID id.ID) (int64, error) {
	q := r.builder.Select("COALESCE(SUM(quantity), 0)").
		From(batchesTable).
		Where(squirrel.Eq{"product_id": productID, "branch_id": branchID}).
		Where(squirrel.Gt{"quantity": 0}).
		Where(squirrel.Or{
			squirrel.Eq{"expire_date": nil},
			squirrel.GtOrEq{"expire_date": time.Now().UTC()},
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build select: %w", err)
	}

	var total int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum availability: %w", err)
	}

	return total, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/id"
	"pharmapos/internal/domain/refunds"
)

const (
	refundsTable     = "refunds"
	refundLinesTable = "refund_lines"
)

var refundColumns = []string{
	"id", "sale_id", "branch_id", "reason", "total_refunded",
	"created_at", "created_by",
}

var refundLineColumns = []string{
	"id", "refund_id", "sale_line_id", "product_id", "batch_id",
	"quantity", "unit_price", "amount", "reason",
}

// RefundRepo implements refunds.Repository.
type RefundRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewRefundRepo creates a new refund repository.
func NewRefundRepo(txManager *TxManager) *RefundRepo {
	return &RefundRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *RefundRepo) Create(ctx context.Context, refund *refunds.Refund) error {
	q := r.builder.Insert(refundsTable).
		Columns(refundColumns...).
		Values(
			refund.ID, refund.SaleID, refund.BranchID, refund.Reason,
			refund.TotalRefunded, refund.CreatedAt, refund.CreatedBy,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert refund: %w", err)
	}

	return nil
}

func (r *RefundRepo) SaveLines(ctx context.Context, lines []refunds.RefundLine) error {
	if len(lines) == 0 {
		return nil
	}

	q := r.builder.Insert(refundLinesTable).Columns(refundLineColumns...)
	for _, l := range lines {
		q = q.Values(
			l.ID, l.RefundID, l.SaleLineID, l.ProductID, l.BatchID,
			l.Quantity, l.UnitPrice, l.Amount, l.Reason,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert refund lines: %w", err)
	}

	return nil
}

func (r *RefundRepo) GetByID(ctx context.Context, refundID id.ID) (*refunds.Refund, error) {
	q := r.builder.Select(refundColumns...).
		From(refundsTable).
		Where(squirrel.Eq{"id": refundID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var refund refunds.Refund
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &refund, sql, args...); err != nil {
		if isNoRows(err) {
			return nil, apperror.NewNotFound("refund", refundID)
		}
		return nil, fmt.Errorf("get refund: %w", err)
	}

	return &refund, nil
}

func (r *RefundRepo) GetLines(ctx context.Context, refundID id.ID) ([]refunds.RefundLine, error) {
	q := r.builder.Select(refundLineColumns...).
		From(refundLinesTable).
		Where(squirrel.Eq{"refund_id": refundID}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var lines []refunds.RefundLine
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get refund lines: %w", err)
	}

	return lines, nil
}

func (r *RefundRepo) ListBySale(ctx context.Context, saleID id.ID) ([]*refunds.Refund, error) {
	q := r.builder.Select(refundColumns...).
		From(refundsTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var items []*refunds.Refund
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list refunds by sale: %w", err)
	}

	return items, nil
}

// RefundedQuantities aggregates already refunded quantity per sale line.
// Runs inside the refund transaction, after the sale row is locked, so the
// numbers cannot move under the caller.
func (r *RefundRepo) RefundedQuantities(ctx context.Context, saleID id.ID) (map[id.ID]int64, error) {
	q := r.builder.Select("rl.sale_line_id", "SUM(rl.quantity) AS quantity").
		From(refundLinesTable + " rl").
		Join(refundsTable + " r ON r.id = rl.refund_id").
		Where(squirrel.Eq{"r.sale_id": saleID}).
		GroupBy("rl.sale_line_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query refunded quantities: %w", err)
	}
	defer rows.Close()

	result := make(map[id.ID]int64)
	for rows.Next() {
		var lineID id.ID
		var qty int64
		if err := rows.Scan(&lineID, &qty); err != nil {
			return nil, fmt.Errorf("scan refunded quantity: %w", err)
		}
		result[lineID] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refunded quantities: %w", err)
	}

	return result, nil
}

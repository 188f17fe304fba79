package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/id"
	"pharmapos/internal/domain/catalog"
)

const (
	productsTable = "products"
	branchesTable = "branches"
)

// CatalogRepo implements catalog.Repository.
type CatalogRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewCatalogRepo creates a new catalog repository.
func NewCatalogRepo(txManager *TxManager) *CatalogRepo {
	return &CatalogRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *CatalogRepo) GetProduct(ctx context.Context, productID id.ID) (catalog.Product, error) {
	q := r.builder.Select("id", "name", "branch_id", "unit", "barcode").
		From(productsTable).
		Where(squirrel.Eq{"id": productID})

	sql, args, err := q.ToSql()
	if err != nil {
		return catalog.Product{}, fmt.Errorf("build select: %w", err)
	}

	var product catalog.Product
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &product, sql, args...); err != nil {
		if isNoRows(err) {
			return catalog.Product{}, apperror.NewNotFound("product", productID)
		}
		return catalog.Product{}, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func (r *CatalogRepo) GetBranch(ctx context.Context, branchID id.ID) (catalog.Branch, error) {
	q := r.builder.Select("id", "name").
		From(branchesTable).
		Where(squirrel.Eq{"id": branchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return catalog.Branch{}, fmt.Errorf("build select: %w", err)
	}

	var branch catalog.Branch
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &branch, sql, args...); err != nil {
		if isNoRows(err) {
			return catalog.Branch{}, apperror.NewNotFound("branch", branchID)
		}
		return catalog.Branch{}, fmt.Errorf("get branch: %w", err)
	}

	return branch, nil
}

func (r *CatalogRepo) CreateProduct(ctx context.Context, product catalog.Product) error {
	q := r.builder.Insert(productsTable).
		Columns("id", "name", "branch_id", "unit", "barcode").
		Values(product.ID, product.Name, product.BranchID, product.Unit, product.Barcode)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("product", "barcode", product.Barcode)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

func (r *CatalogRepo) CreateBranch(ctx context.Context, branch catalog.Branch) error {
	q := r.builder.Insert(branchesTable).
		Columns("id", "name").
		Values(branch.ID, branch.Name)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("branch", "name", branch.Name)
		}
		return fmt.Errorf("insert branch: %w", err)
	}

	return nil
}

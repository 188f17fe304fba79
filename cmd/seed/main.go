// Package main seeds a development database with a branch, products, and
// batches, and prints an operator token for exercising the API.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"pharmapos/internal/config"
	"pharmapos/internal/core/id"
	"pharmapos/internal/core/types"
	"pharmapos/internal/domain/audit"
	"pharmapos/internal/domain/auth"
	"pharmapos/internal/domain/catalog"
	"pharmapos/internal/domain/events"
	"pharmapos/internal/domain/inventory"
	"pharmapos/internal/domain/ledger"
	"pharmapos/internal/infrastructure/storage/postgres"
	"pharmapos/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: true})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	catalogRepo := postgres.NewCatalogRepo(txManager)
	batchRepo := postgres.NewBatchRepo(txManager)
	movementRepo := postgres.NewMovementRepo(txManager)
	ledgerService := ledger.NewService(movementRepo)
	inventoryService := inventory.NewService(
		batchRepo, catalogRepo, ledgerService, txManager,
		events.NopPublisher{}, audit.NopRecorder{},
	)

	branch := catalog.Branch{ID: id.New(), Name: "Main Branch"}
	if err := catalogRepo.CreateBranch(ctx, branch); err != nil {
		log.Fatalw("failed to create branch", "error", err)
	}
	log.Infow("branch created", "branch_id", branch.ID, "name", branch.Name)

	products := []catalog.Product{
		{ID: id.New(), Name: "Paracetamol 500mg", BranchID: branch.ID, Unit: "tablet", Barcode: "8901000000011"},
		{ID: id.New(), Name: "Amoxicillin 250mg", BranchID: branch.ID, Unit: "capsule", Barcode: "8901000000028"},
		{ID: id.New(), Name: "Vitamin C 1000mg", BranchID: branch.ID, Unit: "tablet", Barcode: "8901000000035"},
	}
	for _, p := range products {
		if err := catalogRepo.CreateProduct(ctx, p); err != nil {
			log.Fatalw("failed to create product", "error", err, "name", p.Name)
		}
		log.Infow("product created", "product_id", p.ID, "name", p.Name)
	}

	expiry := func(months int) *time.Time {
		t := time.Now().UTC().AddDate(0, months, 0)
		return &t
	}

	seedBatches := []inventory.ReceiveBatchInput{
		{BranchID: branch.ID, ProductID: products[0].ID, BatchNo: "PCM-2401", Quantity: 200, SellingPrice: types.NewMinorUnitsFromFloat64(5.00), ExpireDate: expiry(3)},
		{BranchID: branch.ID, ProductID: products[0].ID, BatchNo: "PCM-2402", Quantity: 500, SellingPrice: types.NewMinorUnitsFromFloat64(5.50), ExpireDate: expiry(9)},
		{BranchID: branch.ID, ProductID: products[1].ID, BatchNo: "AMX-2401", Quantity: 150, SellingPrice: types.NewMinorUnitsFromFloat64(12.00), ExpireDate: expiry(6)},
		{BranchID: branch.ID, ProductID: products[2].ID, BatchNo: "VTC-2401", Quantity: 300, SellingPrice: types.NewMinorUnitsFromFloat64(8.25), ExpireDate: nil},
	}
	for _, in := range seedBatches {
		batch, err := inventoryService.ReceiveBatch(ctx, in)
		if err != nil {
			log.Fatalw("failed to receive batch", "error", err, "batch_no", in.BatchNo)
		}
		log.Infow("batch received", "batch_id", batch.ID, "batch_no", batch.BatchNo, "quantity", batch.Quantity)
	}

	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret))
	token, expiresAt, err := jwtService.GenerateAccessToken("seed-operator", "Seed Operator", branch.ID)
	if err != nil {
		log.Fatalw("failed to generate token", "error", err)
	}

	fmt.Println()
	fmt.Println("seed complete")
	fmt.Printf("branch id: %s\n", branch.ID)
	fmt.Printf("operator token (expires %s):\n%s\n", expiresAt.Format(time.RFC3339), token)
}

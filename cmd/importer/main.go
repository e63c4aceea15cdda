// Package main provides a CLI tool for bulk-importing legacy invoices.
//
// Input is a JSON array of records:
//
//	[
//	  {
//	    "number": "997",
//	    "date": "2023-11-02",
//	    "seller": {"name": "...", "street": "...", "city": "...", "postalCode": "...", "taxId": "..."},
//	    "buyer":  {"name": "...", "street": "...", "city": "...", "postalCode": "..."},
//	    "lines":  [{"description": "...", "amount": "1200.00", "currency": "EUR"}],
//	    "bankTransfer": {"bankName": "...", "accountNumber": "..."}
//	  }
//	]
//
// Records run through the same import path the API uses: numbers are checked
// for collisions and the sequence advances past the highest imported number.
// Already-imported numbers are skipped, so re-running the tool on the same
// file is safe.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"fakturo/internal/config"
	"fakturo/internal/core/apperror"
	"fakturo/internal/core/types"
	"fakturo/internal/domain/invoice"
	"fakturo/internal/infrastructure/storage/postgres"
	"fakturo/internal/infrastructure/storage/postgres/invoice_repo"
	"fakturo/pkg/logger"
)

type addressRecord struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	TaxID      string `json:"taxId"`
}

type lineRecord struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

type bankRecord struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
}

type invoiceRecord struct {
	Number       string        `json:"number"`
	Date         string        `json:"date"`
	Seller       addressRecord `json:"seller"`
	Buyer        addressRecord `json:"buyer"`
	Lines        []lineRecord  `json:"lines"`
	BankTransfer bankRecord    `json:"bankTransfer"`
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if len(os.Args) < 2 {
		log.Fatal("usage: importer <invoices.json>")
	}

	cfg, err := config.Load(os.Getenv("FAKTURO_CONFIG"))
	if err != nil {
		log.Fatalw("failed to load configuration", "error", err)
	}

	records, err := loadRecords(os.Args[1])
	if err != nil {
		log.Fatalw("failed to read input file", "error", err)
	}
	log.Infow("input file parsed", "records", len(records))

	ctx := context.Background()

	if err := postgres.Migrate(ctx, cfg.Database.DSN); err != nil {
		log.Fatalw("failed to apply migrations", "error", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Database.PoolConfig())
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool, postgres.SerializableTxOptions())
	revisionRepo, err := invoice_repo.NewRevisionRepo(txManager)
	if err != nil {
		log.Fatalw("failed to initialize revision archive", "error", err)
	}
	service := invoice.NewService(
		invoice_repo.NewInvoiceRepo(txManager),
		invoice_repo.NewSequenceRepo(txManager),
		revisionRepo,
		txManager,
		cfg.Invoicing.StartNumber,
	)

	imported, skipped := 0, 0
	for i, rec := range records {
		content, err := rec.toContent()
		if err != nil {
			log.Fatalw("invalid record", "index", i, "number", rec.Number, "error", err)
		}

		if _, err := service.Import(ctx, content, rec.Number); err != nil {
			if apperror.IsDuplicate(err) {
				log.Warnw("number already taken, skipping", "number", rec.Number)
				skipped++
				continue
			}
			log.Fatalw("import failed", "number", rec.Number, "error", err)
		}
		imported++
	}

	log.Infow("import completed", "imported", imported, "skipped", skipped)
}

func loadRecords(path string) ([]invoiceRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []invoiceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

func (r invoiceRecord) toContent() (invoice.Content, error) {
	date, err := time.Parse(time.DateOnly, r.Date)
	if err != nil {
		return invoice.Content{}, fmt.Errorf("date %q: want YYYY-MM-DD: %w", r.Date, err)
	}

	content := invoice.Content{
		Date:   date,
		Seller: r.Seller.toAddress(),
		Buyer:  r.Buyer.toAddress(),
		BankTransfer: invoice.BankTransferInfo{
			BankName:      r.BankTransfer.BankName,
			AccountNumber: r.BankTransfer.AccountNumber,
		},
	}

	for i, line := range r.Lines {
		amount, err := types.ParseAmount(line.Amount, line.Currency)
		if err != nil {
			return invoice.Content{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		content.AddLine(line.Description, amount)
	}

	return content, nil
}

func (a addressRecord) toAddress() invoice.Address {
	return invoice.Address{
		Name:       a.Name,
		Street:     a.Street,
		City:       a.City,
		PostalCode: a.PostalCode,
		TaxID:      a.TaxID,
	}
}

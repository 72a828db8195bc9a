package mirror

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/farm-ledger/internal/domain"
	"github.com/google/uuid"
)

const transactionsTable = "farm_transactions"

// TransactionRow is the BigQuery row of a confirmed transaction.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Process         string     `bigquery:"process"`          // REQUIRED
	Category        string     `bigquery:"category"`         // REQUIRED

	Item bigquery.NullString `bigquery:"item"` // NULLABLE
	Note bigquery.NullString `bigquery:"note"` // NULLABLE

	Amount       *big.Rat `bigquery:"amount"`        // REQUIRED NUMERIC, unsigned
	SignedAmount *big.Rat `bigquery:"signed_amount"` // REQUIRED NUMERIC
	BalanceAfter *big.Rat `bigquery:"balance_after"` // REQUIRED NUMERIC

	Actor bigquery.NullString `bigquery:"actor"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// Save implements bigquery.ValueSaver so each row carries its insert ID for
// best-effort de-duplication of streaming retries.
func (r *TransactionRow) Save() (map[string]bigquery.Value, string, error) {
	row, _, err := (&bigquery.StructSaver{Struct: r}).Save()
	return row, r.TransactionID, err
}

// NewTransactionRow maps a confirmed transaction to its BigQuery row.
func NewTransactionRow(tx domain.Transaction, now time.Time) *TransactionRow {
	return &TransactionRow{
		TransactionID:   uuid.New().String(),
		TransactionDate: tx.Date,
		Process:         string(tx.Process),
		Category:        string(tx.Category),
		Item:            nullString(tx.Item),
		Note:            nullString(tx.Note),
		Amount:          tx.Amount.Rat(),
		SignedAmount:    tx.Signed().Rat(),
		BalanceAfter:    tx.Balance.Rat(),
		Actor:           nullString(tx.Actor),
		CreatedTS:       now.UTC(),
	}
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// BigQuerySink streams confirmed transactions into a BigQuery table.
// It holds a shared BigQuery client.
type BigQuerySink struct {
	client  *bigquery.Client
	project string
	dataset string
	now     func() time.Time
}

// NewBigQuerySink creates a BigQuery client for project.
func NewBigQuerySink(ctx context.Context, project, dataset string) (*BigQuerySink, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewBigQuerySink: creating client: %w", err)
	}
	return &BigQuerySink{client: client, project: project, dataset: dataset, now: time.Now}, nil
}

// Close closes the BigQuery client connection.
func (s *BigQuerySink) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Name implements Sink.
func (s *BigQuerySink) Name() string {
	return "bigquery"
}

// Record implements Sink.
func (s *BigQuerySink) Record(ctx context.Context, tx domain.Transaction) error {
	table := s.client.DatasetInProject(s.project, s.dataset).Table(transactionsTable)
	if err := table.Inserter().Put(ctx, NewTransactionRow(tx, s.now())); err != nil {
		return fmt.Errorf("Record: inserting row: %w", err)
	}
	return nil
}

// EnsureTable creates the dataset table when it does not exist.
func (s *BigQuerySink) EnsureTable(ctx context.Context) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.%s`"+` (
			transaction_id   STRING NOT NULL,
			transaction_date DATE NOT NULL,
			process          STRING NOT NULL,
			category         STRING NOT NULL,
			item             STRING,
			note             STRING,
			amount           NUMERIC NOT NULL,
			signed_amount    NUMERIC NOT NULL,
			balance_after    NUMERIC NOT NULL,
			actor            STRING,
			created_ts       TIMESTAMP NOT NULL
		)
		PARTITION BY transaction_date
	`, s.project, s.dataset, transactionsTable)

	job, err := s.client.Query(sql).Run(ctx)
	if err != nil {
		return fmt.Errorf("EnsureTable: running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("EnsureTable: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("EnsureTable: job error: %w", err)
	}
	return nil
}

var _ Sink = (*BigQuerySink)(nil)
var _ bigquery.ValueSaver = (*TransactionRow)(nil)

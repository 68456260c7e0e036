package billing

import "context"

type BillingService interface {
	// Calculate previews a period's billing. It never writes.
	Calculate(ctx context.Context, req CalculateBillingRequest) ([]PeriodBillingSummary, error)
	// Finalize re-aggregates the given employees and commits the result atomically.
	Finalize(ctx context.Context, req FinalizeBillingRequest) (FinalizeBillingResponse, error)
	// FinalizeSummaries commits an explicitly supplied set of summaries atomically.
	FinalizeSummaries(ctx context.Context, req FinalizeSummariesRequest) (FinalizeBillingResponse, error)

	GetRecord(ctx context.Context, id string) (BillingRecordResponse, error)
	ListRecords(ctx context.Context, req ListBillingRecordsRequest) (ListBillingRecordResponse, error)
}

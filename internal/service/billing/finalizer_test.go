package billing

import (
	"testing"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/billing"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/notification"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finalizeMarch(ids ...string) billing.FinalizeBillingRequest {
	return billing.FinalizeBillingRequest{EmployeeIDs: ids, StartDate: "2024-03-01", EndDate: "2024-03-31"}
}

func TestFinalize_PersistsRecordsAndNotifies(t *testing.T) {
	st, _, _ := seedMarch()
	svc := newTestService(st, Options{WorkerLimit: 2})

	resp, err := svc.Finalize(authContext(t), finalizeMarch(empAlice, empBob))
	require.NoError(t, err)

	assert.Equal(t, 2, resp.CreatedCount)
	assert.Equal(t, 3, resp.DetailCount)
	assert.Len(t, resp.RecordIDs, 2)
	assert.Equal(t, 3, st.detailCount())

	require.Len(t, st.records, 2)
	alice := st.records[0]
	assert.Equal(t, empAlice, alice.EmployeeID)
	assert.Equal(t, testUserID, alice.FinalizedBy)
	assert.Equal(t, "325.00", alice.TotalAmount.StringFixed(2))
	assert.True(t, alice.PeriodStart.Equal(date("2024-03-01")))
	assert.True(t, alice.PeriodEnd.Equal(date("2024-03-31")))
	require.Len(t, alice.Details, 2)
	assert.Equal(t, "hourly", string(alice.Details[0].BillingType))
	assert.Equal(t, "count_based", string(alice.Details[1].BillingType))

	require.Len(t, st.notifications, 2)
	assert.Equal(t, aliceUser, st.notifications[0].RecipientID)
	assert.Equal(t, notification.TypeBillingFinalized, st.notifications[0].Type)
	assert.Equal(t, "Your billing for the period has been finalized.", st.notifications[0].Message)
	assert.Equal(t, resp.RecordIDs[0], st.notifications[0].Data["billing_record_id"])
	assert.Len(t, st.published, 2)
}

func TestFinalize_SkipsNotificationWithoutUserAccount(t *testing.T) {
	st, support, _ := seedMarch()
	st.addLog(empCarol, support, "2024-03-20", "2", nil)
	svc := newTestService(st, Options{WorkerLimit: 2})

	resp, err := svc.Finalize(authContext(t), finalizeMarch(empCarol))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.CreatedCount)
	assert.Empty(t, st.notifications)
}

func TestFinalize_NothingToFinalize(t *testing.T) {
	st, _, _ := seedMarch()
	svc := newTestService(st, Options{WorkerLimit: 2})

	_, err := svc.Finalize(authContext(t), finalizeMarch(empCarol))
	require.ErrorIs(t, err, billing.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "nothing to finalize")

	_, err = svc.Finalize(authContext(t), finalizeMarch())
	assert.ErrorIs(t, err, billing.ErrInvalidArgument)
	assert.Empty(t, st.records)
}

func TestFinalize_UnknownEmployee(t *testing.T) {
	st, _, _ := seedMarch()
	svc := newTestService(st, Options{WorkerLimit: 2})

	_, err := svc.Finalize(authContext(t), finalizeMarch(empAlice, empDave))
	assert.ErrorIs(t, err, billing.ErrReferenceNotFound)
	assert.Empty(t, st.records)
}

func TestFinalize_TwiceReportsAlreadyFinalized(t *testing.T) {
	st, _, _ := seedMarch()
	svc := newTestService(st, Options{WorkerLimit: 2})
	ctx := authContext(t)

	_, err := svc.Finalize(ctx, finalizeMarch(empAlice))
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, finalizeMarch(empAlice))
	assert.ErrorIs(t, err, billing.ErrAlreadyFinalized)

	assert.Len(t, st.records, 1)
	assert.Len(t, st.notifications, 1)
}

func TestFinalize_OverlapWithFinalizedEmployeeAbortsWholeBatch(t *testing.T) {
	st, _, _ := seedMarch()
	svc := newTestService(st, Options{WorkerLimit: 2})
	ctx := authContext(t)

	_, err := svc.Finalize(ctx, finalizeMarch(empBob))
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, finalizeMarch(empAlice, empBob))
	assert.ErrorIs(t, err, billing.ErrAlreadyFinalized)
	require.Len(t, st.records, 1)
	assert.Equal(t, empBob, st.records[0].EmployeeID)
}

func TestFinalize_UniqueGuardCatchesRaceAfterStaging(t *testing.T) {
	st, _, _ := seedMarch()
	svc := newTestService(st, Options{WorkerLimit: 2})
	ctx := authContext(t)

	summaries, err := svc.Calculate(ctx, march())
	require.NoError(t, err)

	// a concurrent finalize commits between staging and insert
	st.records = append(st.records, billing.BillingRecord{
		ID: "racer", CompanyID: testCompanyID, EmployeeID: empBob,
		PeriodStart: date("2024-03-01"), PeriodEnd: date("2024-03-31"),
		Details: []billing.BillingRecordDetail{{ProjectID: projTickets}},
	})
	svc.billingRepo = raceRepo{fakeBillingRepo{st}}

	_, err = svc.commit(ctx, mustIdentity(t, ctx), summaries)
	assert.ErrorIs(t, err, billing.ErrAlreadyFinalized)
	require.Len(t, st.records, 1)
	assert.Equal(t, "racer", st.records[0].ID)
}

func TestFinalize_RepositoryFailureRollsBackEverything(t *testing.T) {
	st := newStore()
	support := st.addHourlyProject(projSupport, "Support", "10")
	ids := []string{empAlice, empBob, empCarol, empDave, empErin}
	for _, id := range ids {
		st.addEmployee(id, "Employee "+id[len(id)-2:], strPtr(aliceUser))
		st.addLog(id, support, "2024-03-15", "1", nil)
	}
	st.failCreateRecordAt = 3
	svc := newTestService(st, Options{WorkerLimit: 2})

	_, err := svc.Finalize(authContext(t), finalizeMarch(ids...))
	assert.ErrorIs(t, err, errInjected)
	assert.Empty(t, st.records)
	assert.Empty(t, st.notifications)
	assert.Empty(t, st.published)
}

func TestFinalize_NotificationFailureRollsBack(t *testing.T) {
	st, _, _ := seedMarch()
	st.failNotifications = true
	svc := newTestService(st, Options{WorkerLimit: 2})

	_, err := svc.Finalize(authContext(t), finalizeMarch(empAlice, empBob))
	assert.ErrorIs(t, err, errInjected)
	assert.Empty(t, st.records)
	assert.Empty(t, st.published)
}

func summaryInput(employeeID string, items ...billing.LineItemInput) billing.SummaryInput {
	return billing.SummaryInput{EmployeeID: employeeID, StartDate: "2024-03-01", EndDate: "2024-03-31", LineItems: items}
}

func hourlyLine(projectID, amount string) billing.LineItemInput {
	return billing.LineItemInput{
		ProjectID:        projectID,
		MetricLabel:      "hours",
		TotalHours:       decimal.NewFromInt(1),
		FormulaApplied:   billing.FormulaHourly,
		CalculatedAmount: dec(amount),
	}
}

func TestFinalizeSummaries_Empty(t *testing.T) {
	st := newStore()
	svc := newTestService(st, Options{WorkerLimit: 1})

	_, err := svc.FinalizeSummaries(authContext(t), billing.FinalizeSummariesRequest{})
	assert.ErrorIs(t, err, billing.ErrInvalidArgument)
	assert.Empty(t, st.records)
}

func TestFinalizeSummaries_UnknownProjectMidBatchPersistsNothing(t *testing.T) {
	st := newStore()
	st.addHourlyProject(projSupport, "Support", "10")
	ids := []string{empAlice, empBob, empCarol, empDave, empErin}
	for _, id := range ids {
		st.addEmployee(id, "Employee", nil)
	}
	svc := newTestService(st, Options{WorkerLimit: 1})

	var req billing.FinalizeSummariesRequest
	for i, id := range ids {
		proj := projSupport
		if i == 2 {
			proj = projUnknown
		}
		req.Summaries = append(req.Summaries, summaryInput(id, hourlyLine(proj, "10.00")))
	}

	_, err := svc.FinalizeSummaries(authContext(t), req)
	assert.ErrorIs(t, err, billing.ErrReferenceNotFound)
	assert.Empty(t, st.records)
	assert.Zero(t, st.createRecordCalls, "no insert may be issued before staging succeeds")
}

func TestFinalizeSummaries_NegativeAmountIsInvalidBillingData(t *testing.T) {
	st := newStore()
	st.addHourlyProject(projSupport, "Support", "10")
	st.addEmployee(empAlice, "Alice", nil)
	svc := newTestService(st, Options{WorkerLimit: 1})

	req := billing.FinalizeSummariesRequest{Summaries: []billing.SummaryInput{
		summaryInput(empAlice, hourlyLine(projSupport, "-1.00")),
	}}
	_, err := svc.FinalizeSummaries(authContext(t), req)
	assert.ErrorIs(t, err, billing.ErrInvalidBillingData)
	assert.Empty(t, st.records)
}

func TestFinalizeSummaries_LineMustMatchProjectMode(t *testing.T) {
	cases := map[string]billing.LineItemInput{
		"count fields on hourly project": {
			ProjectID:          projSupport,
			MetricLabel:        "tickets",
			TotalAchievedCount: decPtr("150"),
			FormulaApplied:     billing.FormulaCountBased,
			CalculatedAmount:   dec("75.00"),
		},
		"achieved count on hourly line": {
			ProjectID:          projSupport,
			MetricLabel:        "hours",
			TotalHours:         dec("10"),
			TotalAchievedCount: decPtr("3"),
			FormulaApplied:     billing.FormulaHourly,
			CalculatedAmount:   dec("250.00"),
		},
		"hourly fields on count project": {
			ProjectID:        projTickets,
			MetricLabel:      "hours",
			TotalHours:       dec("10"),
			FormulaApplied:   billing.FormulaHourly,
			CalculatedAmount: dec("250.00"),
		},
		"count project without achieved count": {
			ProjectID:        projTickets,
			MetricLabel:      "tickets",
			FormulaApplied:   billing.FormulaCountBased,
			CalculatedAmount: dec("75.00"),
		},
		"count project with another label": {
			ProjectID:          projTickets,
			MetricLabel:        "calls",
			TotalAchievedCount: decPtr("150"),
			FormulaApplied:     billing.FormulaCountBased,
			CalculatedAmount:   dec("75.00"),
		},
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			st := newStore()
			st.addHourlyProject(projSupport, "Support", "25")
			st.addCountProject(projTickets, "Tickets", "tickets", "10", "5")
			st.addEmployee(empAlice, "Alice", strPtr(aliceUser))
			st.addEmployee(empBob, "Bob", strPtr(bobUser))
			svc := newTestService(st, Options{WorkerLimit: 1})

			req := billing.FinalizeSummariesRequest{Summaries: []billing.SummaryInput{
				summaryInput(empBob, hourlyLine(projSupport, "10.00")),
				summaryInput(empAlice, line),
			}}
			_, err := svc.FinalizeSummaries(authContext(t), req)
			assert.ErrorIs(t, err, billing.ErrInvalidBillingData)
			assert.Empty(t, st.records)
			assert.Empty(t, st.notifications)
			assert.Zero(t, st.createRecordCalls)
		})
	}
}

func TestFinalizeSummaries_PersistsSuppliedValues(t *testing.T) {
	st := newStore()
	st.addHourlyProject(projSupport, "Support", "10")
	st.addEmployee(empAlice, "Alice", strPtr(aliceUser))
	svc := newTestService(st, Options{WorkerLimit: 1})

	req := billing.FinalizeSummariesRequest{Summaries: []billing.SummaryInput{
		summaryInput(empAlice, hourlyLine(projSupport, "99.50")),
	}}
	resp, err := svc.FinalizeSummaries(authContext(t), req)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.CreatedCount)

	require.Len(t, st.records, 1)
	assert.Equal(t, "99.50", st.records[0].TotalAmount.StringFixed(2))
	assert.Equal(t, "hourly", string(st.records[0].Details[0].BillingType))
	assert.Len(t, st.notifications, 1)
}

func TestGetRecordAndList(t *testing.T) {
	st, _, _ := seedMarch()
	svc := newTestService(st, Options{WorkerLimit: 2})
	ctx := authContext(t)

	resp, err := svc.Finalize(ctx, finalizeMarch(empAlice, empBob))
	require.NoError(t, err)

	rec, err := svc.GetRecord(ctx, resp.RecordIDs[0])
	require.NoError(t, err)
	assert.Equal(t, empAlice, rec.EmployeeID)
	assert.Equal(t, "2024-03-01", rec.Period.StartDate)
	assert.Len(t, rec.Details, 2)

	_, err = svc.GetRecord(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, billing.ErrBillingRecordNotFound)

	list, err := svc.ListRecords(ctx, billing.ListBillingRecordsRequest{EmployeeID: empBob})
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.TotalCount)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 20, list.Limit)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/estatehub/backend/internal/domain/identifier"
	"github.com/estatehub/backend/internal/domain/invoice"
	"github.com/estatehub/backend/internal/domain/lease"
	"github.com/estatehub/backend/internal/domain/listing"
	"github.com/estatehub/backend/internal/domain/reconciliation"
	"github.com/estatehub/backend/internal/domain/revenue"
	"github.com/estatehub/backend/internal/infrastructure/logger"
	"github.com/estatehub/backend/internal/infrastructure/scheduler"
	"github.com/estatehub/backend/internal/interfaces/http/dto"
	"github.com/estatehub/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func newTestEngine() *gin.Engine {
	r := gin.New()
	r.Use(logger.GinMiddleware(zap.NewNop()))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp dto.Response
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

// decodeData re-encodes resp.Data into out
func decodeData(t *testing.T, resp dto.Response, out any) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

type mockIdentifierService struct{ mock.Mock }

func (m *mockIdentifierService) Issue(ctx context.Context, entityType identifier.EntityType, prefix string) (string, error) {
	args := m.Called(ctx, entityType, prefix)
	return args.String(0), args.Error(1)
}

func (m *mockIdentifierService) Retire(ctx context.Context, value string) error {
	return m.Called(ctx, value).Error(0)
}

func (m *mockIdentifierService) Exists(ctx context.Context, value string) (bool, error) {
	args := m.Called(ctx, value)
	return args.Bool(0), args.Error(1)
}

type mockStatusService struct{ mock.Mock }

func (m *mockStatusService) ReconcileLease(ctx context.Context, id uuid.UUID) (*lease.Lease, error) {
	args := m.Called(ctx, id)
	l, _ := args.Get(0).(*lease.Lease)
	return l, args.Error(1)
}

func (m *mockStatusService) ReconcileInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, id)
	inv, _ := args.Get(0).(*invoice.Invoice)
	return inv, args.Error(1)
}

func (m *mockStatusService) DeriveListingStatus(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	args := m.Called(ctx, id)
	l, _ := args.Get(0).(*listing.Listing)
	return l, args.Error(1)
}

type mockRevenueService struct{ mock.Mock }

func (m *mockRevenueService) CalculateMonthlyRevenue(ctx context.Context, adminID uuid.UUID, month, year int) (*revenue.Result, error) {
	args := m.Called(ctx, adminID, month, year)
	r, _ := args.Get(0).(*revenue.Result)
	return r, args.Error(1)
}

func (m *mockRevenueService) StoreMonthlyRevenue(ctx context.Context, result *revenue.Result) (*revenue.MonthlyRecord, error) {
	args := m.Called(ctx, result)
	r, _ := args.Get(0).(*revenue.MonthlyRecord)
	return r, args.Error(1)
}

func (m *mockRevenueService) GetStoredRevenue(ctx context.Context, adminID uuid.UUID, year int, month *int) ([]revenue.MonthlyRecord, error) {
	args := m.Called(ctx, adminID, year, month)
	r, _ := args.Get(0).([]revenue.MonthlyRecord)
	return r, args.Error(1)
}

func (m *mockRevenueService) GetRevenueTrend(ctx context.Context, adminID uuid.UUID) ([]revenue.TrendPoint, error) {
	args := m.Called(ctx, adminID)
	r, _ := args.Get(0).([]revenue.TrendPoint)
	return r, args.Error(1)
}

type mockPassTrigger struct{ mock.Mock }

func (m *mockPassTrigger) TriggerManual(ctx context.Context, kind reconciliation.Kind) (*reconciliation.PassSummary, error) {
	args := m.Called(ctx, kind)
	s, _ := args.Get(0).(*reconciliation.PassSummary)
	return s, args.Error(1)
}

func (m *mockPassTrigger) GetStatus() scheduler.Status {
	return m.Called().Get(0).(scheduler.Status)
}

type mockRunHistory struct{ mock.Mock }

func (m *mockRunHistory) LatestRuns(ctx context.Context) (map[reconciliation.Kind]*reconciliation.Run, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(map[reconciliation.Kind]*reconciliation.Run)
	return r, args.Error(1)
}

func (m *mockRunHistory) RecentRuns(ctx context.Context, limit int) ([]reconciliation.Run, error) {
	args := m.Called(ctx, limit)
	r, _ := args.Get(0).([]reconciliation.Run)
	return r, args.Error(1)
}

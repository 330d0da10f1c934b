package postgres

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
)

// fakeExecer rejects any statement whose arguments carry a NUL character, the way
// Postgres rejects such text or jsonb input.
type fakeExecer struct {
	calls   int
	applied []domain.LogStatusUpdate
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls++
	for _, arg := range args {
		if hasNUL(arg) {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "22P05", Message: "unsupported Unicode escape sequence"}
		}
	}
	if strings.Contains(sql, "unnest") {
		return pgconn.NewCommandTag("UPDATE " + strconv.Itoa(len(args[2].([]string)))), nil
	}
	f.applied = append(f.applied, domain.LogStatusUpdate{
		CampaignID: args[0].(uuid.UUID),
		CustomerID: args[1].(uuid.UUID),
		Status:     domain.DeliveryStatus(args[2].(string)),
	})
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func hasNUL(arg any) bool {
	switch v := arg.(type) {
	case string:
		return strings.ContainsRune(v, 0)
	case []string:
		for _, s := range v {
			if strings.ContainsRune(s, 0) {
				return true
			}
		}
	}
	return false
}

func update(campaignID uuid.UUID, status domain.DeliveryStatus, meta string) domain.LogStatusUpdate {
	return domain.LogStatusUpdate{
		CampaignID: campaignID,
		CustomerID: uuid.New(),
		Status:     status,
		VendorMeta: json.RawMessage(meta),
	}
}

func TestBulkUpdateLogStatus_FallsBackToSingleUpdates(t *testing.T) {
	campaignID := uuid.New()
	good1 := update(campaignID, domain.DeliverySent, `{"latency_ms":12}`)
	poison := update(campaignID, domain.DeliverySent, "{\"note\":\"\x00\"}")
	good2 := update(campaignID, domain.DeliveryFailed, "")
	db := &fakeExecer{}

	result, err := bulkUpdateLogStatus(context.Background(), db, []domain.LogStatusUpdate{good1, poison, good2})

	require.NoError(t, err)
	assert.Equal(t, 4, db.calls)
	assert.Equal(t, int64(2), result.Matched)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	require.Len(t, db.applied, 2)
	assert.Equal(t, good1.CustomerID, db.applied[0].CustomerID)
	assert.Equal(t, good2.CustomerID, db.applied[1].CustomerID)
}

func TestBulkUpdateLogStatus_FailureCoversSupersededIndexes(t *testing.T) {
	campaignID := uuid.New()
	first := update(campaignID, domain.DeliverySent, "")
	last := first
	last.Status = domain.DeliveryFailed
	last.VendorMeta = json.RawMessage("\"\x00\"")
	other := update(campaignID, domain.DeliverySent, "")
	db := &fakeExecer{}

	result, err := bulkUpdateLogStatus(context.Background(), db, []domain.LogStatusUpdate{first, other, last})

	require.NoError(t, err)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 0, result.Errors[0].Index)
	assert.Equal(t, 2, result.Errors[1].Index)
	assert.Equal(t, int64(1), result.Matched)
}

func TestBulkUpdateLogStatus_SingleStatement(t *testing.T) {
	campaignID := uuid.New()
	db := &fakeExecer{}

	result, err := bulkUpdateLogStatus(context.Background(), db, []domain.LogStatusUpdate{
		update(campaignID, domain.DeliverySent, ""),
		update(campaignID, domain.DeliveryFailed, ""),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, db.calls)
	assert.Equal(t, int64(2), result.Matched)
	assert.Empty(t, result.Errors)
}

func TestBulkUpdateLogStatus_CanceledContextFailsWhole(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	db := &fakeExecer{}

	_, err := bulkUpdateLogStatus(ctx, db, []domain.LogStatusUpdate{
		update(uuid.New(), domain.DeliverySent, "\"\x00\""),
	})

	require.Error(t, err)
	assert.Equal(t, 1, db.calls)
}

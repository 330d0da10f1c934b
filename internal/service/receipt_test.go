package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DhruvAgrawal511/xeno-backend/internal/dto"
	queuememory "github.com/DhruvAgrawal511/xeno-backend/internal/queue/memory"
)

func TestReceiptService_SubmitReceipt(t *testing.T) {
	transport := queuememory.New(queuememory.Options{})
	svc := NewReceiptService(transport, testStreams(), zap.NewNop())
	req := &dto.DeliveryReceiptRequest{
		CampaignID:      uuid.NewString(),
		CustomerID:      uuid.NewString(),
		VendorMessageID: "1714557600000-42",
		Status:          "SENT",
		VendorMeta:      json.RawMessage(`{"provider":"dummy","latency_ms":120}`),
	}

	entryID, err := svc.SubmitReceipt(context.Background(), req)

	require.NoError(t, err)
	entries := transport.Entries("stream:receipts")
	require.Len(t, entries, 1)
	assert.Equal(t, entryID, entries[0].ID)
	assert.Equal(t, dto.EventDeliveryReceipt, entries[0].Event)

	var event dto.DeliveryReceiptEvent
	require.NoError(t, json.Unmarshal(entries[0].Payload, &event))
	assert.Equal(t, req.CampaignID, event.CampaignID)
	assert.Equal(t, "SENT", event.Status)
	assert.JSONEq(t, `{"provider":"dummy","latency_ms":120}`, string(event.VendorMeta))
	assert.False(t, event.ReceivedAt.IsZero())
}

func TestReceiptService_SubmitReceipt_ValidationError(t *testing.T) {
	transport := queuememory.New(queuememory.Options{})
	svc := NewReceiptService(transport, testStreams(), zap.NewNop())

	_, err := svc.SubmitReceipt(context.Background(), &dto.DeliveryReceiptRequest{
		CampaignID: uuid.NewString(),
		Status:     "DELIVERED",
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{
		"customer_id is required",
		"status must be one of SENT, FAILED",
	}, validationErr.Problems)
	assert.Zero(t, transport.Len("stream:receipts"))
}

func TestReceiptService_SubmitReceipt_RejectsNUL(t *testing.T) {
	tests := []struct {
		name    string
		msgID   string
		meta    json.RawMessage
		problem string
	}{
		{"escaped NUL in vendor meta", "m-1", json.RawMessage(`{"note":"a\u0000b"}`), "vendor_meta must not contain NUL characters"},
		{"escaped NUL in meta key", "m-1", json.RawMessage(`{"\u0000":1}`), "vendor_meta must not contain NUL characters"},
		{"NUL byte in message id", "m-\x00", nil, "vendor_message_id must not contain NUL characters"},
		{"malformed vendor meta", "m-1", json.RawMessage(`{"note":`), "vendor_meta must be valid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := queuememory.New(queuememory.Options{})
			svc := NewReceiptService(transport, testStreams(), zap.NewNop())

			_, err := svc.SubmitReceipt(context.Background(), &dto.DeliveryReceiptRequest{
				CampaignID:      uuid.NewString(),
				CustomerID:      uuid.NewString(),
				VendorMessageID: tt.msgID,
				Status:          "SENT",
				VendorMeta:      tt.meta,
			})

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, []string{tt.problem}, validationErr.Problems)
			assert.Zero(t, transport.Len("stream:receipts"))
		})
	}
}

func TestReceiptService_SubmitReceipt_AllowsEscapedBackslash(t *testing.T) {
	transport := queuememory.New(queuememory.Options{})
	svc := NewReceiptService(transport, testStreams(), zap.NewNop())

	_, err := svc.SubmitReceipt(context.Background(), &dto.DeliveryReceiptRequest{
		CampaignID: uuid.NewString(),
		CustomerID: uuid.NewString(),
		Status:     "FAILED",
		VendorMeta: json.RawMessage(`{"path":"C:\\u0000"}`),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, transport.Len("stream:receipts"))
}

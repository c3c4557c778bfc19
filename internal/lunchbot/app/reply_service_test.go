package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sunlunch/lunchbot/internal/lunchbot/domain"
)

type replyTestComponents struct {
	service    *ReplyService
	mockLedger *MockMessageLedger
}

func setupReplyTest(t *testing.T) replyTestComponents {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockLedger := new(MockMessageLedger)
	service := NewReplyService(mockLedger, nil, logger, "Munich")
	service.now = func() time.Time { return decisionTestNow }
	return replyTestComponents{service: service, mockLedger: mockLedger}
}

func TestReplyService_ConfirmLunch_FirstConfirmation(t *testing.T) {
	comps := setupReplyTest(t)
	ctx := context.Background()

	comps.mockLedger.On("HasLunchBeenConfirmed", ctx, "Berlin", "2024-07-08").Return(false, nil)
	comps.mockLedger.On("RecordLunchConfirmation", ctx, "Berlin", "2024-07-08").Return(nil)

	resp, err := comps.service.Handle(ctx, ReplyRequest{Action: "confirm-lunch", Location: "Berlin"})
	require.NoError(t, err)
	assert.True(t, resp.Confirmed)
	assert.False(t, resp.AlreadyConfirmed)
	assert.Equal(t, "Berlin", resp.Location)
	assert.Equal(t, "2024-07-08", resp.WeekStart)
	comps.mockLedger.AssertExpectations(t)
}

func TestReplyService_ConfirmLunch_AlreadyConfirmedWritesNothing(t *testing.T) {
	comps := setupReplyTest(t)
	ctx := context.Background()

	comps.mockLedger.On("HasLunchBeenConfirmed", ctx, "Berlin", "2024-07-08").Return(true, nil)

	resp, err := comps.service.Handle(ctx, ReplyRequest{Action: "confirm-lunch", Location: "Berlin"})
	require.NoError(t, err)
	assert.True(t, resp.AlreadyConfirmed)
	assert.False(t, resp.Confirmed)
	comps.mockLedger.AssertNotCalled(t, "RecordLunchConfirmation", mock.Anything, mock.Anything, mock.Anything)
}

func TestReplyService_ConfirmLunch_DateSelectsWeek(t *testing.T) {
	comps := setupReplyTest(t)
	ctx := context.Background()

	// 2024-07-21 is a Sunday; its week is anchored at Monday 2024-07-15.
	comps.mockLedger.On("HasLunchBeenConfirmed", ctx, "Munich", "2024-07-15").Return(false, nil)
	comps.mockLedger.On("RecordLunchConfirmation", ctx, "Munich", "2024-07-15").Return(nil)

	resp, err := comps.service.Handle(ctx, ReplyRequest{Action: "confirm-lunch", Date: "2024-07-21"})
	require.NoError(t, err)
	assert.Equal(t, "2024-07-15", resp.WeekStart)
}

func TestReplyService_ConfirmLunch_InvalidDate(t *testing.T) {
	comps := setupReplyTest(t)

	_, err := comps.service.Handle(context.Background(), ReplyRequest{Action: "confirm-lunch", Date: "21.07.2024"})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
	comps.mockLedger.AssertNotCalled(t, "HasLunchBeenConfirmed", mock.Anything, mock.Anything, mock.Anything)
}

func TestReplyService_DefaultActionAndLocation(t *testing.T) {
	comps := setupReplyTest(t)
	ctx := context.Background()

	// Empty action defaults to confirm-lunch; empty location to the primary one.
	comps.mockLedger.On("HasLunchBeenConfirmed", ctx, "Munich", "2024-07-08").Return(false, nil)
	comps.mockLedger.On("RecordLunchConfirmation", ctx, "Munich", "2024-07-08").Return(nil)

	resp, err := comps.service.Handle(ctx, ReplyRequest{})
	require.NoError(t, err)
	assert.Equal(t, ActionConfirmLunch, resp.Action)
	assert.Equal(t, "Munich", resp.Location)
}

func TestReplyService_OptInAndOut(t *testing.T) {
	comps := setupReplyTest(t)
	ctx := context.Background()

	comps.mockLedger.On("SetWarningOptIn", ctx, "Munich", true).Return(nil)
	resp, err := comps.service.Handle(ctx, ReplyRequest{Action: "opt-in-warnings"})
	require.NoError(t, err)
	require.NotNil(t, resp.OptedIn)
	assert.True(t, *resp.OptedIn)

	comps.mockLedger.On("SetWarningOptIn", ctx, "Munich", false).Return(nil)
	resp, err = comps.service.Handle(ctx, ReplyRequest{Action: "opt-out-warnings"})
	require.NoError(t, err)
	require.NotNil(t, resp.OptedIn)
	assert.False(t, *resp.OptedIn)
}

func TestReplyService_UnknownActionRejectedBeforeStateRead(t *testing.T) {
	comps := setupReplyTest(t)

	_, err := comps.service.Handle(context.Background(), ReplyRequest{Action: "order-pizza"})
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
	comps.mockLedger.AssertNotCalled(t, "HasLunchBeenConfirmed", mock.Anything, mock.Anything, mock.Anything)
	comps.mockLedger.AssertNotCalled(t, "SetWarningOptIn", mock.Anything, mock.Anything, mock.Anything)
}

func TestReplyService_StoreErrorPropagates(t *testing.T) {
	comps := setupReplyTest(t)
	ctx := context.Background()

	comps.mockLedger.On("HasLunchBeenConfirmed", ctx, "Munich", "2024-07-08").Return(false, errors.New("store down"))

	_, err := comps.service.Handle(ctx, ReplyRequest{Action: "confirm-lunch"})
	require.Error(t, err)
}

func TestReplyService_PublishesReplyEvent(t *testing.T) {
	comps := setupReplyTest(t)
	ctx := context.Background()
	publisher := new(MockEventPublisher)
	comps.service.publisher = publisher

	comps.mockLedger.On("SetWarningOptIn", ctx, "Munich", true).Return(nil)
	publisher.On("PublishJSON", ctx, "lunchbot.replies", mock.AnythingOfType("*app.ReplyResponse")).Return(nil)

	_, err := comps.service.Handle(ctx, ReplyRequest{Action: "opt-in-warnings"})
	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

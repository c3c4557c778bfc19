package app

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sunlunch/lunchbot/internal/lunchbot/domain"
)

// --- Mocks ---

type MockMessageLedger struct {
	mock.Mock
}

func (m *MockMessageLedger) HasBeenSentToday(ctx context.Context, msgType domain.MessageType, location string) (bool, error) {
	args := m.Called(ctx, msgType, location)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageLedger) WeeklyStats(ctx context.Context, location string, msgType domain.MessageType) (*domain.WeeklyStats, error) {
	args := m.Called(ctx, location, msgType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WeeklyStats), args.Error(1)
}

func (m *MockMessageLedger) CanSendThisWeek(ctx context.Context, location string, msgType domain.MessageType) (bool, error) {
	args := m.Called(ctx, location, msgType)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageLedger) RecordSent(ctx context.Context, msgType domain.MessageType, location string, temperature *int, condition *string) error {
	args := m.Called(ctx, msgType, location, temperature, condition)
	return args.Error(0)
}

func (m *MockMessageLedger) History(ctx context.Context, location string, daysBack int) ([]*domain.MessageRecord, error) {
	args := m.Called(ctx, location, daysBack)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MessageRecord), args.Error(1)
}

func (m *MockMessageLedger) PruneOlderThan(ctx context.Context, daysToKeep int) (int64, error) {
	args := m.Called(ctx, daysToKeep)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageLedger) RecordLunchConfirmation(ctx context.Context, location, weekStart string) error {
	args := m.Called(ctx, location, weekStart)
	return args.Error(0)
}

func (m *MockMessageLedger) HasLunchBeenConfirmed(ctx context.Context, location, weekStart string) (bool, error) {
	args := m.Called(ctx, location, weekStart)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageLedger) SetWarningOptIn(ctx context.Context, location string, optedIn bool) error {
	args := m.Called(ctx, location, optedIn)
	return args.Error(0)
}

func (m *MockMessageLedger) IsOptedInToWarnings(ctx context.Context, location string) (bool, error) {
	args := m.Called(ctx, location)
	return args.Bool(0), args.Error(1)
}

type MockWeatherService struct {
	mock.Mock
}

func (m *MockWeatherService) IsWeatherGood(ctx context.Context, coords domain.Coordinates) (*domain.WeatherVerdict, error) {
	args := m.Called(ctx, coords)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WeatherVerdict), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendReminder(ctx context.Context, temperature int, description, location, confirmationURL string) error {
	args := m.Called(ctx, temperature, description, location, confirmationURL)
	return args.Error(0)
}

func (m *MockNotifier) SendWarning(ctx context.Context, temperature int, description, location, optOutURL string) error {
	args := m.Called(ctx, temperature, description, location, optOutURL)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishJSON(ctx context.Context, subject string, payload any) error {
	args := m.Called(ctx, subject, payload)
	return args.Error(0)
}

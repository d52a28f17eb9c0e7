package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/cohort-nurture/internal/entity"
	"github.com/xavierca1/cohort-nurture/internal/usecase"
)

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Execute(ctx context.Context, input usecase.SubmitLeadInput) (*usecase.SubmitLeadOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SubmitLeadOutput), args.Error(1)
}

type MockUpdater struct {
	mock.Mock
}

func (m *MockUpdater) Execute(ctx context.Context, id string, input usecase.UpdateLeadStatusInput) (*entity.Lead, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

type MockReader struct {
	mock.Mock
}

func (m *MockReader) List(ctx context.Context) ([]entity.Lead, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Lead), args.Error(1)
}

func (m *MockReader) Get(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockReader) Stats(ctx context.Context) (*entity.LeadStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LeadStats), args.Error(1)
}

type MockEmails struct {
	mock.Mock
}

func (m *MockEmails) SendConfirmation(ctx context.Context, leadID string) (*usecase.SendEmailOutput, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SendEmailOutput), args.Error(1)
}

func (m *MockEmails) SendReminder(ctx context.Context, leadID, reminder string) (*usecase.SendEmailOutput, error) {
	args := m.Called(ctx, leadID, reminder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SendEmailOutput), args.Error(1)
}

func (m *MockEmails) SendTest(ctx context.Context, input usecase.TestEmailInput) (*usecase.SendEmailOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SendEmailOutput), args.Error(1)
}

type MockAutomation struct {
	mock.Mock
}

func (m *MockAutomation) RunPass(ctx context.Context) (*usecase.SweepReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SweepReport), args.Error(1)
}

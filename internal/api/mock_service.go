package api

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockService is a mock implementation of Service using testify/mock.
type MockService struct {
	mock.Mock
}

func (m *MockService) ListDocuments(ctx context.Context) (DocumentList, error) {
	args := m.Called(ctx)
	return args.Get(0).(DocumentList), args.Error(1)
}

func (m *MockService) UploadDocument(ctx context.Context, upload Upload) (*UploadAck, error) {
	args := m.Called(ctx, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UploadAck), args.Error(1)
}

func (m *MockService) DeleteDocument(ctx context.Context, id DocumentID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockService) FetchChatHistory(ctx context.Context, id DocumentID) ([]ChatEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ChatEntry), args.Error(1)
}

func (m *MockService) AskQuestion(ctx context.Context, req AskRequest) (*Answer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Answer), args.Error(1)
}

package messages

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
)

// MockStorage for testing Store
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Insert(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStorage) InsertBatch(ctx context.Context, msgs []Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockStorage) List(ctx context.Context, receiverID int64, opts ListOptions) ([]Message, error) {
	args := m.Called(ctx, receiverID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockStorage) MarkRead(ctx context.Context, receiverID int64, ids ...uuid.UUID) error {
	args := m.Called(ctx, receiverID, ids)
	return args.Error(0)
}

func (m *MockStorage) Delete(ctx context.Context, receiverID int64, ids ...uuid.UUID) error {
	args := m.Called(ctx, receiverID, ids)
	return args.Error(0)
}

func (m *MockStorage) CountUnread(ctx context.Context, receiverID int64) (int, error) {
	args := m.Called(ctx, receiverID)
	return args.Int(0), args.Error(1)
}

func TestStore_Create(t *testing.T) {
	t.Parallel()

	storage := new(MockStorage)
	storage.On("Insert", mock.Anything, mock.MatchedBy(func(msg Message) bool {
		return msg.ID != uuid.Nil && msg.ReceiverID == 42 && !msg.CreatedAt.IsZero()
	})).Return(nil)

	store := NewStore(storage)
	msg, err := store.Create(context.Background(), Row{
		ReceiverID: 42,
		Title:      "Hi",
		Content:    "body",
		Priority:   PriorityHigh,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), msg.ReceiverID)
	assert.Equal(t, PriorityHigh, msg.Priority)
	storage.AssertExpectations(t)
}

func TestStore_Create_DefaultsPriority(t *testing.T) {
	t.Parallel()

	storage := new(MockStorage)
	storage.On("Insert", mock.Anything, mock.Anything).Return(nil)

	store := NewStore(storage)
	msg, err := store.Create(context.Background(), Row{ReceiverID: 1, Title: "x"})

	require.NoError(t, err)
	assert.Equal(t, PriorityNormal, msg.Priority)
}

func TestStore_CreateBulk_SingleBatchInsert(t *testing.T) {
	t.Parallel()

	storage := new(MockStorage)
	storage.On("InsertBatch", mock.Anything, mock.MatchedBy(func(msgs []Message) bool {
		return len(msgs) == 3
	})).Return(nil)

	store := NewStore(storage)
	store.CreateBulk(context.Background(), []Row{
		{ReceiverID: 1, Title: "a"},
		{ReceiverID: 2, Title: "b"},
		{ReceiverID: 3, Title: "c"},
	})

	storage.AssertExpectations(t)
	storage.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestStore_CreateBulk_FallsBackToPerRow(t *testing.T) {
	t.Parallel()

	storage := new(MockStorage)
	storage.On("InsertBatch", mock.Anything, mock.Anything).Return(errors.New("bad row in batch"))
	storage.On("Insert", mock.Anything, mock.Anything).Return(nil)

	store := NewStore(storage)
	store.CreateBulk(context.Background(), []Row{
		{ReceiverID: 1, Title: "a"},
		{ReceiverID: 2, Title: "b"},
	})

	storage.AssertNumberOfCalls(t, "Insert", 2)
}

func TestStore_CreateBulk_BadRowDoesNotAbortSiblings(t *testing.T) {
	t.Parallel()

	storage := new(MockStorage)
	storage.On("InsertBatch", mock.Anything, mock.Anything).Return(errors.New("batch failed"))
	storage.On("Insert", mock.Anything, mock.MatchedBy(func(msg Message) bool {
		return msg.ReceiverID == 2
	})).Return(errors.New("still broken"))
	storage.On("Insert", mock.Anything, mock.Anything).Return(nil)

	store := NewStore(storage)
	// Must not panic and must attempt every row despite the failure of one.
	store.CreateBulk(context.Background(), []Row{
		{ReceiverID: 1, Title: "a"},
		{ReceiverID: 2, Title: "b"},
		{ReceiverID: 3, Title: "c"},
	})

	storage.AssertNumberOfCalls(t, "Insert", 3)
}

func TestStore_CreateBulk_Empty(t *testing.T) {
	t.Parallel()

	storage := new(MockStorage)
	store := NewStore(storage)
	store.CreateBulk(context.Background(), nil)

	storage.AssertNotCalled(t, "InsertBatch", mock.Anything, mock.Anything)
}

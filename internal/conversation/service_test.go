// ABOUTME: Tests for the conversation service
// ABOUTME: Covers pair canonicalization, the concurrent create race, append validation

package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chambee/comm-relay/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.MockStore) {
	t.Helper()
	mock := store.NewMockStore()
	return New(mock, nil), mock
}

func seedUser(t *testing.T, s *store.MockStore, first, last string) int64 {
	t.Helper()
	u := &store.User{FirstName: first, LastName: last, Email: first + "@example.com"}
	require.NoError(t, s.CreateUser(t.Context(), u))
	return u.ID
}

func TestResolveOrCreate_CreatesOnFirstContact(t *testing.T) {
	svc, mock := newTestService(t)
	alice := seedUser(t, mock, "Alice", "Ames")
	bob := seedUser(t, mock, "Bob", "Brook")

	id, err := svc.ResolveOrCreate(t.Context(), alice, bob)
	require.NoError(t, err)
	assert.Positive(t, id)

	conv, err := svc.Get(t.Context(), id)
	require.NoError(t, err)
	assert.Less(t, conv.UserLow, conv.UserHigh)
}

func TestResolveOrCreate_OrderIndependent(t *testing.T) {
	svc, mock := newTestService(t)
	alice := seedUser(t, mock, "Alice", "Ames")
	bob := seedUser(t, mock, "Bob", "Brook")

	first, err := svc.ResolveOrCreate(t.Context(), alice, bob)
	require.NoError(t, err)

	second, err := svc.ResolveOrCreate(t.Context(), bob, alice)
	require.NoError(t, err)

	assert.Equal(t, first, second, "both orderings must resolve to the same conversation")
}

func TestResolveOrCreate_RejectsSelf(t *testing.T) {
	svc, mock := newTestService(t)
	alice := seedUser(t, mock, "Alice", "Ames")

	_, err := svc.ResolveOrCreate(t.Context(), alice, alice)
	assert.ErrorIs(t, err, ErrSelfConversation)
}

func TestResolveOrCreate_UnknownUser(t *testing.T) {
	svc, mock := newTestService(t)
	alice := seedUser(t, mock, "Alice", "Ames")

	_, err := svc.ResolveOrCreate(t.Context(), alice, 9999)
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestResolveOrCreate_ConcurrentFirstContact(t *testing.T) {
	svc, mock := newTestService(t)
	alice := seedUser(t, mock, "Alice", "Ames")
	bob := seedUser(t, mock, "Bob", "Brook")

	const attempts = 20
	ids := make([]int64, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := range attempts {
		wg.Go(func() {
			a, b := alice, bob
			if i%2 == 1 {
				a, b = b, a
			}
			ids[i], errs[i] = svc.ResolveOrCreate(context.Background(), a, b)
		})
	}
	wg.Wait()

	for i := range attempts {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i], "every racer must get the same conversation id")
	}
}

func TestAppend_PersistsAndReturnsRecord(t *testing.T) {
	svc, mock := newTestService(t)
	alice := seedUser(t, mock, "Alice", "Ames")
	bob := seedUser(t, mock, "Bob", "Brook")

	convID, err := svc.ResolveOrCreate(t.Context(), alice, bob)
	require.NoError(t, err)

	msg, err := svc.Append(t.Context(), convID, alice, "  hello there  ")
	require.NoError(t, err)
	assert.Positive(t, msg.ID)
	assert.Equal(t, "hello there", msg.Body, "body is stored trimmed")
	assert.False(t, msg.SentAt.IsZero())
}

func TestAppend_RejectsEmptyBody(t *testing.T) {
	svc, mock := newTestService(t)
	alice := seedUser(t, mock, "Alice", "Ames")
	bob := seedUser(t, mock, "Bob", "Brook")

	convID, err := svc.ResolveOrCreate(t.Context(), alice, bob)
	require.NoError(t, err)

	_, err = svc.Append(t.Context(), convID, alice, "   \n\t ")
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestAppend_PropagatesStoreFailure(t *testing.T) {
	svc, mock := newTestService(t)
	alice := seedUser(t, mock, "Alice", "Ames")
	bob := seedUser(t, mock, "Bob", "Brook")

	convID, err := svc.ResolveOrCreate(t.Context(), alice, bob)
	require.NoError(t, err)

	mock.AppendErr = errors.New("disk full")
	_, err = svc.Append(t.Context(), convID, alice, "hello")
	assert.Error(t, err)
}

func TestHistory_AppendOrder(t *testing.T) {
	svc, mock := newTestService(t)
	alice := seedUser(t, mock, "Alice", "Ames")
	bob := seedUser(t, mock, "Bob", "Brook")

	convID, err := svc.ResolveOrCreate(t.Context(), alice, bob)
	require.NoError(t, err)

	for _, body := range []string{"one", "two", "three"} {
		_, err := svc.Append(t.Context(), convID, alice, body)
		require.NoError(t, err)
	}

	history, err := svc.History(t.Context(), convID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "one", history[0].Body)
	assert.Equal(t, "two", history[1].Body)
	assert.Equal(t, "three", history[2].Body)
}

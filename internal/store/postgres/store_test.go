package postgres_test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zimam07/Sonjog/internal/domain"
	"github.com/Zimam07/Sonjog/internal/store/postgres"
)

// newTestDB connects to POSTGRES_TEST_DSN or skips the test.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	db, err := postgres.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, postgres.Migrate(db))
	return db
}

func newUser(t *testing.T, repo *postgres.UserRepo) *domain.User {
	t.Helper()
	name := "u" + uuid.NewString()[:8]
	u := &domain.User{Username: name, Email: name + "@example.com", HashedPassword: "x"}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestConversationGateway(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := postgres.NewUserRepo(db)
	alice, bob := newUser(t, users), newUser(t, users)
	gw := postgres.NewConversationRepo(db)

	const n = 8
	got := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := gw.FindOrCreate(ctx, domain.DirectKey(alice.ID, bob.ID))
			if err == nil {
				got[i] = c.ID
			}
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		assert.Equal(t, got[0], got[i])
	}

	conv, err := gw.Find(ctx, domain.DirectKey(bob.ID, alice.ID))
	require.NoError(t, err)
	assert.Equal(t, got[0], conv.ID)

	m := &domain.Message{SenderID: alice.ID, ReceiverID: &bob.ID, Body: "hello"}
	require.NoError(t, gw.AppendMessage(ctx, conv, m))
	msgs, err := gw.ListMessages(ctx, conv.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	assert.Equal(t, m.ID, msgs[len(msgs)-1].ID)
}

func TestUserAndInviteConflicts(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := postgres.NewUserRepo(db)
	owner, guest := newUser(t, users), newUser(t, users)

	dup := &domain.User{Username: owner.Username, Email: "x" + owner.Email, HashedPassword: "x"}
	assert.ErrorIs(t, users.Create(ctx, dup), domain.ErrConflict)

	g := &domain.Group{Name: "g", OwnerID: owner.ID}
	require.NoError(t, postgres.NewGroupRepo(db).Create(ctx, g))

	invites := postgres.NewInviteRepo(db)
	require.NoError(t, invites.Create(ctx, &domain.GroupInvite{GroupID: g.ID, InvitedBy: owner.ID, InvitedUserID: guest.ID}))
	err := invites.Create(ctx, &domain.GroupInvite{GroupID: g.ID, InvitedBy: owner.ID, InvitedUserID: guest.ID})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

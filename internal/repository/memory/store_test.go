package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/repository"
)

func newUser(email, username string) *domain.User {
	return &domain.User{Email: email, Username: username, PasswordHash: "x", IsActive: true}
}

func TestUserUniqueness(t *testing.T) {
	ctx := context.Background()
	users := NewStore().Users()

	require.NoError(t, users.Create(ctx, newUser("a@example.com", "a")))

	err := users.Create(ctx, newUser("a@example.com", "b"))
	assert.True(t, repository.IsDuplicate(err, repository.ConstraintUserEmail))

	err = users.Create(ctx, newUser("b@example.com", "a"))
	assert.True(t, repository.IsDuplicate(err, repository.ConstraintUserUsername))

	found, err := users.GetByEmail(ctx, " A@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "a", found.Username)

	_, err = users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProfileOnePerUser(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	user := newUser("a@example.com", "a")
	require.NoError(t, store.Users().Create(ctx, user))

	profile := &domain.Profile{UserID: user.ID, Role: domain.RoleCustomer}
	require.NoError(t, store.Profiles().Create(ctx, profile))

	err := store.Profiles().Create(ctx, &domain.Profile{UserID: user.ID, Role: domain.RoleStaff})
	assert.True(t, repository.IsDuplicate(err, repository.ConstraintProfileUser))

	loaded, err := store.Profiles().GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, loaded.ID)
	require.NotNil(t, loaded.User)
	assert.Equal(t, "a@example.com", loaded.User.Email)
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	boom := errors.New("boom")

	err := store.Transactor().WithinTx(ctx, func(ctx context.Context) error {
		user := newUser("a@example.com", "a")
		require.NoError(t, store.Users().Create(ctx, user))
		require.NoError(t, store.Profiles().Create(ctx, &domain.Profile{UserID: user.ID, Role: domain.RoleCustomer}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Users().GetByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = store.Transactor().WithinTx(ctx, func(ctx context.Context) error {
		return store.Users().Create(ctx, newUser("a@example.com", "a"))
	})
	require.NoError(t, err)
	_, err = store.Users().GetByEmail(ctx, "a@example.com")
	assert.NoError(t, err)
}

func TestRollbackKeepsWritesMadeOutsideTheTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	verified := newUser("v@example.com", "v")
	require.NoError(t, store.Users().Create(ctx, verified))

	inTx := make(chan struct{})
	release := make(chan struct{})
	smtpDown := errors.New("smtp down")
	done := make(chan error, 1)
	go func() {
		done <- store.Transactor().WithinTx(ctx, func(ctx context.Context) error {
			if err := store.Users().Create(ctx, newUser("r@example.com", "r")); err != nil {
				return err
			}
			close(inTx)
			<-release
			return smtpDown
		})
	}()
	<-inTx

	ticket := &domain.Ticket{TicketID: "tk-outside", Subject: "Printer", Status: domain.TicketStatusPending}
	require.NoError(t, store.Tickets().Create(ctx, ticket))
	verified.IsVerified = true
	require.NoError(t, store.Users().Update(ctx, verified))
	require.NoError(t, store.TicketHistory().Create(ctx, &domain.TicketHistory{TicketID: ticket.ID, ChangeType: domain.ChangeTypeStatus}))

	close(release)
	require.ErrorIs(t, <-done, smtpDown)

	_, err := store.Users().GetByEmail(ctx, "r@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = store.Tickets().GetByTicketID(ctx, "tk-outside")
	assert.NoError(t, err)
	loaded, err := store.Users().GetByID(ctx, verified.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsVerified)
	history, err := store.TicketHistory().ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRollbackRevertsUpdatesAndHistory(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	ticket := &domain.Ticket{TicketID: "tk-1", Subject: "VPN", Status: domain.TicketStatusPending}
	require.NoError(t, store.Tickets().Create(ctx, ticket))

	err := store.Transactor().WithinTx(ctx, func(ctx context.Context) error {
		ticket.Status = domain.TicketStatusClosed
		require.NoError(t, store.Tickets().Update(ctx, ticket))
		require.NoError(t, store.TicketHistory().Create(ctx, &domain.TicketHistory{TicketID: ticket.ID, ChangeType: domain.ChangeTypeStatus}))
		return errors.New("abort")
	})
	require.Error(t, err)

	loaded, err := store.Tickets().GetByTicketID(ctx, "tk-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, loaded.Status)
	history, err := store.TicketHistory().ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestTicketListingAndCounts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	tickets := store.Tickets()

	staff := "staff-1"
	var created []*domain.Ticket
	for i, subject := range []string{"first", "second", "third"} {
		ticket := domain.NewTicket(subject+"-id", "cust-1", subject, "printer jam", nil)
		if i == 1 {
			ticket.AssignedToID = &staff
			ticket.Status = domain.TicketStatusInProgress
		}
		require.NoError(t, tickets.Create(ctx, ticket))
		created = append(created, ticket)
	}
	err := tickets.Create(ctx, domain.NewTicket("first-id", "cust-1", "dup", "", nil))
	assert.True(t, repository.IsDuplicate(err, repository.ConstraintTicketID))

	// touching the first ticket moves it to the top
	require.NoError(t, tickets.Update(ctx, created[0]))

	all := repository.TicketFilter{Scope: domain.Scope{Kind: domain.ScopeAll}, Limit: 2}
	page, err := tickets.List(ctx, all)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "first", page[0].Subject)
	assert.Equal(t, "third", page[1].Subject)

	all.Offset = 2
	page, err = tickets.List(ctx, all)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "second", page[0].Subject)

	total, err := tickets.Count(ctx, all)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	counts, err := tickets.CountByStatus(ctx, domain.Scope{Kind: domain.ScopeAssigned, ProfileID: staff})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketCounts{InProgress: 1}, counts)

	counts, err = tickets.CountByStatus(ctx, domain.Scope{Kind: domain.ScopeCreated, ProfileID: "cust-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketCounts{Pending: 2, InProgress: 1}, counts)
}

func TestTicketCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	tickets := NewStore().Tickets()
	ticket := domain.NewTicket("tid", "cust-1", "s", "d", nil)
	require.NoError(t, tickets.Create(ctx, ticket))

	loaded, err := tickets.GetByTicketID(ctx, "tid")
	require.NoError(t, err)
	staff := "staff-1"
	loaded.AssignedToID = &staff

	again, err := tickets.GetByTicketID(ctx, "tid")
	require.NoError(t, err)
	assert.Nil(t, again.AssignedToID)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticketing-system/internal/domain"
)

func TestEmailServiceSendMarksSent(t *testing.T) {
	h := newHarness(t)
	h.acceptMail()
	ctx := context.Background()

	email, err := h.emails.Create(ctx, "from@tickets.test", "to@tickets.test", "Hello", "text", "<p>html</p>")
	require.NoError(t, err)
	assert.Equal(t, domain.EmailStatusReady, email.Status)

	require.NoError(t, h.emails.MarkSending(ctx, email))
	require.NoError(t, h.emails.Send(ctx, email))

	stored, err := h.store.Emails().GetByID(ctx, email.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmailStatusSent, stored.Status)
	require.NotNil(t, stored.SentAt)
	assert.True(t, stored.SentAt.Equal(h.clock))

	msgs := h.sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"to@tickets.test"}, msgs[0].To)
	assert.Equal(t, "<p>html</p>", msgs[0].HTML)
}

func TestEmailServiceSendRequiresSending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	email, err := h.emails.Create(ctx, "from@tickets.test", "to@tickets.test", "Hello", "text", "")
	require.NoError(t, err)

	err = h.emails.Send(ctx, email)
	var transition *domain.EmailTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, domain.EmailStatusReady, email.Status)
	h.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestEmailServiceSendFailureMarksFailed(t *testing.T) {
	h := newHarness(t)
	h.sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	ctx := context.Background()

	email, err := h.emails.Create(ctx, "from@tickets.test", "to@tickets.test", "Hello", "text", "")
	require.NoError(t, err)
	require.NoError(t, h.emails.MarkSending(ctx, email))

	err = h.emails.Send(ctx, email)
	var delivery *EmailDeliveryError
	require.ErrorAs(t, err, &delivery)
	assert.EqualError(t, delivery.Err, "smtp down")

	stored, err := h.store.Emails().GetByID(ctx, email.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmailStatusFailed, stored.Status)
	assert.Nil(t, stored.SentAt)
}

func TestSendRegistrationEmailEmbedsVerificationLink(t *testing.T) {
	h := newHarness(t)
	h.acceptMail()
	profile := h.seedProfile(t, "jane", domain.RoleCustomer)

	email, err := h.emails.SendRegistrationEmail(context.Background(), profile.User)
	require.NoError(t, err)
	assert.Equal(t, domain.EmailStatusSent, email.Status)
	assert.Equal(t, "Welcome to Our Service!", email.Subject)
	assert.Equal(t, "jane@tickets.test", email.To)

	msgs := h.sender.messages()
	require.Len(t, msgs, 1)
	token := tokenFromMessage(t, msgs[0])
	assert.Contains(t, msgs[0].HTML, token)
}

package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/optica-notifier/internal/model"
)

type mockEmail struct{ mock.Mock }

func (m *mockEmail) SendEmail(ctx context.Context, e Email) error {
	return m.Called(ctx, e).Error(0)
}

type mockSMS struct{ mock.Mock }

func (m *mockSMS) SendSMS(ctx context.Context, to, text string) error {
	return m.Called(ctx, to, text).Error(0)
}

func newTestGateway(email EmailSender, sms SMSSender) *Gateway {
	g := NewGateway(email, sms, NewRenderer("Dannig Óptica", "", time.UTC), nil)
	g.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return g
}

func TestGateway_EmailOnly(t *testing.T) {
	em := new(mockEmail)
	em.On("SendEmail", mock.Anything, mock.MatchedBy(func(e Email) bool {
		return e.To == "ana@example.com" && e.Subject == "S" && e.Text == "hola" && e.HTML != ""
	})).Return(nil).Once()

	res := newTestGateway(em, nil).Send(context.Background(), Request{
		Email: " ana@example.com ", Subject: "S", Message: "hola",
		Channels: []model.Channel{model.ChannelEmail},
	})

	assert.True(t, res.Any())
	assert.True(t, res.Delivered(model.ChannelEmail))
	assert.NoError(t, res.Err())
	em.AssertExpectations(t)
}

func TestGateway_ChannelsAreIndependent(t *testing.T) {
	em := new(mockEmail)
	em.On("SendEmail", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
	sm := new(mockSMS)
	sm.On("SendSMS", mock.Anything, "+56911112222", "S: hola").Return(nil).Once()

	res := newTestGateway(em, sm).Send(context.Background(), Request{
		Email: "ana@example.com", Phone: "9 1111 2222", Subject: "S", Message: "hola",
		Channels: []model.Channel{model.ChannelEmail, model.ChannelSMS},
	})

	require.Len(t, res.Channels, 2)
	assert.False(t, res.Delivered(model.ChannelEmail))
	assert.True(t, res.Delivered(model.ChannelSMS))
	assert.True(t, res.Any())
	assert.ErrorContains(t, res.Err(), "smtp down")
	em.AssertExpectations(t)
	sm.AssertExpectations(t)
}

func TestGateway_MissingAddressOrDisabled(t *testing.T) {
	sm := new(mockSMS)

	res := newTestGateway(nil, sm).Send(context.Background(), Request{
		Email: "ana@example.com", Phone: "  ", Subject: "S", Message: "m",
		Channels: []model.Channel{model.ChannelEmail, model.ChannelSMS, model.ChannelSMS},
	})

	require.Len(t, res.Channels, 2, "duplicate channel requests collapse")
	assert.False(t, res.Any())
	assert.ErrorIs(t, res.Channels[0].Err, ErrChannelDisabled)
	assert.ErrorIs(t, res.Channels[1].Err, ErrNoAddress)
	sm.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

func TestGateway_NoChannels(t *testing.T) {
	res := newTestGateway(NewLogSender(nil), NewLogSender(nil)).Send(context.Background(), Request{Email: "a@b.c"})
	assert.False(t, res.Any())
	assert.NoError(t, res.Err())
}

package notifysvc

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/tapchip-services/internal/comm"
)

type fakeBot struct {
	sent   []tgbotapi.MessageConfig
	failOn int64
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	if msg.ChatID == f.failOn {
		return tgbotapi.Message{}, errors.New("Forbidden: bot was blocked by the user")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{}, nil
}

func TestHandleLead(t *testing.T) {
	bot := &fakeBot{}
	tn := NewTelegramNotifier(bot, []int64{100, 200})
	phone, sentiment := "+15550100", "positive"
	data, err := comm.Encode(comm.TypeLead, comm.LeadNotice{ChipID: "chip-1", Name: "Sam", Email: "sam@example.com", LeadPhone: &phone, Sentiment: &sentiment})
	require.NoError(t, err)

	require.NoError(t, tn.handle(data))
	require.Len(t, bot.sent, 2)
	assert.Equal(t, int64(100), bot.sent[0].ChatID)
	assert.Equal(t, "New lead on chip chip-1: Sam <sam@example.com> tel +15550100 (positive)", bot.sent[0].Text)
}

func TestHandleClaim(t *testing.T) {
	bot := &fakeBot{}
	tn := NewTelegramNotifier(bot, []int64{100})
	data, err := comm.Encode(comm.TypeClaimed, comm.ClaimNotice{UID: "04A1B2", OwnerID: "u-1"})
	require.NoError(t, err)

	require.NoError(t, tn.handle(data))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, "Chip 04A1B2 claimed by user u-1", bot.sent[0].Text)
}

func TestHandleIgnoresTapsAndReportsFailures(t *testing.T) {
	bot := &fakeBot{failOn: 200}
	tn := NewTelegramNotifier(bot, []int64{100, 200})

	tap, err := comm.Encode(comm.TypeTap, comm.TapNotice{ChipID: "chip-1"})
	require.NoError(t, err)
	require.NoError(t, tn.handle(tap))
	assert.Empty(t, bot.sent)

	claim, err := comm.Encode(comm.TypeClaimed, comm.ClaimNotice{UID: "04A1B2"})
	require.NoError(t, err)
	err = tn.handle(claim)
	assert.ErrorContains(t, err, "chat 200")
	assert.Len(t, bot.sent, 1)

	assert.Error(t, tn.handle([]byte("{")))
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/care-booking/internal/email"
	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/repository/memory"
	"github.com/jwalitptl/care-booking/pkg/logger"
	"github.com/jwalitptl/care-booking/pkg/messaging"
	"github.com/jwalitptl/care-booking/pkg/metrics"
)

func quietLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func TestOutboxCleanup(t *testing.T) {
	store := memory.New()
	outbox := store.Repositories().Outbox
	ctx := context.Background()

	old, err := model.NewOutboxEvent(model.EventBookingCreated, struct{}{})
	require.NoError(t, err)
	recent, err := model.NewOutboxEvent(model.EventBookingCreated, struct{}{})
	require.NoError(t, err)
	pending, err := model.NewOutboxEvent(model.EventBookingCreated, struct{}{})
	require.NoError(t, err)
	for _, e := range []*model.OutboxEvent{old, recent, pending} {
		require.NoError(t, outbox.Create(ctx, e))
	}
	require.NoError(t, outbox.MarkProcessed(ctx, old.ID))
	require.NoError(t, outbox.MarkProcessed(ctx, recent.ID))

	m := metrics.NewMetrics("test", prometheus.NewRegistry())

	// Nothing is older than an hour yet.
	w := NewOutboxCleanupWorker(outbox, time.Hour, time.Minute, quietLogger(), m)
	n, err := w.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	w = NewOutboxCleanupWorker(outbox, -time.Minute, time.Minute, quietLogger(), m)
	n, err = w.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 1, store.Counts()["outbox"])
	assert.Equal(t, float64(2), testutil.ToFloat64(m.OutboxEventsPurged))
}

type stubProvisioner struct {
	companies []string
	err       error
}

func (s *stubProvisioner) ProvisionWidget(_ context.Context, companyID string) (string, error) {
	s.companies = append(s.companies, companyID)
	if s.err != nil {
		return "", s.err
	}
	return "https://" + companyID + ".simplybook.me/v2/", nil
}

func onboardedMessage(t *testing.T, payload model.ProviderOnboardedPayload) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	msg, err := json.Marshal(messaging.Message{ID: uuid.NewString(), Type: model.EventProviderOnboarded, Payload: raw})
	require.NoError(t, err)
	return msg
}

func TestOnboardingHandler(t *testing.T) {
	var sent []*gomail.Message
	mailer := email.NewServiceWithSender("noreply@example.com", gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		sent = append(sent, msg.(*gomail.Message))
		return nil
	}))
	provisioner := &stubProvisioner{}

	zl := zerolog.Nop()
	d := messaging.NewDispatcher(&zl)
	NewOnboardingHandler(provisioner, mailer, []string{"ops@example.com"}, quietLogger()).Register(d)

	err := d.Dispatch(context.Background(), onboardedMessage(t, model.ProviderOnboardedPayload{
		ProviderID:    uuid.New(),
		ApplicantName: "Dr. Nalu",
		ClinicName:    "Hilo Health",
		CompanyID:     "hilohealth",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"hilohealth"}, provisioner.companies)
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"New provider application: Dr. Nalu"}, sent[0].GetHeader("Subject"))

	err = d.Dispatch(context.Background(), onboardedMessage(t, model.ProviderOnboardedPayload{ApplicantName: "No Integration"}))
	require.NoError(t, err)
	assert.Len(t, provisioner.companies, 1)
	assert.Len(t, sent, 2)
}

func TestOnboardingHandlerStillMailsWhenProvisioningFails(t *testing.T) {
	mails := 0
	mailer := email.NewServiceWithSender("noreply@example.com", gomail.SendFunc(func(string, []string, io.WriterTo) error {
		mails++
		return nil
	}))
	boom := errors.New("breaker open")
	h := NewOnboardingHandler(&stubProvisioner{err: boom}, mailer, []string{"ops@example.com"}, quietLogger())

	raw, err := json.Marshal(model.ProviderOnboardedPayload{ApplicantName: "Dr. Nalu", CompanyID: "hilohealth"})
	require.NoError(t, err)

	err = h.Handle(context.Background(), messaging.Message{Type: model.EventProviderOnboarded, Payload: raw})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, mails)
}

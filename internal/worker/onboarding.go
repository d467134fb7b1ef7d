package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwalitptl/care-booking/internal/email"
	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/scheduling"
	"github.com/jwalitptl/care-booking/pkg/logger"
	"github.com/jwalitptl/care-booking/pkg/messaging"
)

// OnboardingHandler reacts to PROVIDER_ONBOARDED events: it provisions the
// scheduling widget when an integration was submitted and tells admins about
// the new application. Neither step can fail the onboarding itself.
type OnboardingHandler struct {
	provisioner scheduling.Provisioner
	mailer      email.Service
	adminEmails []string
	logger      *logger.Logger
}

func NewOnboardingHandler(provisioner scheduling.Provisioner, mailer email.Service, adminEmails []string, logger *logger.Logger) *OnboardingHandler {
	return &OnboardingHandler{
		provisioner: provisioner,
		mailer:      mailer,
		adminEmails: adminEmails,
		logger:      logger,
	}
}

// Register binds the handler on d.
func (h *OnboardingHandler) Register(d *messaging.Dispatcher) {
	d.Handle(model.EventProviderOnboarded, h.Handle)
}

func (h *OnboardingHandler) Handle(ctx context.Context, msg messaging.Message) error {
	var payload model.ProviderOnboardedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", msg.Type, err)
	}

	var errs []error
	if payload.CompanyID != "" {
		widgetURL, err := h.provisioner.ProvisionWidget(ctx, payload.CompanyID)
		if err != nil {
			errs = append(errs, err)
		} else {
			h.logger.Info("scheduling widget provisioned",
				"provider_id", payload.ProviderID.String(),
				"widget_url", widgetURL)
		}
	}

	if err := h.mailer.SendProviderApplication(ctx, h.adminEmails, &payload); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

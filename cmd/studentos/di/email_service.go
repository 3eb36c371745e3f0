package di

import (
	"github.com/samber/do/v2"

	"github.com/studentos/studentos/internal/email"
)

// EmailService wraps the outbound email sender.
type EmailService struct {
	Sender email.Sender
}

// NewEmailSender selects the email provider from configuration.
func NewEmailSender(i do.Injector) (*EmailService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	cfg := cfgSvc.Get()
	sender := email.NewSender(&cfg.Email, *loggerSvc.Logger)

	return &EmailService{Sender: sender}, nil
}

// Package verification is the email verification feature module.
package verification

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/0xmonas/cobbee/internal/audit"
	"github.com/0xmonas/cobbee/internal/pkg/clock"
	"github.com/0xmonas/cobbee/internal/pkg/config"
	"github.com/0xmonas/cobbee/internal/pkg/hash"
	"github.com/0xmonas/cobbee/internal/pkg/instrument"
	"github.com/0xmonas/cobbee/internal/pkg/mail"
	"github.com/0xmonas/cobbee/internal/pkg/ratelimit"
	"github.com/0xmonas/cobbee/internal/pkg/router"
	"github.com/0xmonas/cobbee/internal/pkg/uid"
	"github.com/0xmonas/cobbee/internal/pkg/validator"
	"github.com/0xmonas/cobbee/internal/verification/inbound"
	"github.com/0xmonas/cobbee/internal/verification/outbound/db"
	"github.com/0xmonas/cobbee/internal/verification/outbound/mailer"
	"github.com/0xmonas/cobbee/internal/verification/usecase"
)

// Dependency lists everything the module needs from the app bootstrap.
type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	Router     *router.Router             `validate:"required"`
	RateLimit  ratelimit.Limiter          `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Audit      *audit.Recorder            `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	Argon2ID   hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

// New validates the dependencies and wires the module into the router.
func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repo := db.NewDB(dep.DBConn, dep.Instrument)
	notify := mailer.NewMailer(dep.Mail, dep.Config, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:     repo,
		Notifier:   notify,
		Audit:      dep.Audit,
		Validator:  dep.Validator,
		Config:     dep.Config,
		Argon2ID:   dep.Argon2ID,
		UID:        dep.UID,
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, dep.RateLimit)

	return nil
}

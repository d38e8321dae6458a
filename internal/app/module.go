package app

import (
	"log/slog"
	"os"

	"github.com/0xmonas/cobbee/internal/verification"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.verification.enabled") {
		if err := verification.New(verification.Dependency{
			DBConn:     a.dbConn,
			Router:     a.router,
			RateLimit:  a.limiter,
			Mail:       a.mail,
			Audit:      a.audit,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			Argon2ID:   a.argon2id,
			Clock:      a.clock,
			Validator:  a.validator,
		}); err != nil {
			slog.Error("failed to init module verification", "error", err)
			os.Exit(1)
		}
	}
}

// Package services holds the auth core: account lifecycle, PIN login with
// lockout, and the admin-only account operations behind the authorization
// gate. Every account mutation runs in one transaction.
package services

import (
	"context"
	"database/sql"

	"github.com/pd15/saocontacts/internal/common"
	"github.com/pd15/saocontacts/internal/delivery"
	"github.com/pd15/saocontacts/internal/logging"
	"github.com/pd15/saocontacts/internal/metrics"
	"github.com/pd15/saocontacts/internal/policy"
	"github.com/pd15/saocontacts/internal/secret"
	"github.com/pd15/saocontacts/internal/server/repositories/repomanager"
	"github.com/pd15/saocontacts/internal/timex"
)

// Deps are shared by every service. Zero-valued optional fields get defaults.
type Deps struct {
	DB        *sql.DB
	Repos     repomanager.RepositoryManager
	Policy    policy.Policy
	Clock     timex.Clock
	Hasher    *secret.Hasher
	Generator *secret.Generator
	Deliverer delivery.Deliverer
	Logger    logging.Logger
	Metrics   *metrics.Metrics
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = timex.RealClock{}
	}
	if d.Hasher == nil {
		d.Hasher = secret.NewHasher(secret.DefaultParams, nil)
	}
	if d.Generator == nil {
		d.Generator = secret.NewGenerator(nil)
	}
	if d.Deliverer == nil {
		d.Deliverer = delivery.Func(func(context.Context, string, string, string) bool { return false })
	}
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	if len(d.Policy.AllowedDomains) == 0 && d.Policy.LockoutThreshold == 0 {
		d.Policy = policy.Default()
	}
	return d
}

type core struct {
	Deps
	log logging.Logger
}

func newCore(d Deps, module string) core {
	d = d.withDefaults()
	return core{Deps: d, log: d.Logger.With("module", module)}
}

// storeFailure passes taxonomy errors through and turns anything else into
// ErrStoreFailure after logging the cause.
func (c *core) storeFailure(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if common.KindOf(err) != common.KindUnknown {
		return err
	}
	c.log.Error(ctx, "store failure", "op", op, "err", err)
	return common.ErrStoreFailure
}

// deliver is best-effort: a failed delivery is logged and counted, never
// returned.
func (c *core) deliver(ctx context.Context, to string, msg delivery.Message) {
	ok := c.Deliverer.Deliver(ctx, to, msg.Subject, msg.Body)
	c.Metrics.Delivered(string(msg.Kind), ok)
	if !ok {
		c.log.Warn(ctx, "delivery failed", "kind", msg.Kind, "to", to)
	}
}

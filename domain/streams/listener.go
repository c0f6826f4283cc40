package streams

import (
	"context"
	"log/slog"

	"github.com/lib/pq"
	"go.uber.org/fx"

	"github.com/autumndb/autumndb/internal/config"
	"github.com/autumndb/autumndb/pkg/logger"
)

// channelName is the Postgres NOTIFY channel contract_notify() publishes
// to on every contracts insert/update/delete.
const channelName = "contract_changes"

// Listener wraps a pq.Listener on the contract_changes channel, feeding
// raw payloads to the Matcher. pq.Listener is used rather than hand
// rolled LISTEN/EXEC plumbing specifically for its ping-based reconnect
// loop: a dropped connection re-LISTENs on its own, which is exactly the
// "a lost listener reconnects automatically" behavior the stream matcher
// requires without extra code here.
type Listener struct {
	pql *pq.Listener
	log *slog.Logger
}

// NewListener opens (but does not yet start consuming) a pq.Listener
// against channelName.
func NewListener(lc fx.Lifecycle, cfg *config.Config, m *Matcher, log *slog.Logger) *Listener {
	log = log.With(logger.Scope("streams.listener"))

	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("listener event", slog.Any("event", ev), slog.Any("error", err))
		}
	}

	pql := pq.NewListener(cfg.Database.DSN(), cfg.Stream.RetryDelay, cfg.Stream.ReconnectDelay, reportProblem)
	l := &Listener{pql: pql, log: log}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := pql.Listen(channelName); err != nil {
				return err
			}
			go l.run(m)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return pql.Close()
		},
	})

	return l
}

// run drains notifications until the listener is closed. A nil
// notification is pq's own "reconnected, re-sync your state" signal;
// the matcher has nothing to resync here since every subscriber's
// re-query path is idempotent, so it's simply logged and ignored.
func (l *Listener) run(m *Matcher) {
	for n := range l.pql.Notify {
		if n == nil {
			l.log.Info("listener reconnected")
			continue
		}
		payload, err := parsePayload(n.Extra)
		if err != nil {
			l.log.Warn("malformed notification payload", slog.String("raw", n.Extra), slog.Any("error", err))
			continue
		}
		m.Dispatch(context.Background(), payload)
	}
}

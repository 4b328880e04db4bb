package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lazypower/forgeone/internal/client"
	"github.com/lazypower/forgeone/internal/engine"
	"github.com/lazypower/forgeone/internal/ledger"
	"github.com/lazypower/forgeone/internal/recall"
	"github.com/lazypower/forgeone/internal/store"
)

// stack is everything a command needs on top of the local database.
type stack struct {
	db     *store.DB
	ledger *ledger.Ledger
	recall *recall.Recall
	engine *engine.Engine
	detach func()
}

// openStack opens the configured database and wires the ledger, recall and
// engine together. Recall is attached so local writes produce anchors.
func openStack() (*stack, error) {
	path := cfg.Database.Path
	if path == "" {
		var err error
		path, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	l := ledger.New(db, ledger.WithLogger(logger))
	rc := recall.New(db, recall.WithLogger(logger))
	return &stack{
		db:     db,
		ledger: l,
		recall: rc,
		engine: engine.New(l, rc, engine.WithLogger(logger), engine.WithInsights(cfg.Insights)),
		detach: rc.Attach(l),
	}, nil
}

func (s *stack) Close() error {
	s.detach()
	return s.db.Close()
}

// reachableServer returns a client for the configured server if one answers.
// Commands that write go through it when it does: the server holds the
// ledger in memory and would only see a direct database write on its next
// mutation.
func reachableServer() (*client.Client, bool) {
	c := client.New(cfg.ServerURL())
	if !c.Healthy() {
		logger.Debug("server unreachable, using the local database", zap.String("url", cfg.ServerURL()))
		return nil, false
	}
	logger.Debug("using server", zap.String("url", cfg.ServerURL()))
	return c, true
}

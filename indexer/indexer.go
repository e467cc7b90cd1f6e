/*
Package indexer follows the deposit event log of a ledger and keeps an
off-ledger SQLite index of the funded commitments.
*/
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/cosmicpool/cosmicpool/logger"
	"github.com/cosmicpool/cosmicpool/types"
)

const defaultRetryDelay = 3 * time.Second

type Indexer struct {
	store      *Store
	source     Source
	retryDelay time.Duration
	log        logger.Logger
}

func New(store *Store, source Source, log logger.Logger) *Indexer {
	return &Indexer{store: store, source: source, retryDelay: defaultRetryDelay, log: log}
}

/*
Run indexes events until ctx is cancelled. Source errors are logged and the
stream is restarted from the last indexed event after a delay.
*/
func (ix *Indexer) Run(ctx context.Context) error {
	for {
		last, err := ix.store.LastSeq(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading index position: %w", err)
		}
		ix.log.Debug("indexing events from %d", last+1)
		err = ix.source.Stream(ctx, last+1, func(ev *types.DepositEvent) error {
			if err := ix.store.Add(ctx, ev); err != nil {
				return err
			}
			ix.log.Trace("indexed deposit %d: %s", ev.DepositCount, ev.Commitment)
			return nil
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			ix.log.Warning("event stream interrupted: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(ix.retryDelay):
		}
	}
}

package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/cosmicpool/cosmicpool/client"
	"github.com/cosmicpool/cosmicpool/pool"
	"github.com/cosmicpool/cosmicpool/rpc"
	"github.com/cosmicpool/cosmicpool/types"
)

const replayBatch = 100

var errSubscriptionDropped = errors.New("subscription dropped")

/*
Source delivers deposit events in sequence order. Stream calls fn for every
event starting with sequence number from until ctx is cancelled or an error
occurs, it returns nil only when ctx was cancelled.
*/
type Source interface {
	Stream(ctx context.Context, from uint64, fn func(*types.DepositEvent) error) error
}

// LedgerSource reads events from an in-process ledger.
type LedgerSource struct {
	Ledger *pool.Ledger
}

func (s *LedgerSource) Stream(ctx context.Context, from uint64, fn func(*types.DepositEvent) error) error {
	sub := s.Ledger.Subscribe()
	defer sub.Close()

	next := from
	for {
		events, err := s.Ledger.Events(next, replayBatch)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if err := fn(ev); err != nil {
				return err
			}
			next = ev.DepositCount + 1
		}
		if len(events) < replayBatch {
			break
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C:
			if !ok {
				return errSubscriptionDropped
			}
			if ev.DepositCount < next {
				continue
			}
			if err := fn(ev); err != nil {
				return err
			}
			next = ev.DepositCount + 1
		}
	}
}

// RemoteSource reads events from the websocket event stream of a node.
type RemoteSource struct {
	Client *client.LedgerClient
	Dialer *websocket.Dialer
}

func (s *RemoteSource) Stream(ctx context.Context, from uint64, fn func(*types.DepositEvent) error) error {
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, s.Client.EventStreamURL(from), nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connecting to event stream: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		msg := &rpc.EventResponse{}
		if err := conn.ReadJSON(msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading event stream: %w", err)
		}
		amount, err := types.ParseWei(msg.Amount)
		if err != nil {
			return fmt.Errorf("event %d: %w", msg.DepositCount, err)
		}
		if err := fn(&types.DepositEvent{Commitment: msg.Commitment, Amount: amount, DepositCount: msg.DepositCount}); err != nil {
			return err
		}
	}
}

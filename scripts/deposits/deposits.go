package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/cosmicpool/cosmicpool/account"
	"github.com/cosmicpool/cosmicpool/client"
	"github.com/cosmicpool/cosmicpool/commitment"
	"github.com/cosmicpool/cosmicpool/types"
)

/*
Example usage
go run scripts/deposits/deposits.go --key-file ~/.cosmicpool/keys.json --node-uri localhost:9654 --count 100 --workers 8
*/
func main() {
	// parse command line parameters
	keyFile := flag.String("key-file", "", "key file of the depositor")
	uri := flag.String("node-uri", "", "cosmicpool node uri where to send the deposits")
	count := flag.Int("count", 1, "number of deposits")
	workers := flag.Int("workers", 4, "number of concurrent requests")
	flag.Parse()

	// verify command line parameters
	if *keyFile == "" {
		log.Fatal("key-file is required")
	}
	if *uri == "" {
		log.Fatal("node-uri is required")
	}
	if *count <= 0 || *workers <= 0 {
		log.Fatal("count and workers must be positive")
	}

	keys, err := account.LoadKeys(*keyFile)
	if err != nil {
		log.Fatal(err)
	}
	c, err := client.New(*uri)
	if err != nil {
		log.Fatal(err)
	}
	accepted, err := sendDeposits(context.Background(), c, keys.AccountKey, *count, *workers)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("%d deposits accepted", accepted)
}

// sendDeposits submits count deposits with random secrets and returns the number accepted.
func sendDeposits(ctx context.Context, c *client.LedgerClient, key *account.AccountKey, count, workers int) (uint64, error) {
	info, err := c.GetInfo(ctx)
	if err != nil {
		return 0, err
	}
	amount, err := types.ParseWei(info.DepositAmount)
	if err != nil {
		return 0, fmt.Errorf("invalid deposit amount: %w", err)
	}

	var accepted atomic.Uint64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			secret, err := commitment.NewSecret(commitment.DefaultScheme)
			if err != nil {
				return err
			}
			cm, err := commitment.Compute(commitment.DefaultScheme, secret)
			if err != nil {
				return err
			}
			if _, err := c.Deposit(ctx, key, info.Address, cm, amount); err != nil {
				return err
			}
			accepted.Add(1)
			return nil
		})
	}
	err = g.Wait()
	return accepted.Load(), err
}

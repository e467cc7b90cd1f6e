package pool

import (
	"github.com/holiman/uint256"

	"github.com/cosmicpool/cosmicpool/logger"
)

const defaultSubscriberBuffer = 64

// DefaultDepositAmount is 0.0001 ether in wei.
var DefaultDepositAmount = uint256.NewInt(100_000_000_000_000)

type (
	Options struct {
		depositAmount    *uint256.Int
		subscriberBuffer int
		log              logger.Logger
	}

	Option func(*Options)
)

func defaultOptions() *Options {
	return &Options{
		depositAmount:    DefaultDepositAmount.Clone(),
		subscriberBuffer: defaultSubscriberBuffer,
		log:              logger.CreateForPackage(),
	}
}

// WithDepositAmount sets the denomination of a new ledger. It is ignored when
// an existing ledger is opened, the stored denomination is used instead.
func WithDepositAmount(amount *uint256.Int) Option {
	return func(o *Options) {
		if amount != nil {
			o.depositAmount = amount.Clone()
		}
	}
}

// WithSubscriberBuffer sets the capacity of subscription channels.
func WithSubscriberBuffer(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.subscriberBuffer = size
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(o *Options) {
		if log != nil {
			o.log = log
		}
	}
}

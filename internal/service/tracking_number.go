package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"gorm.io/gorm"
)

const (
	trackingPrefix      = "TRK"
	trackingDigits      = 8
	maxTrackingAttempts = 5
)

// ErrTrackingNumberExhausted indicates every generated tracking number collided.
var ErrTrackingNumberExhausted = errors.New("could not allocate a unique tracking number")

var trackingUpperBound = big.NewInt(90_000_000)

// TrackingNumberGenerator produces candidate tracking numbers.
type TrackingNumberGenerator func() (string, error)

// NewTrackingNumberGenerator returns a generator drawing TRK + 8 digits from the given source.
func NewTrackingNumberGenerator(source io.Reader) TrackingNumberGenerator {
	if source == nil {
		source = rand.Reader
	}
	return func() (string, error) {
		n, err := rand.Int(source, trackingUpperBound)
		if err != nil {
			return "", fmt.Errorf("generate tracking number: %w", err)
		}
		return fmt.Sprintf("%s%0*d", trackingPrefix, trackingDigits, n.Int64()+10_000_000), nil
	}
}

// allocateTrackingNumber keeps drawing numbers until insert succeeds.
// insert is retried when the number is already taken or the unique index rejects it.
func allocateTrackingNumber(ctx context.Context, generate TrackingNumberGenerator, exists func(context.Context, string) (bool, error), insert func(string) error) (string, error) {
	for attempt := 0; attempt < maxTrackingAttempts; attempt++ {
		candidate, err := generate()
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if taken {
			continue
		}

		if err := insert(candidate); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return "", err
		}
		return candidate, nil
	}

	return "", ErrTrackingNumberExhausted
}

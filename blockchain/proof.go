package blockchain

import (
	"context"
	"fmt"

	"github.com/holbertonschool/atlas-blockchain/chainerr"
)

// ErrMiningCancelled is returned by Mine when ctx is done before a valid
// hash is found.
var ErrMiningCancelled = fmt.Errorf("mining cancelled")

// Mine repeatedly recomputes the block's hash, incrementing Nonce each time
// it misses the difficulty target, until computeHash satisfies
// HashMatchesDifficulty. Unlike finding a valid nonce, verifying one later
// is a single hash computation — that asymmetry is the whole point of
// proof-of-work.
//
// difficulty above 256 can never be satisfied and would loop forever, so
// Mine rejects it up front instead of spinning (see SPEC_FULL.md §9). ctx
// is checked once per iteration; a caller that wants to abort a long-running
// mine cancels ctx instead of the core spawning its own cancellable worker.
func (b *Block) Mine(ctx context.Context) error {
	if b.Info.Difficulty > 256 {
		return chainerr.New(chainerr.InvalidArgument, "Block.Mine", fmt.Errorf("difficulty %d exceeds the 256-bit maximum", b.Info.Difficulty))
	}

	for {
		select {
		case <-ctx.Done():
			return chainerr.New(chainerr.ValidationFailure, "Block.Mine", ErrMiningCancelled)
		default:
		}

		hash := b.computeHash()
		if HashMatchesDifficulty(hash, b.Info.Difficulty) {
			b.Hash = hash
			return nil
		}
		b.Info.Nonce++ // wraps at u64; unreachable in practice
	}
}

package routing

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"

	"github.com/switchpay/routing/types"
)

// PerformVolumeSplit selects one connector from a weighted split and moves it
// to the head of the list; the remaining choices keep their original order so
// callers can treat the result as a priority list with deterministic
// fallbacks.
//
// A non-empty seed makes the selection deterministic: the seed is hashed with
// a stable non-cryptographic 64-bit hash and drives a ChaCha-family PRNG, so
// the same (splits, seed) pair always selects the same winner.
func PerformVolumeSplit(splits []types.ConnectorVolumeSplit, seed string) ([]types.RoutableConnectorChoice, error) {
	if len(splits) == 0 {
		return nil, newRoutingError(ErrCodeVolumeSplitFailed, "no connector splits to select from")
	}

	var total int64
	for _, sp := range splits {
		total += int64(sp.Split)
	}
	if total == 0 {
		return nil, newRoutingError(ErrCodeVolumeSplitFailed, "connector split weights are all zero")
	}

	var draw int64
	if seed != "" {
		rng := rand.NewChaCha8(chachaSeed(seed))
		draw = int64(rng.Uint64() % uint64(total))
	} else {
		draw = rand.Int64N(total)
	}

	idx := -1
	var cumulative int64
	for i, sp := range splits {
		cumulative += int64(sp.Split)
		if draw < cumulative {
			idx = i
			break
		}
	}
	// The cumulative walk covers [0, total), so idx is always set; keep the
	// guard anyway rather than index blindly.
	if idx < 0 || idx >= len(splits) {
		return nil, newRoutingError(ErrCodeVolumeSplitFailed, "volume split index lookup failed")
	}

	selection := make([]types.RoutableConnectorChoice, 0, len(splits))
	selection = append(selection, splits[idx].Connector)
	for i, sp := range splits {
		if i != idx {
			selection = append(selection, sp.Connector)
		}
	}
	return selection, nil
}

// chachaSeed expands a stable 64-bit hash of the seed string into the
// 32-byte ChaCha8 seed.
func chachaSeed(seed string) [32]byte {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(seed))
	hash := hasher.Sum64()

	var out [32]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(out[i*8:], hash)
	}
	return out
}

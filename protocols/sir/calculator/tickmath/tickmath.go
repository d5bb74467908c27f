package tickmath

import (
	"errors"
	"sync"

	"github.com/holiman/uint256"
)

// Ticks are X42 fixed-point logarithms of a price in base 1.0001:
// tickX42 = log_1.0001(price) * 2^42. Ratios are prices in X64 fixed point.

const (
	// MaxTickX42 is the largest tick whose ratio stays below 2^128, i.e. a price just below 2^64.
	MaxTickX42 = int64(1951133415219145403)
	// MinTickX42 is the smallest tick accepted by GetRatioAtTick.
	MinTickX42 = -MaxTickX42
)

var (
	ErrTickOutOfBounds  = errors.New("tick out of bounds")
	ErrRatioOutOfBounds = errors.New("ratio out of bounds")

	q128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	q192 = new(uint256.Int).Lsh(uint256.NewInt(1), 192)

	// MinRatioX64 is the ratio at MinTickX42.
	MinRatioX64 = uint256.NewInt(1)
	// MaxRatioX64 is the ratio at MaxTickX42.
	MaxRatioX64 = uint256.MustFromDecimal("340282366920938458438744599673551437200")

	// ratioConstants[i] is 1.0001^(2^i / 2^42) in Q128.128, rounded down.
	ratioConstants = [61]*uint256.Int{
		uint256.MustFromHex("0x100000000000001a368d06580000c7002"),          // 1.0001^(2^0 / 2^42)
		uint256.MustFromHex("0x10000000000000346d1a0cb00001b8f24"),          // 1.0001^(2^1 / 2^42)
		uint256.MustFromHex("0x1000000000000068da34196000041dac9"),          // 1.0001^(2^2 / 2^42)
		uint256.MustFromHex("0x10000000000000d1b46832c0000aea798"),          // 1.0001^(2^3 / 2^42)
		uint256.MustFromHex("0x10000000000001a368d06580002091741"),          // 1.0001^(2^4 / 2^42)
		uint256.MustFromHex("0x1000000000000346d1a0cb00006c14ec8"),          // 1.0001^(2^5 / 2^42)
		uint256.MustFromHex("0x100000000000068da34196000183f1ea4"),          // 1.0001^(2^6 / 2^42)
		uint256.MustFromHex("0x1000000000000d1b46832c0005b70419a"),          // 1.0001^(2^7 / 2^42)
		uint256.MustFromHex("0x1000000000001a368d065800162a8947a"),          // 1.0001^(2^8 / 2^42)
		uint256.MustFromHex("0x100000000000346d1a0cb000574716e0c"),          // 1.0001^(2^9 / 2^42)
		uint256.MustFromHex("0x10000000000068da341960015a563f071"),          // 1.0001^(2^10 / 2^42)
		uint256.MustFromHex("0x100000000000d1b46832c00563ccc3246"),          // 1.0001^(2^11 / 2^42)
		uint256.MustFromHex("0x100000000001a368d0658015841a9aa1c"),          // 1.0001^(2^12 / 2^42)
		uint256.MustFromHex("0x10000000000346d1a0cb0055fa3986a75"),          // 1.0001^(2^13 / 2^42)
		uint256.MustFromHex("0x1000000000068da341960157bc8452de1"),          // 1.0001^(2^14 / 2^42)
		uint256.MustFromHex("0x10000000000d1b46832c055e994dbbfa6"),          // 1.0001^(2^15 / 2^42)
		uint256.MustFromHex("0x10000000001a368d06581579b3afd0f21"),          // 1.0001^(2^16 / 2^42)
		uint256.MustFromHex("0x1000000000346d1a0cb055e56bb105fc6"),          // 1.0001^(2^17 / 2^42)
		uint256.MustFromHex("0x100000000068da3419615792e8a79d730"),          // 1.0001^(2^18 / 2^42)
		uint256.MustFromHex("0x1000000000d1b46832c55e461665899a3"),          // 1.0001^(2^19 / 2^42)
		uint256.MustFromHex("0x1000000001a368d06595790d41249460b"),          // 1.0001^(2^20 / 2^42)
		uint256.MustFromHex("0x100000000346d1a0cb55e41ed3b160506"),          // 1.0001^(2^21 / 2^42)
		uint256.MustFromHex("0x10000000068da3419757904eed1535c93"),          // 1.0001^(2^22 / 2^42)
		uint256.MustFromHex("0x100000000d1b4683315e40e2f180f7985"),          // 1.0001^(2^23 / 2^42)
		uint256.MustFromHex("0x100000001a368d066d7902da44c1da6e3"),          // 1.0001^(2^24 / 2^42)
		uint256.MustFromHex("0x10000000346d1a0d05e40a0633b13afee"),          // 1.0001^(2^25 / 2^42)
		uint256.MustFromHex("0x1000000068da341ab7902554298757ed7"),          // 1.0001^(2^26 / 2^42)
		uint256.MustFromHex("0x10000000d1b468381e408fd0271882dff"),          // 1.0001^(2^27 / 2^42)
		uint256.MustFromHex("0x10000001a368d07af9023485fa0aad9d0"),          // 1.0001^(2^28 / 2^42)
		uint256.MustFromHex("0x1000000346d1a120e408bed5810ef22bb"),          // 1.0001^(2^29 / 2^42)
		uint256.MustFromHex("0x100000068da342ed9022e668229d8f7a5"),          // 1.0001^(2^30 / 2^42)
		uint256.MustFromHex("0x1000000d1b46888a408bfc7c2c1d7d73a"),          // 1.0001^(2^31 / 2^42)
		uint256.MustFromHex("0x1000001a368d1bd102351d631c7575998"),          // 1.0001^(2^32 / 2^42)
		uint256.MustFromHex("0x100000346d1a62940901fa4aa893ed8f7"),          // 1.0001^(2^33 / 2^42)
		uint256.MustFromHex("0x10000068da3570f0257c61739935c10c4"),          // 1.0001^(2^34 / 2^42)
		uint256.MustFromHex("0x100000d1b46d9100a1a5ecddd50439a62"),          // 1.0001^(2^35 / 2^42)
		uint256.MustFromHex("0x100001a368e5de82e45c3715b89fcec9b"),          // 1.0001^(2^36 / 2^42)
		uint256.MustFromHex("0x10000346d1f6af0e7fd7a8c6e0f0bac6d"),          // 1.0001^(2^37 / 2^42)
		uint256.MustFromHex("0x1000068da4992651731bf906853b509b1"),          // 1.0001^(2^38 / 2^42)
		uint256.MustFromHex("0x10000d1b4be16e016b81af61bb7c0174b"),          // 1.0001^(2^39 / 2^42)
		uint256.MustFromHex("0x10001a36a27f65e2aa76c1b735c9af5bf"),          // 1.0001^(2^40 / 2^42)
		uint256.MustFromHex("0x1000346d6ff11672ae55ad00f5c38565c"),          // 1.0001^(2^41 / 2^42)
		uint256.MustFromHex("0x100068db8bac710cb295e9e1b089a0275"),          // 1.0001^(2^42 / 2^42)
		uint256.MustFromHex("0x1000d1b9c68abe5f76b30fb7581b74fb7"),          // 1.0001^(2^43 / 2^42)
		uint256.MustFromHex("0x1001a37e4a234cb0830516e519450a145"),          // 1.0001^(2^44 / 2^42)
		uint256.MustFromHex("0x100347278ab0e92ada25ab46019279f8f"),          // 1.0001^(2^45 / 2^42)
		uint256.MustFromHex("0x10068efb00a525480a5d7fdc2ccf5998f"),          // 1.0001^(2^46 / 2^42)
		uint256.MustFromHex("0x100d20a63b4173839df9daaa568442ce5"),          // 1.0001^(2^47 / 2^42)
		uint256.MustFromHex("0x101a4c11c742dd7729738df5e966396f0"),          // 1.0001^(2^48 / 2^42)
		uint256.MustFromHex("0x1034c35c31f64cfa6dc0d6de43d0881d3"),          // 1.0001^(2^49 / 2^42)
		uint256.MustFromHex("0x106a34b78c8aaffbf81bed5a32b0fce74"),          // 1.0001^(2^50 / 2^42)
		uint256.MustFromHex("0x10d72a6a46ccd8bce9ae771b16294a7ea"),          // 1.0001^(2^51 / 2^42)
		uint256.MustFromHex("0x11b9a258e63928596dc757faa33154df6"),          // 1.0001^(2^52 / 2^42)
		uint256.MustFromHex("0x13a2e2bda04f8379f3cd17be5c343d452"),          // 1.0001^(2^53 / 2^42)
		uint256.MustFromHex("0x181954be69e0da8fe77f2ab42e87cf511"),          // 1.0001^(2^54 / 2^42)
		uint256.MustFromHex("0x244c2655d185a02908025287709061f74"),          // 1.0001^(2^55 / 2^42)
		uint256.MustFromHex("0x525816eeb9f935b1c616779e807e264b2"),          // 1.0001^(2^56 / 2^42)
		uint256.MustFromHex("0x1a7c8d00b551684ff4d31ae06501b81fa7"),         // 1.0001^(2^57 / 2^42)
		uint256.MustFromHex("0x2bd893d0b2df7c97884590c66cde3d18ca0"),        // 1.0001^(2^58 / 2^42)
		uint256.MustFromHex("0x78278e1e19e448cf8b95d2152dccf4128f29d"),      // 1.0001^(2^59 / 2^42)
		uint256.MustFromHex("0x38651b58d457501416feade3193a21b785e9f303f7"), // 1.0001^(2^60 / 2^42)
	}
)

// tickMath holds scratch values reused across calls.
type tickMath struct {
	ratio uint256.Int
	mid   uint256.Int
}

var pool = sync.Pool{
	New: func() any {
		return new(tickMath)
	},
}

// GetRatioAtTick sets dest to 1.0001^(tickX42 / 2^42) * 2^64, rounded down.
// Every multiplication keeps 128 fractional bits, so the result is exact for
// most ticks and otherwise falls short of the exact floor by a few units.
func GetRatioAtTick(dest *uint256.Int, tickX42 int64) error {
	if tickX42 < MinTickX42 || tickX42 > MaxTickX42 {
		return ErrTickOutOfBounds
	}

	tm := pool.Get().(*tickMath)
	defer pool.Put(tm)

	absTick := tickX42
	if tickX42 < 0 {
		absTick = -tickX42
	}

	tm.ratio.Set(q128)
	for i := 0; absTick != 0; i++ {
		if absTick&1 != 0 {
			tm.ratio.MulDivOverflow(&tm.ratio, ratioConstants[i], q128)
		}
		absTick >>= 1
	}

	// ratio is now 1.0001^|tick| in Q128 and lies in [2^128, 2^192).
	if tickX42 < 0 {
		dest.Div(q192, &tm.ratio)
		return nil
	}
	dest.Rsh(&tm.ratio, 64)
	return nil
}

// GetTickAtRatio returns the greatest tick whose ratio is at most ratioX64.
// Neighbouring negative ticks can share a ratio; the greatest of them is returned.
func GetTickAtRatio(ratioX64 *uint256.Int) (int64, error) {
	if ratioX64.Lt(MinRatioX64) || ratioX64.Gt(MaxRatioX64) {
		return 0, ErrRatioOutOfBounds
	}

	tm := pool.Get().(*tickMath)
	defer pool.Put(tm)

	low, high := MinTickX42, MaxTickX42
	tick := MinTickX42
	for low <= high {
		mid := low + (high-low)/2
		if err := GetRatioAtTick(&tm.mid, mid); err != nil {
			return 0, err
		}
		if tm.mid.Cmp(ratioX64) <= 0 {
			tick = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	return tick, nil
}

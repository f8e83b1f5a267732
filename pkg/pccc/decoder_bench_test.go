package pccc

import (
	"fmt"
	"testing"

	"golang.org/x/exp/rand"
)

func benchmarkDecode[F float32 | float64](b *testing.B) {
	for _, n := range []int{64, 128, 256, 512, 1024, 2048, 4096} {
		rng := rand.New(rand.NewSource(0))
		bits := randomBits(rng, n)
		il, _ := NewRandomInterleaver(n, rng)
		cw, _ := Encode(bits, il, lte)
		llrs := SoftBits(cw, F(1))

		dec, err := NewTurboDecoder[F](il, lte, LinearLogMAP(8, DefaultTableSize))
		if err != nil {
			b.Fatalf("NewTurboDecoder failed: %v", err)
		}
		got, err := dec.Decode(llrs)
		if err != nil || CountBitErrors(got, bits) != 0 {
			b.Fatalf("sanity decode failed: err=%v", err)
		}

		b.Run(fmt.Sprintf("block=%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := dec.Decode(llrs); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDecodeF32(b *testing.B) { benchmarkDecode[float32](b) }

func BenchmarkDecodeF64(b *testing.B) { benchmarkDecode[float64](b) }

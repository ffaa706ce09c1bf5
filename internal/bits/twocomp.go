package bits

// IntN interprets the n least significant bits of x as a two's complement
// signed integer, sign extending to 64 bits.
//
//	IntN(0b011, 3) == 3
//	IntN(0b000, 3) == 0
//	IntN(0b111, 3) == -1
//	IntN(0b100, 3) == -4
func IntN(x uint64, n uint) int64 {
	return int64(x<<(64-n)) >> (64 - n)
}

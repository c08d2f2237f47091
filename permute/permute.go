// Package permute builds the deterministic shard permutation used for
// random-access windowed streaming.
package permute

// SplitMix64 is the fixed-increment splitmix64 generator used to drive
// the Fisher-Yates shuffle deterministically from a seed.
func SplitMix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}

// Build returns a deterministic permutation of [0, n) driven by seed.
// Seed 0 is remapped to 1, matching the reference generator (splitmix64
// of zero produces a degenerate but still-deterministic stream; the
// remap avoids relying on that).
func Build(n int, seed uint64) []uint32 {
	p := make([]uint32, n)
	for i := range p {
		p[i] = uint32(i)
	}
	if seed == 0 {
		seed = 1
	}
	st := seed
	for i := n; i > 1; i-- {
		st = SplitMix64(st)
		j := st % uint64(i)
		p[i-1], p[j] = p[j], p[i-1]
	}
	return p
}

// Identity returns the identity permutation of [0, n).
func Identity(n int) []uint32 {
	p := make([]uint32, n)
	for i := range p {
		p[i] = uint32(i)
	}
	return p
}

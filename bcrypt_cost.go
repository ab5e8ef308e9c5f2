//go:build !race

package identity

// passwordHashCost trades hashing latency for resistance to offline cracking.
// The hashing primitive, not this layer, is responsible for running in
// time independent of the input.
func passwordHashCost() int {
	return 14
}

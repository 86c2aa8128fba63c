package volume

import "sync"

// Tap is one (destination position, filter tap) pair of a connection map.
type Tap struct {
	Dst int // Output position whose window reads the source
	Tap int // Offset of the source inside that window
}

// ConnectionMap lists, for every source position along one dimension, the
// window positions that read it and at which tap.
//
// A ConnectionMap depends only on (length, size, stride) and is never
// mutated after construction, so one instance is shared by every layer and
// clone that needs it.
type ConnectionMap struct {
	Length int
	Size   int
	Stride int
	taps   [][]Tap
}

// At returns the taps reading source position i.
func (m *ConnectionMap) At(i int) []Tap {
	return m.taps[i]
}

// NewConnectionMap builds a connection map without consulting the cache.
//
// Windows start at 0, stride, 2*stride, ... while the whole window fits, which
// matches the floor rounding of ConvOutputSize.
func NewConnectionMap(length, size, stride int) *ConnectionMap {
	taps := make([][]Tap, length)
	for start := 0; start+size-1 < length; start += stride {
		for j := 0; j < size; j++ {
			taps[start+j] = append(taps[start+j], Tap{Dst: start / stride, Tap: j})
		}
	}
	return &ConnectionMap{Length: length, Size: size, Stride: stride, taps: taps}
}

type connectionKey struct {
	length, size, stride int
}

var connectionMaps sync.Map // connectionKey -> *ConnectionMap

// ConnectionMapFor returns the shared connection map for the triple,
// building it on first use.
func ConnectionMapFor(length, size, stride int) *ConnectionMap {
	key := connectionKey{length: length, size: size, stride: stride}
	if m, ok := connectionMaps.Load(key); ok {
		return m.(*ConnectionMap)
	}
	m, _ := connectionMaps.LoadOrStore(key, NewConnectionMap(length, size, stride))
	return m.(*ConnectionMap)
}

// Package voxel keeps a sparse record of the blocks a command stream has
// placed, so later passes can ask what is already built.
package voxel

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"voxelmaze.ai/internal/geometry"
)

const ChunkSize = 16

// Solidity decides which block ids count as solid material.
type Solidity interface {
	IsSolid(block string) bool
}

type ChunkKey struct {
	CX, CY, CZ int
}

type Chunk struct {
	CX, CY, CZ int
	Blocks     []uint16 // palette ids, len = 16*16*16, 0 = air
}

func (c *Chunk) index(x, y, z int) int {
	return x + z*ChunkSize + y*ChunkSize*ChunkSize
}

func (c *Chunk) Get(x, y, z int) uint16 { return c.Blocks[c.index(x, y, z)] }

func (c *Chunk) Set(x, y, z int, b uint16) { c.Blocks[c.index(x, y, z)] = b }

// Store is an unbounded voxel volume. Voxels never written read as air.
type Store struct {
	solid   Solidity
	palette []string
	index   map[string]uint16
	Chunks  map[ChunkKey]*Chunk
}

func NewStore(solid Solidity) *Store {
	return &Store{
		solid:   solid,
		palette: []string{"air"},
		index:   map[string]uint16{"air": 0},
		Chunks:  map[ChunkKey]*Chunk{},
	}
}

func (s *Store) paletteID(block string) uint16 {
	if id, ok := s.index[block]; ok {
		return id
	}
	id := uint16(len(s.palette))
	s.palette = append(s.palette, block)
	s.index[block] = id
	return id
}

func (s *Store) chunk(x, y, z int, create bool) (*Chunk, int, int, int) {
	k := ChunkKey{FloorDiv(x, ChunkSize), FloorDiv(y, ChunkSize), FloorDiv(z, ChunkSize)}
	lx, ly, lz := Mod(x, ChunkSize), Mod(y, ChunkSize), Mod(z, ChunkSize)
	ch, ok := s.Chunks[k]
	if !ok {
		if !create {
			return nil, lx, ly, lz
		}
		ch = &Chunk{CX: k.CX, CY: k.CY, CZ: k.CZ, Blocks: make([]uint16, ChunkSize*ChunkSize*ChunkSize)}
		s.Chunks[k] = ch
	}
	return ch, lx, ly, lz
}

func (s *Store) Get(v geometry.Vec3) string {
	ch, lx, ly, lz := s.chunk(v.X, v.Y, v.Z, false)
	if ch == nil {
		return "air"
	}
	return s.palette[ch.Get(lx, ly, lz)]
}

func (s *Store) Set(v geometry.Vec3, block string) {
	id := s.paletteID(block)
	if id == 0 {
		// Clearing never needs to allocate.
		if ch, lx, ly, lz := s.chunk(v.X, v.Y, v.Z, false); ch != nil {
			ch.Set(lx, ly, lz, 0)
		}
		return
	}
	ch, lx, ly, lz := s.chunk(v.X, v.Y, v.Z, true)
	ch.Set(lx, ly, lz, id)
}

func (s *Store) Fill(b geometry.Box, block string) {
	if b.Empty() {
		return
	}
	for y := b.Min.Y; y <= b.Max.Y; y++ {
		for z := b.Min.Z; z <= b.Max.Z; z++ {
			for x := b.Min.X; x <= b.Max.X; x++ {
				s.Set(geometry.Vec3{X: x, Y: y, Z: z}, block)
			}
		}
	}
}

// IsSolid reports whether the voxel at v currently holds solid material.
func (s *Store) IsSolid(v geometry.Vec3) bool {
	b := s.Get(v)
	if b == "air" {
		return false
	}
	if s.solid == nil {
		return true
	}
	return s.solid.IsSolid(b)
}

// CountSolid counts solid voxels in b.
func (s *Store) CountSolid(b geometry.Box) int {
	n := 0
	if b.Empty() {
		return 0
	}
	for y := b.Min.Y; y <= b.Max.Y; y++ {
		for z := b.Min.Z; z <= b.Max.Z; z++ {
			for x := b.Min.X; x <= b.Max.X; x++ {
				if s.IsSolid(geometry.Vec3{X: x, Y: y, Z: z}) {
					n++
				}
			}
		}
	}
	return n
}

func (s *Store) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CY != keys[j].CY {
			return keys[i].CY < keys[j].CY
		}
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

// Digest hashes the block names of every non-air voxel in a fixed order.
// Two stores that read the same everywhere hash the same, regardless of the
// order blocks were placed in.
func (s *Store) Digest() string {
	h := sha256.New()
	var tmp [4]byte
	for _, k := range s.LoadedChunkKeys() {
		ch := s.Chunks[k]
		for i, id := range ch.Blocks {
			if id == 0 {
				continue
			}
			binary.LittleEndian.PutUint32(tmp[:], uint32(k.CX))
			h.Write(tmp[:])
			binary.LittleEndian.PutUint32(tmp[:], uint32(k.CY))
			h.Write(tmp[:])
			binary.LittleEndian.PutUint32(tmp[:], uint32(k.CZ))
			h.Write(tmp[:])
			binary.LittleEndian.PutUint32(tmp[:], uint32(i))
			h.Write(tmp[:])
			h.Write([]byte(s.palette[id]))
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

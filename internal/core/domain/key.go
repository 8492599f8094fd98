package domain

import (
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// KeySize is the width of a CacheKey in bytes.
const KeySize = 16

// CacheKey is a 128-bit content hash identifying a compilation request's
// exact inputs. Two compiles with identical keys are guaranteed to produce
// identical output; the cache's correctness model depends on callers
// upholding that guarantee.
type CacheKey [KeySize]byte

// String renders the key as lower-case hex.
func (k CacheKey) String() string {
	return hex.EncodeToString(k[:])
}

// Seeds for the two independent xxhash lanes that form the 128-bit key.
const (
	keySeedLo uint64 = 0x736861646500cafe
	keySeedHi uint64 = 0x5348414445f00d00
)

// ComputeKey derives the cache key for a compilation request. It is pure
// and deterministic: map inputs are hashed as sorted sequences so caller
// bookkeeping order never affects the key, and there is no failure path.
// Malformed input simply hashes to a key that will miss.
func ComputeKey(module ShaderModule, spec Specialization, opts CompileOptions) CacheKey {
	lo := xxhash.NewWithSeed(keySeedLo)
	hi := xxhash.NewWithSeed(keySeedHi)

	writeKeyMaterial(lo, module, spec, opts)
	writeKeyMaterial(hi, module, spec, opts)

	var key CacheKey
	binary.LittleEndian.PutUint64(key[:8], lo.Sum64())
	binary.LittleEndian.PutUint64(key[8:], hi.Sum64())
	return key
}

// writeKeyMaterial feeds the normalized compilation input into a digest.
// Variable-length fields are length-prefixed so adjacent fields can never
// alias each other.
func writeKeyMaterial(d *xxhash.Digest, module ShaderModule, spec Specialization, opts CompileOptions) {
	writeBytes(d, module.Code)
	writeString(d, module.EntryPoint)
	writeUint32(d, uint32(module.Stage))

	// Specialization constants, normalized by sorting on constant id.
	ids := make([]uint32, 0, len(spec))
	for id := range spec {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	writeUint32(d, uint32(len(ids)))
	for _, id := range ids {
		writeUint32(d, id)
		writeUint32(d, spec[id])
	}

	writeUint32(d, uint32(opts.OptLevel))
	writeBool(d, opts.Debug)
	writeBool(d, opts.Validate)
	writeString(d, opts.TargetVersion)
	writeString(d, opts.TargetProfile)
	writeUint32(d, uint32(len(opts.BindingLayout)))
	for _, b := range opts.BindingLayout {
		writeUint32(d, b.Group)
		writeUint32(d, b.Binding)
		writeUint32(d, b.Kind)
	}
}

func writeBytes(d *xxhash.Digest, b []byte) {
	writeUint32(d, uint32(len(b)))
	_, _ = d.Write(b)
}

func writeString(d *xxhash.Digest, s string) {
	writeUint32(d, uint32(len(s)))
	_, _ = d.WriteString(s)
}

func writeUint32(d *xxhash.Digest, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = d.Write(buf[:])
}

func writeBool(d *xxhash.Digest, v bool) {
	if v {
		_, _ = d.Write([]byte{1})
		return
	}
	_, _ = d.Write([]byte{0})
}

package shadercache

import (
	"encoding/binary"

	"go.trai.ch/shade/internal/core/domain"
)

// Cache image layout, little-endian:
//
//	magic   [4]byte  "SHDC"
//	version uint32
//	tagLen  uint32
//	tag     [tagLen]byte
//	count   uint32
//	count × (key [16]byte | blobLen uint32 | blob [blobLen]byte)
//
// Only Ready entries are written; Unavailable entries carry no reusable
// value. A mismatched magic, version or tag loads as an empty image rather
// than an error, so a format change never blocks cold compilation.
const imageVersion uint32 = 1

var imageMagic = [4]byte{'S', 'H', 'D', 'C'}

type imageRecord struct {
	key  domain.CacheKey
	blob []byte
}

// ExportImage serializes every Ready entry for persistence or interchange
// with a host application. The table is snapshotted under the lock and
// serialized outside it, so persistence never stalls lookups. The returned
// bytes are an independent copy; repeated exports with no intervening
// mutation are byte-identical.
func (c *Cache) ExportImage() []byte {
	c.mu.Lock()
	records := make([]imageRecord, 0, len(c.entries))
	size := 0
	for _, e := range c.order {
		if e == nil || !e.terminal() || e.state != stateReady {
			continue
		}
		records = append(records, imageRecord{key: e.key, blob: e.blob})
		size += domain.KeySize + 4 + len(e.blob)
	}
	c.mu.Unlock()

	buf := make([]byte, 0, 4+4+4+len(c.tag)+4+size)
	buf = append(buf, imageMagic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, imageVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.tag)))
	buf = append(buf, c.tag...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(records)))
	for _, rec := range records {
		buf = append(buf, rec.key[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(rec.blob)))
		buf = append(buf, rec.blob...)
	}
	return buf
}

// ImportImage merges a serialized image into the table and reports how many
// entries it adopted. Resident entries always win key collisions: an
// in-flight reservation is never overwritten and a Ready entry is never
// regressed. Images with a foreign magic, version or compatibility tag are
// treated as empty; mixing caches across incompatible tags would be a
// correctness bug, not just a wasted merge. Truncated input is adopted up
// to the last complete record.
func (c *Cache) ImportImage(data []byte) int {
	records, ok := decodeImage(data, c.tag)
	if !ok || len(records) == 0 {
		return 0
	}

	adopted := 0
	c.mu.Lock()
	for _, rec := range records {
		if _, exists := c.entries[rec.key]; exists {
			continue
		}
		e := newEntry(rec.key)
		e.blob = append([]byte(nil), rec.blob...)
		e.state = stateReady
		close(e.done)
		c.entries[rec.key] = e
		c.order = append(c.order, e)
		c.totalBytes += int64(len(e.blob))
		adopted++
	}
	c.mu.Unlock()

	// Imports count against the budget like any other insert.
	c.accountAndEvict(0)
	return adopted
}

// decodeImage parses the wire format against an expected tag. ok is false
// when the header does not identify a compatible image.
func decodeImage(data []byte, wantTag string) ([]imageRecord, bool) {
	if len(data) < 4+4+4 {
		return nil, false
	}
	if [4]byte(data[:4]) != imageMagic {
		return nil, false
	}
	if binary.LittleEndian.Uint32(data[4:8]) != imageVersion {
		return nil, false
	}
	tagLen := int(binary.LittleEndian.Uint32(data[8:12]))
	rest := data[12:]
	if len(rest) < tagLen {
		return nil, false
	}
	if string(rest[:tagLen]) != wantTag {
		return nil, false
	}
	rest = rest[tagLen:]
	if len(rest) < 4 {
		return nil, false
	}
	count := int(binary.LittleEndian.Uint32(rest[:4]))
	rest = rest[4:]

	records := make([]imageRecord, 0, count)
	for i := 0; i < count; i++ {
		if len(rest) < domain.KeySize+4 {
			break
		}
		var rec imageRecord
		copy(rec.key[:], rest[:domain.KeySize])
		blobLen := int(binary.LittleEndian.Uint32(rest[domain.KeySize : domain.KeySize+4]))
		rest = rest[domain.KeySize+4:]
		if len(rest) < blobLen {
			break
		}
		rec.blob = rest[:blobLen]
		rest = rest[blobLen:]
		records = append(records, rec)
	}
	return records, true
}

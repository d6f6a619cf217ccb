// Package resultbuf implements the self-describing binary result layout
// (§6 of the collection engine spec): a 16-byte header, a request-id and
// root-OID meta block written once per session, followed by one
// word-aligned variable-binding record per accepted response.
//
// The Writer is shared between a session and its collection heads so every
// append is O(1) without copying; Reader decodes the same layout back into
// structured records, used for round-tripping and by downstream consumers.
package resultbuf

import (
	"encoding/binary"
	"fmt"

	"github.com/higherorderfunctor/snmp-stream/internal/oid"
)

// wordSize is the native size_t width this engine targets. oid.SubID is a
// uint64, so the sub-identifier octet size below matches it exactly.
const (
	wordSize   = 8
	octetSize  = 8
	headerSize = 16
)

var byteOrder = binary.LittleEndian

// align rounds n up to the next multiple of wordSize.
func align(n int) int {
	if n%wordSize == 0 {
		return n
	}
	return n + (wordSize - n%wordSize)
}

// Writer accumulates the wire-format buffer described above. It is not safe
// for concurrent use; the owning session serialises every append.
type Writer struct {
	buf     []byte
	records int
}

// NewWriter writes the header, meta block, and roots block for a new
// session and returns a Writer ready to accept var-bind records.
func NewWriter(reqID string, roots []oid.OID) *Writer {
	w := &Writer{buf: make([]byte, headerSize, 256)}
	w.buf[0] = 0 // little-endian
	w.buf[1] = wordSize
	w.buf[2] = octetSize

	w.appendAlignedUint(uint64(len(reqID)))
	w.appendAlignedBytes([]byte(reqID))

	w.appendAlignedUint(uint64(len(roots)))
	for _, root := range roots {
		ids := root.Slice()
		w.appendAlignedUint(uint64(len(ids)))
		w.appendAlignedSubIDs(ids)
	}
	return w
}

// Bytes returns the current buffer. The returned slice aliases the writer's
// internal storage; callers that hold onto it across further appends should
// copy if they need a stable snapshot.
func (w *Writer) Bytes() []byte { return w.buf }

// RecordCount reports how many records have been appended so far. Used to
// tell a response that collected data apart from one that collected nothing.
func (w *Writer) RecordCount() int { return w.records }

// AppendRecord appends one variable-binding record: the response's index
// tail (sub-identifiers beyond the owning head's root), its value type, and
// raw value bytes, preceded by a timestamp and the root's index.
func (w *Writer) AppendRecord(timestamp int64, rootIndex uint64, valueType byte, indexTail []oid.SubID, value []byte) {
	recSize := align(wordSize) + // timestamp
		align(wordSize) + // root index
		align(wordSize) + // value type
		align(wordSize) + // index len
		align(len(indexTail)*octetSize) + // index tail
		align(wordSize) + // value len
		align(len(value)) // value

	w.appendAlignedUint(uint64(recSize))
	w.appendAlignedUint(uint64(timestamp))
	w.appendAlignedUint(rootIndex)
	w.appendAlignedUint(uint64(valueType))
	w.appendAlignedUint(uint64(len(indexTail)))
	w.appendAlignedSubIDs(indexTail)
	w.appendAlignedUint(uint64(len(value)))
	w.appendAlignedBytes(value)
	w.records++
}

func (w *Writer) appendAlignedUint(v uint64) {
	var tmp [wordSize]byte
	byteOrder.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) appendAlignedBytes(b []byte) {
	padded := align(len(b))
	tmp := make([]byte, padded)
	copy(tmp, b)
	w.buf = append(w.buf, tmp...)
}

func (w *Writer) appendAlignedSubIDs(ids []oid.SubID) {
	padded := align(len(ids) * octetSize)
	tmp := make([]byte, padded)
	for i, id := range ids {
		byteOrder.PutUint64(tmp[i*octetSize:], id)
	}
	w.buf = append(w.buf, tmp...)
}

// Record is a single decoded variable-binding record.
type Record struct {
	Timestamp int64
	RootIndex uint64
	ValueType byte
	IndexTail []oid.SubID
	Value     []byte
}

// Decoded is the full contents of a parsed result buffer.
type Decoded struct {
	LittleEndian bool
	WordSize     int
	OctetSize    int
	ReqID        string
	Roots        []oid.OID
	Records      []Record
}

// ErrTruncated is returned by Parse when the buffer ends before a described
// field is fully present.
var ErrTruncated = fmt.Errorf("result buffer truncated")

// Parse decodes a wire-format buffer previously produced by Writer.
func Parse(buf []byte) (*Decoded, error) {
	if len(buf) < headerSize {
		return nil, ErrTruncated
	}
	var order binary.ByteOrder = byteOrder
	if buf[0] == 1 {
		order = binary.BigEndian
	}
	d := &Decoded{
		LittleEndian: buf[0] == 0,
		WordSize:     int(buf[1]),
		OctetSize:    int(buf[2]),
	}
	r := &cursor{buf: buf, pos: headerSize, order: order, word: d.WordSize, octet: d.OctetSize}

	reqIDLen, err := r.readUint()
	if err != nil {
		return nil, err
	}
	reqIDBytes, err := r.readBytes(int(reqIDLen))
	if err != nil {
		return nil, err
	}
	d.ReqID = string(reqIDBytes)

	numRoots, err := r.readUint()
	if err != nil {
		return nil, err
	}
	d.Roots = make([]oid.OID, 0, numRoots)
	for i := uint64(0); i < numRoots; i++ {
		rootLen, err := r.readUint()
		if err != nil {
			return nil, err
		}
		ids, err := r.readSubIDs(int(rootLen))
		if err != nil {
			return nil, err
		}
		d.Roots = append(d.Roots, oid.New(ids...))
	}

	for r.pos < len(buf) {
		recSize, err := r.readUint()
		if err != nil {
			return nil, err
		}
		recStart := r.pos
		rec := Record{}
		ts, err := r.readUint()
		if err != nil {
			return nil, err
		}
		rec.Timestamp = int64(ts)
		rootIdx, err := r.readUint()
		if err != nil {
			return nil, err
		}
		rec.RootIndex = rootIdx
		vt, err := r.readUint()
		if err != nil {
			return nil, err
		}
		rec.ValueType = byte(vt)
		indexLen, err := r.readUint()
		if err != nil {
			return nil, err
		}
		idx, err := r.readSubIDs(int(indexLen))
		if err != nil {
			return nil, err
		}
		rec.IndexTail = idx
		valLen, err := r.readUint()
		if err != nil {
			return nil, err
		}
		val, err := r.readBytes(int(valLen))
		if err != nil {
			return nil, err
		}
		rec.Value = val
		d.Records = append(d.Records, rec)

		if r.pos != recStart+int(recSize) {
			// tolerate a differently-aligned producer by trusting rec_size
			r.pos = recStart + int(recSize)
		}
	}

	return d, nil
}

type cursor struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
	word  int
	octet int
}

func (c *cursor) readUint() (uint64, error) {
	n := align(c.word)
	if c.pos+n > len(c.buf) {
		return 0, ErrTruncated
	}
	v := c.order.Uint64(c.buf[c.pos:])
	c.pos += n
	return v, nil
}

func (c *cursor) readBytes(n int) ([]byte, error) {
	padded := align(n)
	if c.pos+padded > len(c.buf) {
		return nil, ErrTruncated
	}
	out := make([]byte, n)
	copy(out, c.buf[c.pos:c.pos+n])
	c.pos += padded
	return out, nil
}

func (c *cursor) readSubIDs(n int) ([]oid.SubID, error) {
	padded := align(n * c.octet)
	if c.pos+padded > len(c.buf) {
		return nil, ErrTruncated
	}
	out := make([]oid.SubID, n)
	for i := 0; i < n; i++ {
		out[i] = c.order.Uint64(c.buf[c.pos+i*c.octet:])
	}
	c.pos += padded
	return out, nil
}

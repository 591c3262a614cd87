package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/tracklab-io/statefeed/internal/domain"
	"github.com/tracklab-io/statefeed/internal/ports"
	"github.com/tracklab-io/statefeed/pkg/log"
)

// Compiled structure sizes in bytes.
const (
	// HeaderSize is 4 (MsgType) + 6*8 (timestamp) + 4 + 4.
	HeaderSize = 60

	// PacketSize is 1 (IsValid) + 4 + 4 + 64 (Name) + 6*8 (state).
	PacketSize = 121

	// MaxDatagramSize is the largest UDP payload that is safe to send
	// without IP fragmentation trouble on common stacks.
	MaxDatagramSize = 65507

	// MaxPacketsPerDatagram is the largest packet count that keeps a
	// datagram within MaxDatagramSize.
	MaxPacketsPerDatagram = (MaxDatagramSize - HeaderSize) / PacketSize
)

// Codec decodes and encodes statefeed datagrams.
//
// The zero value is a lenient codec with no logging. In lenient mode a
// declared PackageLength that disagrees with the compiled PacketSize is
// reported as a warning and decoding continues at the compiled size; in
// strict mode the datagram fails with ErrLengthMismatch. Lenient is the
// historical behavior and the default, but decoding at an overridden
// stride can misparse the remaining packets of a datagram produced by a
// different protocol revision, so strict mode is the safer choice when
// senders are not under your control.
type Codec struct {
	// Strict makes a PackageLength mismatch fatal for the datagram.
	Strict bool

	// Log receives length-mismatch warnings and per-packet name
	// encoding errors. Nil disables logging.
	Log ports.Logger
}

func (c Codec) logger() ports.Logger {
	if c.Log == nil {
		return log.NoopLogger{}
	}
	return c.Log
}

// EncodeHeader encodes h into its fixed 60-byte representation.
func EncodeHeader(h domain.Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.MsgType))
	putFloat64(buf[4:12], h.Timestamp.Year)
	putFloat64(buf[12:20], h.Timestamp.Month)
	putFloat64(buf[20:28], h.Timestamp.Day)
	putFloat64(buf[28:36], h.Timestamp.Hour)
	putFloat64(buf[36:44], h.Timestamp.Minute)
	putFloat64(buf[44:52], h.Timestamp.Second)
	binary.LittleEndian.PutUint32(buf[52:56], uint32(h.PackageNumber))
	binary.LittleEndian.PutUint32(buf[56:60], uint32(h.PackageLength))
	return buf
}

// DecodeHeader decodes the fixed 60-byte header from the front of buf.
func DecodeHeader(buf []byte) (domain.Header, error) {
	if len(buf) < HeaderSize {
		return domain.Header{}, fmt.Errorf("%w: header needs %d bytes, have %d",
			domain.ErrShortBuffer, HeaderSize, len(buf))
	}
	h := domain.Header{
		MsgType: int32(binary.LittleEndian.Uint32(buf[0:4])),
		Timestamp: domain.Timestamp{
			Year:   getFloat64(buf[4:12]),
			Month:  getFloat64(buf[12:20]),
			Day:    getFloat64(buf[20:28]),
			Hour:   getFloat64(buf[28:36]),
			Minute: getFloat64(buf[36:44]),
			Second: getFloat64(buf[44:52]),
		},
		PackageNumber: int32(binary.LittleEndian.Uint32(buf[52:56])),
		PackageLength: int32(binary.LittleEndian.Uint32(buf[56:60])),
	}
	return h, nil
}

// EncodePacket encodes p into its fixed 121-byte representation. Names
// longer than 64 bytes are truncated at the byte boundary.
func EncodePacket(p domain.Packet) []byte {
	buf := make([]byte, PacketSize)
	if p.IsValid {
		buf[0] = 1
	}
	binary.LittleEndian.PutUint32(buf[1:5], uint32(p.ID))
	binary.LittleEndian.PutUint32(buf[5:9], uint32(p.ParentID))
	encodeName(buf[9:9+domain.NameSize], p.Name)
	off := 9 + domain.NameSize
	for i := 0; i < domain.StateDim; i++ {
		putFloat64(buf[off+i*8:off+(i+1)*8], p.State[i])
	}
	return buf
}

// DecodePacket decodes one packet from buf starting at offset.
func DecodePacket(buf []byte, offset int) (domain.Packet, error) {
	if offset < 0 || len(buf)-offset < PacketSize {
		return domain.Packet{}, fmt.Errorf("%w: packet at offset %d needs %d bytes, have %d",
			domain.ErrShortBuffer, offset, PacketSize, len(buf)-offset)
	}
	b := buf[offset : offset+PacketSize]

	name, err := decodeName(b[9 : 9+domain.NameSize])
	if err != nil {
		return domain.Packet{}, err
	}

	p := domain.Packet{
		IsValid:  b[0] != 0,
		ID:       int32(binary.LittleEndian.Uint32(b[1:5])),
		ParentID: int32(binary.LittleEndian.Uint32(b[5:9])),
		Name:     name,
	}
	off := 9 + domain.NameSize
	for i := 0; i < domain.StateDim; i++ {
		p.State[i] = getFloat64(b[off+i*8 : off+(i+1)*8])
	}
	return p, nil
}

// EncodeDatagram builds one datagram from the packets, stamping the
// header's PackageNumber and PackageLength. The remaining header fields
// are taken from h as given. Fails if the result would exceed
// MaxDatagramSize.
func EncodeDatagram(h domain.Header, packets []domain.Packet) ([]byte, error) {
	if len(packets) > MaxPacketsPerDatagram {
		return nil, fmt.Errorf("datagram of %d packets exceeds %d-byte limit (max %d)",
			len(packets), MaxDatagramSize, MaxPacketsPerDatagram)
	}
	h.PackageNumber = int32(len(packets))
	h.PackageLength = PacketSize

	buf := make([]byte, 0, HeaderSize+len(packets)*PacketSize)
	buf = append(buf, EncodeHeader(h)...)
	for _, p := range packets {
		buf = append(buf, EncodePacket(p)...)
	}
	return buf, nil
}

// DecodeDatagram decodes one complete datagram: the header, then
// PackageNumber packets. Packets whose Name is not valid UTF-8 are
// reported and skipped; their siblings still decode. The returned
// packets preserve encoding order.
func (c Codec) DecodeDatagram(buf []byte) (domain.Header, []domain.Packet, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return domain.Header{}, nil, err
	}
	if h.PackageNumber < 0 {
		return domain.Header{}, nil, fmt.Errorf("%w: negative package number %d",
			domain.ErrTruncated, h.PackageNumber)
	}

	stride := int(h.PackageLength)
	if stride != PacketSize {
		if c.Strict {
			return domain.Header{}, nil, fmt.Errorf("%w: declared %d, compiled %d",
				domain.ErrLengthMismatch, h.PackageLength, PacketSize)
		}
		c.logger().Warn("package length mismatch, decoding at compiled size",
			ports.Int32("declared", h.PackageLength),
			ports.Int("compiled", PacketSize),
		)
		stride = PacketSize
	}

	n := int(h.PackageNumber)
	if int64(len(buf)) < int64(HeaderSize)+int64(n)*int64(stride) {
		return domain.Header{}, nil, fmt.Errorf("%w: %d packets of %d bytes need %d bytes, have %d",
			domain.ErrTruncated, n, stride, HeaderSize+n*stride, len(buf))
	}

	packets := make([]domain.Packet, 0, n)
	for i := 0; i < n; i++ {
		p, err := DecodePacket(buf, HeaderSize+i*stride)
		if err != nil {
			// Only name encoding can fail here; the length check above
			// covers the rest. The bad packet is dropped, the rest keep
			// their place.
			c.logger().Warn("dropping undecodable packet",
				ports.Int("index", i),
				ports.Err(err),
			)
			continue
		}
		packets = append(packets, p)
	}
	return h, packets, nil
}

// encodeName writes name into dst truncated to len(dst) bytes and
// zero-padded to the full slot.
func encodeName(dst []byte, name string) {
	n := copy(dst, name)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// decodeName strips trailing zero padding and validates UTF-8.
func decodeName(b []byte) (string, error) {
	trimmed := bytes.TrimRight(b, "\x00")
	if !utf8.Valid(trimmed) {
		return "", fmt.Errorf("%w: name bytes %q", domain.ErrInvalidEncoding, trimmed)
	}
	return string(trimmed), nil
}

func putFloat64(b []byte, f float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(f))
}

func getFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// Package wire implements the statefeed binary wire format.
//
// A datagram is one fixed 60-byte header followed by exactly
// Header.PackageNumber packets of Header.PackageLength bytes each. All
// integers and doubles are little-endian with no implicit padding:
//
//	Header (60 bytes):  int32 MsgType | 6×float64 timestamp | int32 PackageNumber | int32 PackageLength
//	Packet (121 bytes): bool(1) IsValid | int32 ID | int32 ParentID | 64-byte Name | 6×float64 state
//
// The Name slot is UTF-8, truncated to 64 bytes on encode and
// zero-padded; decode strips the trailing zero bytes.
//
// Encoding and decoding are pure and safe for concurrent use. The only
// policy decision is what to do when a received PackageLength disagrees
// with the compiled packet size; see [Codec].
package wire

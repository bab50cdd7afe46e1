package rcon

import (
	"encoding/binary"
	"fmt"
	"io"

	rcerr "rconsole/internal/errors"
)

// PacketType is the second header field of an RCON packet.  Its
// meaning depends on direction: 2 is EXECCOMMAND from the client and
// AUTH_RESPONSE from the server.
type PacketType int32

const (
	TypeResponseValue PacketType = 0
	TypeExecCommand   PacketType = 2
	TypeAuthResponse  PacketType = 2
	TypeAuth          PacketType = 3
)

const (
	// AuthFailedID is the request id a server echoes to reject a login.
	AuthFailedID int32 = -1

	headerSize  = 8 // request id + type
	trailerSize = 2 // body terminator + packet terminator

	// minPacketLength is the length field of a packet with an empty body.
	minPacketLength = headerSize + trailerSize

	// maxPacketLength bounds inbound packets.  Servers fragment at
	// 4096 body bytes; the slack tolerates servers that overshoot.
	maxPacketLength = 64 * 1024

	// MaxCommandLength is the longest body servers accept from a client.
	MaxCommandLength = 1446
)

// Packet is one RCON frame:
//
//	int32 length | int32 id | int32 type | body | 0x00 | 0x00
//
// All integers are little-endian; length excludes its own four bytes.
type Packet struct {
	ID   int32
	Type PacketType
	Body string
}

// MarshalBinary encodes p including its length prefix.
func (p Packet) MarshalBinary() ([]byte, error) {
	length := minPacketLength + len(p.Body)
	buf := make([]byte, 4+length)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(length))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.ID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(p.Type))
	copy(buf[12:], p.Body)
	// trailing two bytes are already zero
	return buf, nil
}

// WritePacket encodes p to w in a single Write call.
func WritePacket(w io.Writer, p Packet) (int, error) {
	buf, err := p.MarshalBinary()
	if err != nil {
		return 0, err
	}
	return w.Write(buf)
}

// ReadPacket decodes one packet from r and reports how many bytes it
// consumed.  A frame that violates the framing rules yields an error
// matching [rcerr.ErrMalformedPacket].
func ReadPacket(r io.Reader) (Packet, int, error) {
	var head [4]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil {
		return Packet{}, n, err
	}

	length := int32(binary.LittleEndian.Uint32(head[:]))
	if length < minPacketLength || length > maxPacketLength {
		return Packet{}, n, fmt.Errorf("%w: length %d", rcerr.ErrMalformedPacket, length)
	}

	data := make([]byte, length)
	m, err := io.ReadFull(r, data)
	n += m
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Packet{}, n, err
	}

	if data[length-1] != 0 || data[length-2] != 0 {
		return Packet{}, n, fmt.Errorf("%w: missing terminator", rcerr.ErrMalformedPacket)
	}

	return Packet{
		ID:   int32(binary.LittleEndian.Uint32(data[0:4])),
		Type: PacketType(binary.LittleEndian.Uint32(data[4:8])),
		Body: string(data[headerSize : length-trailerSize]),
	}, n, nil
}

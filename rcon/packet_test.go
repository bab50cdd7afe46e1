package rcon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	rcerr "rconsole/internal/errors"
)

func TestPacket_MarshalBinary(t *testing.T) {
	p := Packet{ID: 7, Type: TypeExecCommand, Body: "list"}
	got, err := p.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	want := []byte{
		14, 0, 0, 0, // length: 4 id + 4 type + 4 body + 2 nulls
		7, 0, 0, 0, // id
		2, 0, 0, 0, // type
		'l', 'i', 's', 't',
		0, 0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("encoding mismatch (-want +got):\n%s", diff)
	}
}

func TestPacket_EmptyBody(t *testing.T) {
	got, _ := Packet{ID: -1, Type: TypeAuthResponse}.MarshalBinary()
	if len(got) != 4+minPacketLength {
		t.Fatalf("len = %d, want %d", len(got), 4+minPacketLength)
	}
	if id := int32(binary.LittleEndian.Uint32(got[4:8])); id != AuthFailedID {
		t.Errorf("id = %d, want -1", id)
	}
}

func TestReadPacket(t *testing.T) {
	var buf bytes.Buffer
	in := []Packet{
		{ID: 1, Type: TypeAuth, Body: "s3cret"},
		{ID: 2, Type: TypeResponseValue, Body: "There are 0 of a max of 20 players online: "},
		{ID: 3, Type: TypeResponseValue},
	}
	wantBytes := 0
	for _, p := range in {
		n, err := WritePacket(&buf, p)
		if err != nil {
			t.Fatal(err)
		}
		wantBytes += n
	}

	var out []Packet
	total := 0
	for range in {
		p, n, err := ReadPacket(&buf)
		if err != nil {
			t.Fatalf("ReadPacket: %v", err)
		}
		total += n
		out = append(out, p)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("packets mismatch (-want +got):\n%s", diff)
	}
	if total != wantBytes {
		t.Errorf("consumed %d bytes, want %d", total, wantBytes)
	}

	if _, _, err := ReadPacket(&buf); err != io.EOF {
		t.Errorf("empty reader err = %v, want io.EOF", err)
	}
}

func TestReadPacket_Malformed(t *testing.T) {
	frame := func(length int32, payload []byte) []byte {
		var b bytes.Buffer
		binary.Write(&b, binary.LittleEndian, length) //nolint:errcheck
		b.Write(payload)
		return b.Bytes()
	}
	valid, _ := Packet{ID: 1, Type: TypeResponseValue, Body: "ok"}.MarshalBinary()

	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{"length too small", frame(9, make([]byte, 9)), rcerr.ErrMalformedPacket},
		{"negative length", frame(-5, nil), rcerr.ErrMalformedPacket},
		{"length too large", frame(maxPacketLength+1, nil), rcerr.ErrMalformedPacket},
		{"missing terminator", frame(10, []byte{1, 0, 0, 0, 0, 0, 0, 0, 'x', 'y'}), rcerr.ErrMalformedPacket},
		{"truncated body", valid[:len(valid)-3], io.ErrUnexpectedEOF},
		{"truncated length", valid[:2], io.ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadPacket(bytes.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// Package frame defines RawFrame (one record from the ingest layer) and
// FramedEvent (a RawFrame plus its extracted high-resolution trigger time),
// along with the ordering and coincidence predicates the coincidence queue
// relies on.
//
// The on-disk framed-event file format is out of scope (see spec §1); the
// encode/decode helpers here exist only to give bank round-trip fidelity
// (testable property 6) something concrete to exercise, not to model the
// real MIDAS-style container.
package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/triumf-dragon/coincore/internal/bitreader"
)

// Bank is a named, typed, length-prefixed chunk of bytes inside a frame
// payload.
type Bank struct {
	Name   string
	TypeID uint16
	Data   []byte
}

// Words decodes the bank's payload as little-endian uint32 words.
func (b Bank) Words() []uint32 {
	return bitreader.LEWords(b.Data)
}

// RawFrame is one record emitted by the upstream framing layer.
type RawFrame struct {
	EventID     uint16
	TriggerMask uint16
	Serial      uint32
	WallTimeS   uint32
	Banks       []Bank
}

// Bank returns the named bank and whether it was present.
func (f RawFrame) Bank(name string) (Bank, bool) {
	for _, b := range f.Banks {
		if b.Name == name {
			return b, true
		}
	}
	return Bank{}, false
}

// Encode serializes a RawFrame to bytes: a fixed header followed by each
// bank as (4-byte name, uint16 type, uint32 length, data). This is a
// minimal, self-consistent wire format sufficient to round-trip a frame for
// testing; it is not the production framed-event file format (out of
// scope per spec §1).
func Encode(f RawFrame) []byte {
	payload := make([]byte, 0, 64)
	for _, b := range f.Banks {
		name := padName(b.Name)
		payload = append(payload, name...)
		var typeLen [6]byte
		binary.LittleEndian.PutUint16(typeLen[0:2], b.TypeID)
		binary.LittleEndian.PutUint32(typeLen[2:6], uint32(len(b.Data)))
		payload = append(payload, typeLen[:]...)
		payload = append(payload, b.Data...)
	}

	out := make([]byte, 16)
	binary.LittleEndian.PutUint16(out[0:2], f.EventID)
	binary.LittleEndian.PutUint16(out[2:4], f.TriggerMask)
	binary.LittleEndian.PutUint32(out[4:8], f.Serial)
	binary.LittleEndian.PutUint32(out[8:12], f.WallTimeS)
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(payload)))
	return append(out, payload...)
}

// Decode is the inverse of Encode.
func Decode(data []byte) (RawFrame, error) {
	if len(data) < 16 {
		return RawFrame{}, fmt.Errorf("frame: truncated header (%d bytes)", len(data))
	}
	f := RawFrame{
		EventID:     binary.LittleEndian.Uint16(data[0:2]),
		TriggerMask: binary.LittleEndian.Uint16(data[2:4]),
		Serial:      binary.LittleEndian.Uint32(data[4:8]),
		WallTimeS:   binary.LittleEndian.Uint32(data[8:12]),
	}
	payloadSize := binary.LittleEndian.Uint32(data[12:16])
	payload := data[16:]
	if uint32(len(payload)) != payloadSize {
		return RawFrame{}, fmt.Errorf("frame: payload_size mismatch: header says %d, got %d", payloadSize, len(payload))
	}

	for len(payload) > 0 {
		if len(payload) < 10 {
			return RawFrame{}, fmt.Errorf("frame: truncated bank header")
		}
		name := string(payload[0:4])
		typeID := binary.LittleEndian.Uint16(payload[4:6])
		length := binary.LittleEndian.Uint32(payload[6:10])
		payload = payload[10:]
		if uint32(len(payload)) < length {
			return RawFrame{}, fmt.Errorf("frame: truncated bank data for %q", name)
		}
		data := payload[:length]
		payload = payload[length:]
		f.Banks = append(f.Banks, Bank{Name: name, TypeID: typeID, Data: append([]byte(nil), data...)})
	}
	return f, nil
}

func padName(name string) string {
	if len(name) >= 4 {
		return name[:4]
	}
	b := []byte(name)
	for len(b) < 4 {
		b = append(b, '0')
	}
	return string(b)
}

// Package fixture loads synthetic frame streams from YAML, for tests and
// for dragonsort's demo/replay mode when no real MIDAS file is available.
// Grounded on samoyed's use of gopkg.in/yaml.v3 for its device fixtures.
package fixture

import (
	"encoding/binary"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/triumf-dragon/coincore/internal/frame"
)

// BankDef is one bank's fixture description: either explicit bytes or a
// list of uint32 words (the common case, since every real bank here is
// word-aligned).
type BankDef struct {
	Name   string   `yaml:"name"`
	TypeID uint16   `yaml:"type_id"`
	Words  []uint32 `yaml:"words"`
	Bytes  []byte   `yaml:"bytes"`
}

// FrameDef is one frame's fixture description.
type FrameDef struct {
	EventID     uint16    `yaml:"event_id"`
	TriggerMask uint16    `yaml:"trigger_mask"`
	Serial      uint32    `yaml:"serial"`
	WallTimeS   uint32    `yaml:"wall_time_s"`
	Banks       []BankDef `yaml:"banks"`
}

// Stream is a named, ordered sequence of frames.
type Stream struct {
	Name   string     `yaml:"name"`
	Frames []FrameDef `yaml:"frames"`
}

// Load reads a YAML fixture file into a Stream.
func Load(path string) (Stream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Stream{}, fmt.Errorf("fixture: %w", err)
	}
	var s Stream
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Stream{}, fmt.Errorf("fixture: parsing %s: %w", path, err)
	}
	return s, nil
}

// RawFrames converts every FrameDef in the stream to a frame.RawFrame.
func (s Stream) RawFrames() []frame.RawFrame {
	out := make([]frame.RawFrame, len(s.Frames))
	for i, fd := range s.Frames {
		banks := make([]frame.Bank, len(fd.Banks))
		for j, bd := range fd.Banks {
			data := bd.Bytes
			if len(bd.Words) > 0 {
				data = wordsToBytes(bd.Words)
			}
			banks[j] = frame.Bank{Name: bd.Name, TypeID: bd.TypeID, Data: data}
		}
		out[i] = frame.RawFrame{
			EventID:     fd.EventID,
			TriggerMask: fd.TriggerMask,
			Serial:      fd.Serial,
			WallTimeS:   fd.WallTimeS,
			Banks:       banks,
		}
	}
	return out
}

func wordsToBytes(words []uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

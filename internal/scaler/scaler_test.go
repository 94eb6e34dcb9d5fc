package scaler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/triumf-dragon/coincore/internal/frame"
)

func TestDecode_PassThrough(t *testing.T) {
	data := []byte{1, 0, 0, 0, 2, 0, 0, 0}
	d, err := Decode("head", frame.Bank{Name: "VSCH", Data: data})
	assert.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, d.Counts)
}

func TestDecode_EmptyBankIsError(t *testing.T) {
	_, err := Decode("head", frame.Bank{Name: "VSCH"})
	assert.Error(t, err)
}

package cli

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressReaderPassesThrough(t *testing.T) {
	data := bytes.Repeat([]byte{42}, 5000)
	r := NewProgressReader(bytes.NewReader(data), len(data), "Downloading")
	out, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, data, out)
	assert.NoError(t, r.Close())
}

func TestProgressReaderUnknownSize(t *testing.T) {
	data := []byte("short")
	r := NewProgressReader(bytes.NewReader(data), 0, "Downloading")
	out, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, data, out)
	assert.NoError(t, r.Close())
}

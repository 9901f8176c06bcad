package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Codec names the on-disk encoding of a document.
type Codec string

const (
	// Plain is uncompressed YAML.
	Plain Codec = "yaml"
	// Snappy is snappy-compressed YAML, for fast round trips.
	Snappy Codec = "snappy"
	// Zstd is zstd-compressed YAML, for archives.
	Zstd Codec = "zstd"
)

// File extensions of the codecs.
const (
	ExtPlain  = ".opm"
	ExtSnappy = ".opm.sz"
	ExtZstd   = ".opm.zst"
)

// ErrUnknownCodec is returned for unsupported codecs and extensions.
var ErrUnknownCodec = errors.New("unknown document codec")

// Codecs lists the supported codecs.
var Codecs = []Codec{Plain, Snappy, Zstd}

// CodecFor picks the codec from a file name.
func CodecFor(path string) (Codec, error) {
	switch {
	case strings.HasSuffix(path, ExtSnappy):
		return Snappy, nil
	case strings.HasSuffix(path, ExtZstd):
		return Zstd, nil
	case strings.HasSuffix(path, ExtPlain), strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return Plain, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnknownCodec)
}

// ParseCodec accepts codec names and their extensions.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "plain", "opm", ExtPlain:
		return Plain, nil
	case "snappy", "sz", ExtSnappy:
		return Snappy, nil
	case "zstd", "zst", ExtZstd:
		return Zstd, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownCodec)
}

// Ext returns the file extension of the codec.
func (c Codec) Ext() string {
	switch c {
	case Snappy:
		return ExtSnappy
	case Zstd:
		return ExtZstd
	}
	return ExtPlain
}

// Replace swaps the codec extension of path for the one of c.
func (c Codec) Replace(path string) string {
	for _, ext := range []string{ExtSnappy, ExtZstd, ExtPlain, ".yaml", ".yml"} {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext) + c.Ext()
		}
	}
	return path + c.Ext()
}

func (c Codec) compress(data []byte) ([]byte, error) {
	switch c {
	case Plain:
		return data, nil
	case Snappy:
		return snappy.Encode(nil, data), nil
	case Zstd:
		var buf bytes.Buffer
		enc, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		if _, err := enc.Write(data); err != nil {
			enc.Close()
			return nil, fmt.Errorf("compressing: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("closing encoder: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%q: %w", c, ErrUnknownCodec)
}

func (c Codec) decompress(data []byte) ([]byte, error) {
	switch c {
	case Plain:
		return data, nil
	case Snappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("decompressing snappy: %w", err)
		}
		return out, nil
	case Zstd:
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer dec.Close()
		out, err := io.ReadAll(dec)
		if err != nil {
			return nil, fmt.Errorf("decompressing zstd: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%q: %w", c, ErrUnknownCodec)
}

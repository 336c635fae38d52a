package card

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"sort"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Text chunk keywords used by card formats.
const (
	KeyChara  = "chara"
	KeyRisuAI = "risuai"
)

type pngChunk struct {
	typ  string
	data []byte
}

// IsPNG reports whether data starts with the PNG signature.
func IsPNG(data []byte) bool {
	return bytes.HasPrefix(data, pngSignature)
}

func readChunks(data []byte) ([]pngChunk, error) {
	if !IsPNG(data) {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidPNG)
	}
	var chunks []pngChunk
	rest := data[len(pngSignature):]
	for len(rest) > 0 {
		if len(rest) < 12 {
			return nil, fmt.Errorf("%w: truncated chunk header", ErrInvalidPNG)
		}
		n := binary.BigEndian.Uint32(rest[:4])
		if uint64(n)+12 > uint64(len(rest)) {
			return nil, fmt.Errorf("%w: chunk length %d exceeds data", ErrInvalidPNG, n)
		}
		c := pngChunk{typ: string(rest[4:8]), data: rest[8 : 8+n]}
		chunks = append(chunks, c)
		rest = rest[12+n:]
		if c.typ == "IEND" {
			break
		}
	}
	if len(chunks) == 0 || chunks[len(chunks)-1].typ != "IEND" {
		return nil, fmt.Errorf("%w: missing IEND", ErrInvalidPNG)
	}
	return chunks, nil
}

func writeChunks(chunks []pngChunk) []byte {
	var buf bytes.Buffer
	buf.Write(pngSignature)
	var hdr [4]byte
	for _, c := range chunks {
		binary.BigEndian.PutUint32(hdr[:], uint32(len(c.data)))
		buf.Write(hdr[:])

		crc := crc32.NewIEEE()
		crc.Write([]byte(c.typ))
		crc.Write(c.data)

		buf.WriteString(c.typ)
		buf.Write(c.data)
		binary.BigEndian.PutUint32(hdr[:], crc.Sum32())
		buf.Write(hdr[:])
	}
	return buf.Bytes()
}

func isTextChunk(typ string) bool {
	return typ == "tEXt" || typ == "zTXt" || typ == "iTXt"
}

// ReadText returns the tEXt keyword/value pairs of a PNG. When a keyword
// repeats, the first occurrence wins.
func ReadText(data []byte) (map[string]string, error) {
	chunks, err := readChunks(data)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, c := range chunks {
		if c.typ != "tEXt" {
			continue
		}
		key, value, ok := bytes.Cut(c.data, []byte{0})
		if !ok {
			continue
		}
		if _, seen := out[string(key)]; !seen {
			out[string(key)] = string(value)
		}
	}
	return out, nil
}

// StripText removes every text chunk from a PNG.
func StripText(data []byte) ([]byte, error) {
	chunks, err := readChunks(data)
	if err != nil {
		return nil, err
	}
	kept := chunks[:0:0]
	for _, c := range chunks {
		if !isTextChunk(c.typ) {
			kept = append(kept, c)
		}
	}
	return writeChunks(kept), nil
}

// WriteText replaces all text chunks of a PNG with fields, written in key
// order just before IEND.
func WriteText(data []byte, fields map[string]string) ([]byte, error) {
	chunks, err := readChunks(data)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]pngChunk, 0, len(chunks)+len(keys))
	for _, c := range chunks {
		if isTextChunk(c.typ) {
			continue
		}
		if c.typ == "IEND" {
			for _, k := range keys {
				payload := append([]byte(k), 0)
				payload = append(payload, fields[k]...)
				out = append(out, pngChunk{typ: "tEXt", data: payload})
			}
		}
		out = append(out, c)
	}
	return writeChunks(out), nil
}

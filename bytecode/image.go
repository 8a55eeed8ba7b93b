package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// ImageVersion is the current program image format version.
// Increment when making incompatible changes to the format.
const ImageVersion uint16 = 1

// ImageMagic prefixes every program image: "CFGB" (CFGS Bytecode).
var ImageMagic = []byte{'C', 'F', 'G', 'B'}

const imageHeaderSize = 6

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalProgram serializes a program to a versioned image.
func MarshalProgram(p *Program) ([]byte, error) {
	body, err := cborEncMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal program: %w", err)
	}
	buf := make([]byte, imageHeaderSize, imageHeaderSize+len(body))
	copy(buf, ImageMagic)
	binary.LittleEndian.PutUint16(buf[4:], ImageVersion)
	return append(buf, body...), nil
}

// UnmarshalProgram deserializes and validates a program image.
func UnmarshalProgram(data []byte) (*Program, error) {
	if len(data) < imageHeaderSize {
		return nil, fmt.Errorf("bytecode: image too short (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:4], ImageMagic) {
		return nil, fmt.Errorf("bytecode: invalid magic %q", data[:4])
	}
	if v := binary.LittleEndian.Uint16(data[4:]); v != ImageVersion {
		return nil, fmt.Errorf("bytecode: unsupported image version %d (expected %d)", v, ImageVersion)
	}
	var p Program
	if err := cbor.Unmarshal(data[imageHeaderSize:], &p); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("bytecode: invalid program: %w", err)
	}
	return &p, nil
}

// WriteImage writes a program image to w.
func WriteImage(w io.Writer, p *Program) error {
	data, err := MarshalProgram(p)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// IsImage reports whether data starts with the image magic.
func IsImage(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], ImageMagic)
}

// LoadFile reads a program from disk, accepting either a binary image or a
// YAML listing.
func LoadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bytecode: cannot read %s: %w", path, err)
	}
	if IsImage(data) {
		return UnmarshalProgram(data)
	}
	return ParseYAML(data, path)
}

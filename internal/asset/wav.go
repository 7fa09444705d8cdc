package asset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dgnsrekt/vortaro/internal/audio"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// ErrInvalidWAV is returned for files that are not 16-bit PCM RIFF/WAVE.
var ErrInvalidWAV = errors.New("invalid wav file")

// DecodeWAV reads a RIFF/WAVE file holding 16-bit PCM. Chunks other than
// "fmt " and "data" are skipped.
func DecodeWAV(r io.Reader) ([]byte, audio.Format, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, audio.Format{}, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, audio.Format{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	var (
		format  audio.Format
		haveFmt bool
	)
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return nil, audio.Format{}, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			f, err := readFmtChunk(r, size)
			if err != nil {
				return nil, audio.Format{}, err
			}
			format, haveFmt = f, true

		case "data":
			if !haveFmt {
				return nil, audio.Format{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			data := make([]byte, size)
			n, err := io.ReadFull(r, data)
			if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
				return nil, audio.Format{}, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
			}
			// Truncated files are common; keep whole frames.
			data = data[:n-n%format.FrameSize()]
			return data, format, nil

		default:
			// Chunks are padded to an even size.
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return nil, audio.Format{}, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
			}
		}
	}
}

func readFmtChunk(r io.Reader, size int64) (audio.Format, error) {
	if size < 16 {
		return audio.Format{}, fmt.Errorf("%w: fmt chunk too short", ErrInvalidWAV)
	}
	buf := make([]byte, size+size%2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return audio.Format{}, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
	}

	tag := binary.LittleEndian.Uint16(buf[0:2])
	if tag == wavFormatExtensible && size >= 26 {
		// The sub-format GUID starts with the plain format tag.
		tag = binary.LittleEndian.Uint16(buf[24:26])
	}
	if tag != wavFormatPCM {
		return audio.Format{}, fmt.Errorf("%w: format tag %#x is not PCM", ErrInvalidWAV, tag)
	}

	format := audio.Format{
		Channels:   int(binary.LittleEndian.Uint16(buf[2:4])),
		SampleRate: int(binary.LittleEndian.Uint32(buf[4:8])),
		BitDepth:   int(binary.LittleEndian.Uint16(buf[14:16])),
	}
	if err := format.Validate(); err != nil {
		return audio.Format{}, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
	}
	return format, nil
}

// EncodeWAV writes PCM data as a canonical 44-byte-header WAV file.
func EncodeWAV(w io.Writer, data []byte, format audio.Format) error {
	blockAlign := format.FrameSize()
	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(data)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(format.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(format.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(format.BitDepth))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(data)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

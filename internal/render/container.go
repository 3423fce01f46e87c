package render

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// The reel container is an intentionally simple delivery format, not a
// general transcoder output: a fixed header followed by length-prefixed frame
// payloads. The audio track is carried as a metadata tag only; it is never
// sample-mixed into the frames.
//
//	magic      [4]byte  "DRM1"
//	version    uint16
//	frames     uint16
//	duration   uint16   seconds
//	audio tag  uint16 length + bytes
//	per frame: uint32 length + bytes
var containerMagic = [4]byte{'D', 'R', 'M', '1'}

const containerVersion uint16 = 1

const (
	maxContainerFrames = 1 << 16
	maxFrameBytes      = 1 << 31
	maxAudioTagBytes   = 1 << 16
)

var (
	errTooManyFrames = errors.New("container: too many frames")
	errFrameTooLarge = errors.New("container: frame payload too large")
	errAudioTagLong  = errors.New("container: audio tag too long")
	errBadMagic      = errors.New("container: bad magic")
	errTruncated     = errors.New("container: truncated payload")
	errBadVersion    = errors.New("container: unsupported version")
)

// PackContainer assembles ordered frame payloads into a single reel blob.
func PackContainer(frames [][]byte, durationSeconds int, audioTag string) ([]byte, error) {
	if len(frames) >= maxContainerFrames {
		return nil, errTooManyFrames
	}
	if len(audioTag) >= maxAudioTagBytes {
		return nil, errAudioTagLong
	}
	if durationSeconds < 0 || durationSeconds > int(^uint16(0)) {
		return nil, fmt.Errorf("container: duration %d out of range", durationSeconds)
	}

	var buf bytes.Buffer
	buf.Write(containerMagic[:])
	writeU16(&buf, containerVersion)
	writeU16(&buf, uint16(len(frames)))
	writeU16(&buf, uint16(durationSeconds))
	writeU16(&buf, uint16(len(audioTag)))
	buf.WriteString(audioTag)

	for _, frame := range frames {
		if int64(len(frame)) >= maxFrameBytes {
			return nil, errFrameTooLarge
		}
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(frame)))
		buf.Write(lenBuf[:])
		buf.Write(frame)
	}
	return buf.Bytes(), nil
}

// EmptyContainer returns the minimal valid reel: a header with zero frames.
// Packaging failures degrade to this rather than failing the job.
func EmptyContainer() []byte {
	data, err := PackContainer(nil, 0, "")
	if err != nil {
		// Unreachable: zero frames and an empty tag always pack.
		panic(err)
	}
	return data
}

// Reel is the decoded form of a packed container.
type Reel struct {
	Version         uint16
	DurationSeconds int
	AudioTag        string
	Frames          [][]byte
}

// UnpackContainer parses a reel blob.
func UnpackContainer(data []byte) (*Reel, error) {
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, errTruncated
	}
	if magic != containerMagic {
		return nil, errBadMagic
	}

	version, err := readU16(r)
	if err != nil {
		return nil, err
	}
	if version != containerVersion {
		return nil, errBadVersion
	}
	frameCount, err := readU16(r)
	if err != nil {
		return nil, err
	}
	duration, err := readU16(r)
	if err != nil {
		return nil, err
	}
	tagLen, err := readU16(r)
	if err != nil {
		return nil, err
	}
	tag := make([]byte, tagLen)
	if _, err := io.ReadFull(r, tag); err != nil {
		return nil, errTruncated
	}

	reel := &Reel{
		Version:         version,
		DurationSeconds: int(duration),
		AudioTag:        string(tag),
	}
	for i := 0; i < int(frameCount); i++ {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, errTruncated
		}
		frame := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
		if _, err := io.ReadFull(r, frame); err != nil {
			return nil, errTruncated
		}
		reel.Frames = append(reel.Frames, frame)
	}
	return reel, nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func readU16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errTruncated
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

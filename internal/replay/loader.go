package replay

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"openfront/engine/internal/intent"
)

// maxFrameSize guards against corrupt length prefixes.
const maxFrameSize = 64 << 20

// Frame is one persisted update batch.
type Frame struct {
	Tick       uint64
	CapturedAt time.Time
	Payload    []byte
}

// Bundle is a replay directory read back into memory.
type Bundle struct {
	Dir      string
	Manifest Manifest
	Header   Header
	Turns    []intent.Turn
	Frames   []Frame
}

// Load reads a bundle written by Writer. Turns are ordered by turn number and frames
// by tick so iteration is deterministic.
func Load(dir string) (*Bundle, error) {
	if dir == "" {
		return nil, fmt.Errorf("replay path must be provided")
	}
	bundle := &Bundle{Dir: dir}

	raw, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &bundle.Manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	headerPath := bundle.Manifest.HeaderPath
	if headerPath == "" {
		headerPath = headerFile
	}
	if bundle.Header, err = ReadHeader(filepath.Join(dir, headerPath)); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	//1.- Turns are the input of the simulation.
	if bundle.Turns, err = loadTurns(filepath.Join(dir, bundle.Manifest.EventsPath)); err != nil {
		return nil, err
	}
	sort.SliceStable(bundle.Turns, func(i, j int) bool { return bundle.Turns[i].TurnNumber < bundle.Turns[j].TurnNumber })

	//2.- Frames are the recorded output to compare against.
	if bundle.Frames, err = loadFrames(filepath.Join(dir, bundle.Manifest.FramesPath)); err != nil {
		return nil, err
	}
	sort.SliceStable(bundle.Frames, func(i, j int) bool { return bundle.Frames[i].Tick < bundle.Frames[j].Tick })
	return bundle, nil
}

func loadTurns(path string) ([]intent.Turn, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(snappy.NewReader(file))
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)
	var turns []intent.Turn
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		turn, err := intent.DecodeTurn(line)
		if err != nil {
			return nil, fmt.Errorf("events line %d: %w", len(turns)+1, err)
		}
		turns = append(turns, turn)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return turns, nil
}

func loadFrames(path string) ([]Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder, err := zstd.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	var (
		frames []Frame
		header = make([]byte, frameHeaderSize)
	)
	for {
		if _, err := io.ReadFull(decoder, header); err != nil {
			if errors.Is(err, io.EOF) {
				return frames, nil
			}
			return nil, fmt.Errorf("read frame header %d: %w", len(frames), err)
		}
		size := binary.LittleEndian.Uint32(header[16:20])
		if size > maxFrameSize {
			return nil, fmt.Errorf("frame %d too large: %d bytes", len(frames), size)
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(decoder, payload); err != nil {
			return nil, fmt.Errorf("read frame %d: %w", len(frames), err)
		}
		frames = append(frames, Frame{
			Tick:       binary.LittleEndian.Uint64(header[0:8]),
			CapturedAt: time.Unix(0, int64(binary.LittleEndian.Uint64(header[8:16]))).UTC(),
			Payload:    payload,
		})
	}
}

// Replay iterates turns in order, handing each one the frame recorded for its tick
// when present.
func (b *Bundle) Replay(apply func(turn intent.Turn, frame *Frame) error) error {
	if b == nil {
		return fmt.Errorf("bundle not loaded")
	}
	if apply == nil {
		return fmt.Errorf("replay callback must be provided")
	}
	byTick := make(map[uint64]*Frame, len(b.Frames))
	for i := range b.Frames {
		byTick[b.Frames[i].Tick] = &b.Frames[i]
	}
	for _, turn := range b.Turns {
		if err := apply(turn, byTick[uint64(turn.TurnNumber)]); err != nil {
			return err
		}
	}
	return nil
}

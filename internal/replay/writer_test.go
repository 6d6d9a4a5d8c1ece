package replay

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"openfront/engine/internal/config"
	"openfront/engine/internal/intent"
)

func testHeader() Header {
	return Header{GameID: "game0001", Map: MapParameters{Width: 20, Height: 10, Seed: 7}, Balance: config.DefaultBalance()}
}

func TestWriterAppendAndFlushCadence(t *testing.T) {
	tmp := t.TempDir()
	now := time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	writer, manifest, err := NewWriter(tmp, "Game 0001!", clock)
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	if filepath.Base(writer.Directory()) != "Game0001-20240710T120000Z" {
		t.Fatalf("unexpected bundle directory %q", writer.Directory())
	}
	if manifest.FrameIntervalMs != 200 {
		t.Fatalf("expected frame interval 200 ms, got %d", manifest.FrameIntervalMs)
	}
	writer.SetHeader(testHeader())

	if err := writer.AppendTurn(intent.Turn{TurnNumber: 0, GameID: "game0001", Intents: []intent.Intent{}}); err != nil {
		t.Fatalf("append turn: %v", err)
	}

	payload := []byte{0x01, 0x02, 0x03}
	if err := writer.AppendFrame(0, payload); err != nil {
		t.Fatalf("append frame 0: %v", err)
	}
	now = now.Add(100 * time.Millisecond)
	if err := writer.AppendFrame(1, payload); err != nil {
		t.Fatalf("append frame 1: %v", err)
	}
	if got := len(writer.pending); got != 2 {
		t.Fatalf("expected frames to stay buffered inside the interval, got %d", got)
	}
	now = now.Add(120 * time.Millisecond)
	if err := writer.AppendFrame(2, payload); err != nil {
		t.Fatalf("append frame 2: %v", err)
	}
	if got := len(writer.pending); got != 0 {
		t.Fatalf("expected the cadence to flush, %d frames pending", got)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := writer.AppendFrame(3, payload); err == nil {
		t.Fatalf("expected appends after close to fail")
	}

	//1.- Decode the event log directly to check the line format.
	eventFile, err := os.Open(filepath.Join(writer.Directory(), manifest.EventsPath))
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	defer eventFile.Close()
	scanner := bufio.NewScanner(snappy.NewReader(eventFile))
	if !scanner.Scan() {
		t.Fatalf("expected one event line: %v", scanner.Err())
	}
	if got := scanner.Text(); got != `{"turnNumber":0,"gameID":"game0001","intents":[]}` {
		t.Fatalf("unexpected event line %s", got)
	}

	//2.- Decode the frame stream and check the length prefixes.
	frameFile, err := os.Open(filepath.Join(writer.Directory(), manifest.FramesPath))
	if err != nil {
		t.Fatalf("open frames: %v", err)
	}
	defer frameFile.Close()
	decoder, err := zstd.NewReader(frameFile)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer decoder.Close()
	raw, err := io.ReadAll(decoder)
	if err != nil {
		t.Fatalf("read frames: %v", err)
	}
	if len(raw) != 3*(frameHeaderSize+len(payload)) {
		t.Fatalf("unexpected frame stream size %d", len(raw))
	}
	if tick := binary.LittleEndian.Uint64(raw[frameHeaderSize+len(payload):]); tick != 1 {
		t.Fatalf("expected the second frame to be tick 1, got %d", tick)
	}

	if _, err := ReadHeader(filepath.Join(writer.Directory(), headerFile)); err != nil {
		t.Fatalf("expected a readable header: %v", err)
	}
}

func TestNewWriterRequiresRoot(t *testing.T) {
	if _, _, err := NewWriter("", "game", nil); err == nil {
		t.Fatalf("expected an error without a root directory")
	}
}

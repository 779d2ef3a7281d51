package cortex

import (
	"errors"
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/voqse/debut-plugin-cortex/pkg/quantize"
)

var (
	// ErrSnapshotMissing marks inference attempted without the persisted
	// distribution state. There is no default to fall back to; training must
	// run first.
	ErrSnapshotMissing = errors.New("cortex: distribution snapshot missing")
	// ErrSnapshotCorrupt marks snapshot data that cannot be decoded or does
	// not match the pipeline configuration.
	ErrSnapshotCorrupt = errors.New("cortex: distribution snapshot corrupt")
)

const snapshotVersion = 1

type snapshotFile struct {
	Version       int                           `msgpack:"version"`
	Ratio         string                        `msgpack:"ratio"`
	SegmentsCount int                           `msgpack:"segments_count"`
	Streams       map[string][]quantize.Segment `msgpack:"streams"`
}

// SaveSnapshot persists the built distributions so a later process can run
// inference without retraining. It fails before FinalizeTraining.
func (p *Pipeline) SaveSnapshot(path string) error {
	snap := snapshotFile{
		Version:       snapshotVersion,
		Ratio:         string(p.cfg.Ratio),
		SegmentsCount: p.cfg.SegmentsCount,
		Streams:       make(map[string][]quantize.Segment, len(p.streams)),
	}
	for _, name := range p.cfg.Streams {
		s := p.streams[name]
		if len(s.dist) == 0 {
			return fmt.Errorf("%w: stream %q", ErrNotTrained, name)
		}
		snap.Streams[name] = s.dist
	}

	data, err := msgpack.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("cortex: encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cortex: write snapshot %s: %w", path, err)
	}
	return nil
}

// LoadSnapshot restores persisted distributions and enters inference phase.
// A missing file is a configuration error, not a cue to retrain silently.
func (p *Pipeline) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSnapshotMissing, path)
		}
		return fmt.Errorf("cortex: read snapshot %s: %w", path, err)
	}

	var snap snapshotFile
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSnapshotCorrupt, path, err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("%w: %s: unsupported version %d", ErrSnapshotCorrupt, path, snap.Version)
	}
	if snap.Ratio != string(p.cfg.Ratio) {
		return fmt.Errorf("%w: %s: ratio kind %q does not match configured %q",
			ErrSnapshotCorrupt, path, snap.Ratio, p.cfg.Ratio)
	}
	if snap.SegmentsCount != p.cfg.SegmentsCount {
		return fmt.Errorf("%w: %s: segments count %d does not match configured %d",
			ErrSnapshotCorrupt, path, snap.SegmentsCount, p.cfg.SegmentsCount)
	}
	for _, name := range p.cfg.Streams {
		if len(snap.Streams[name]) == 0 {
			return fmt.Errorf("%w: %s: no segments for stream %q", ErrSnapshotCorrupt, path, name)
		}
	}

	for _, name := range p.cfg.Streams {
		s := p.streams[name]
		s.dist = snap.Streams[name]
		s.obs = nil
		s.hasPrev = false
	}
	p.win.Reset()
	p.phase = phaseInference
	return nil
}

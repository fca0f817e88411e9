package session

import "time"

// Shard is the per-turn activity state for the selected log shard.
type Shard struct {
	// Path is the shard receiving the dispatched turn's output.
	Path string

	// Offset is the zero-based line at which the turn's content begins.
	Offset int

	// LastCount is the line count observed on the most recent poll.
	LastCount int

	// LastGrowth is when the line count last increased.
	LastGrowth time.Time
}

// Locator identifies which shard receives a dispatched turn's output, and
// detects mid-turn rotation to a brand-new shard (the agent discarding its
// session and opening a new one, e.g. on a context reset).
//
// Construct one immediately before dispatch: the snapshot taken at that
// moment is what makes post-dispatch growth attributable to the turn.
type Locator struct {
	dir      string
	snapshot map[string]int
	active   *Shard
	rotated  bool
}

// NewLocator snapshots all shards in dir and returns a locator for one turn.
func NewLocator(dir string) *Locator {
	return &Locator{dir: dir, snapshot: Snapshot(dir)}
}

// Poll advances the locator one tick. It returns the active shard, or nil
// while no shard has been attributed to the turn yet. Selection is retried
// every tick; once selected, each tick updates growth tracking and checks
// for rotation.
func (l *Locator) Poll(now time.Time) *Shard {
	if l.active == nil {
		l.selectShard(now)
		return l.active
	}

	// Rotation check runs every tick: a different shard absent from the
	// pre-dispatch snapshot with nonzero content means the agent rotated.
	// At most one rotation is taken per turn.
	if !l.rotated {
		if p := l.findRotation(); p != "" {
			l.active = &Shard{Path: p, Offset: 0, LastCount: CountLines(p), LastGrowth: now}
			l.rotated = true
			return l.active
		}
	}

	if count := CountLines(l.active.Path); count > l.active.LastCount {
		l.active.LastCount = count
		l.active.LastGrowth = now
	}
	return l.active
}

// selectShard picks the turn's shard: the first shard whose line count
// exceeds its snapshotted count, else a brand-new shard absent from the
// snapshot (the turn's first write created it) at offset zero.
func (l *Locator) selectShard(now time.Time) {
	paths := ListShards(l.dir)

	for _, p := range paths {
		prev, known := l.snapshot[p]
		if !known {
			continue
		}
		count := CountLines(p)
		if count > prev {
			l.active = &Shard{Path: p, Offset: prev, LastCount: count, LastGrowth: now}
			return
		}
	}

	for _, p := range paths {
		if _, known := l.snapshot[p]; known {
			continue
		}
		l.active = &Shard{Path: p, Offset: 0, LastCount: CountLines(p), LastGrowth: now}
		return
	}
}

// findRotation returns a shard absent from the pre-dispatch snapshot, other
// than the active one, that has nonzero content.
func (l *Locator) findRotation() string {
	for _, p := range ListShards(l.dir) {
		if p == l.active.Path {
			continue
		}
		if _, known := l.snapshot[p]; known {
			continue
		}
		if CountLines(p) > 0 {
			return p
		}
	}
	return ""
}

// Quiet returns how long the active shard has gone without growth as of now.
func (s *Shard) Quiet(now time.Time) time.Duration {
	return now.Sub(s.LastGrowth)
}

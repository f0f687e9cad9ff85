package oadb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/next-exp/oaevent_go/pkg/event"
	"github.com/next-exp/oaevent_go/pkg/geomid"
	"github.com/next-exp/oaevent_go/pkg/geommanager"
	"github.com/next-exp/oaevent_go/pkg/logger"
	"golang.org/x/exp/slices"
)

// GeometryChange is told when a new geometry or alignment has been loaded.
// Implementations must be comparable so they can be removed again.
type GeometryChange interface {
	Callback(ev *event.Event)
}

// GeometryLookup names the geometry an event should be reconstructed with.
// An invalid hash means no opinion.
type GeometryLookup interface {
	GetHash(ev *event.Event) geomid.HashValue
}

// AlignmentLookup provides the alignment of an event.
type AlignmentLookup interface {
	// CheckAlignment reports whether the alignment for ev differs from the
	// one applied last.
	CheckAlignment(ev *event.Event) bool
	// Alignments returns the alignment id and its corrections. Every call
	// returns the complete set.
	Alignments(ev *event.Event) (geomid.AlignmentId, []geommanager.Correction, error)
}

// AlignmentRecorder is implemented by alignment lookups that keep track of
// the alignment in effect. AlignmentApplied is called after the result of
// Alignments has been applied to the geometry, with ok false when that
// failed.
type AlignmentRecorder interface {
	AlignmentApplied(ok bool)
}

// The dates in GEOMETRY.LIST are Japan standard time.
var jst = time.FixedZone("JST", 9*60*60)

// The shortest line holding a date, a time and a hash.
const minListLine = 20

type geometryEntry struct {
	start time.Time
	hash  geomid.HashValue
}

// DefaultGeometryLookup chooses the geometry by the event time from a list
// of "YYYY-MM-DD HH:MM h0-h1-h2-h3-h4" lines, each giving the first time a
// geometry is valid.
type DefaultGeometryLookup struct {
	entries []geometryEntry
}

// LoadGeometryList reads the lookup from a GEOMETRY.LIST file.
func LoadGeometryList(path string) (*DefaultGeometryLookup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening geometry list: %w", err)
	}
	defer f.Close()
	return ParseGeometryList(f)
}

// ParseGeometryList reads a geometry list. Malformed lines are logged and
// skipped.
func ParseGeometryList(r io.Reader) (*DefaultGeometryLookup, error) {
	l := &DefaultGeometryLookup{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if comment := strings.Index(line, "#"); comment >= 0 {
			line = line[:comment]
		}
		if len(line) < minListLine {
			continue
		}
		entry, err := parseListLine(line)
		if err != nil {
			logger.Error(fmt.Errorf("%w: %q", err, scanner.Text()).Error())
			continue
		}
		l.entries = append(l.entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading geometry list: %w", err)
	}

	slices.SortStableFunc(l.entries, func(a, b geometryEntry) int {
		return a.start.Compare(b.start)
	})
	if logger.Verbosity() > 1 {
		logger.Info("Available Geometries:", "geometry")
		for _, e := range l.entries {
			logger.Info(fmt.Sprintf("  First valid date: %s UTC -- Hash code: %s",
				e.start.UTC().Format(time.DateTime), e.hash), "geometry")
		}
	}
	return l, nil
}

func parseListLine(line string) (geometryEntry, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return geometryEntry{}, fmt.Errorf("could not parse geometry list line")
	}
	start, err := time.ParseInLocation("2006-1-2 15:4", fields[0]+" "+fields[1], jst)
	if err != nil {
		return geometryEntry{}, fmt.Errorf("could not parse date: %w", err)
	}
	words := strings.Split(fields[2], "-")
	if len(words) != 5 {
		return geometryEntry{}, fmt.Errorf("could not parse hash")
	}
	var h geomid.HashValue
	for i, w := range words {
		v, err := strconv.ParseUint(w, 16, 32)
		if err != nil {
			return geometryEntry{}, fmt.Errorf("could not parse hash: %w", err)
		}
		h[i] = uint32(v)
	}
	return geometryEntry{start: start, hash: h}, nil
}

func (l *DefaultGeometryLookup) Len() int {
	return len(l.entries)
}

// HashAt returns the geometry valid at t: the latest entry starting at or
// before t, the first entry when t is earlier than all of them.
func (l *DefaultGeometryLookup) HashAt(t time.Time) geomid.HashValue {
	if len(l.entries) == 0 {
		return geomid.HashValue{}
	}
	i := 0
	for i < len(l.entries) && !l.entries[i].start.After(t) {
		i++
	}
	if i == 0 {
		return l.entries[0].hash
	}
	return l.entries[i-1].hash
}

// GetHash prefers the hash stored in the event. Otherwise it chooses by the
// event time stamp.
func (l *DefaultGeometryLookup) GetHash(ev *event.Event) geomid.HashValue {
	if len(l.entries) == 0 || ev == nil {
		return geomid.HashValue{}
	}
	if hc := ev.GeometryHash(); hc.Valid() {
		return hc
	}
	return l.HashAt(time.Unix(ev.Context().Timestamp, 0))
}

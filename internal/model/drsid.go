// Package model defines the core catalog entities: DRS ids, dataset records,
// variable schema info, and archive features.
package model

import (
	"fmt"
	"strings"
)

// DrsId is the nine-segment dotted identifier naming a CCI product, e.g.
// "esacci.OZONE.mon.L3.NP.multi-sensor.multi-platform.MERGED.fv0002.r1".
type DrsId string

// drsSegmentCount counts the literal "esacci" prefix plus the nine facet
// segments spec.md §3 names, e.g.
// "esacci.OZONE.mon.L3.NP.multi-sensor.multi-platform.MERGED.fv0002.r1".
const drsSegmentCount = 10

// Segment indices into a split DRS id, per spec.md §3. Index 0 is the
// literal "esacci" prefix.
const (
	segPrefix = iota
	SegECV
	SegFrequency
	SegLevel
	SegDataType
	SegSensor
	SegPlatform
	SegProductString
	SegProductVersion
	SegGrid
)

// Split returns the dot-separated segments of the id (the "esacci" prefix
// plus nine facet segments), or an error if the id does not have exactly
// drsSegmentCount (ten) segments.
func (d DrsId) Split() ([]string, error) {
	parts := strings.Split(string(d), ".")
	if len(parts) != drsSegmentCount {
		return nil, fmt.Errorf("drsid: %q has %d segments, want %d", d, len(parts), drsSegmentCount)
	}
	return parts, nil
}

// Segment returns the segment at the given index (one of the Seg* constants).
func (d DrsId) Segment(i int) (string, error) {
	parts, err := d.Split()
	if err != nil {
		return "", err
	}
	if i < 0 || i >= len(parts) {
		return "", fmt.Errorf("drsid: segment index %d out of range", i)
	}
	return parts[i], nil
}

func (d DrsId) String() string { return string(d) }

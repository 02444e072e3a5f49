// Package gpx parses GPX track files and derives the aggregate statistics
// stored on GPX dataset versions: total distance, elevation gain/loss,
// point and track counts.
package gpx

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

const earthRadiusMeters = 6371000

// document mirrors the subset of the GPX 1.1 schema we care about.
type document struct {
	XMLName xml.Name `xml:"gpx"`
	Tracks  []track  `xml:"trk"`
}

type track struct {
	Name     string    `xml:"name"`
	Segments []segment `xml:"trkseg"`
}

type segment struct {
	Points []point `xml:"trkpt"`
}

type point struct {
	Lat  float64  `xml:"lat,attr"`
	Lon  float64  `xml:"lon,attr"`
	Ele  *float64 `xml:"ele"`
	Time string   `xml:"time"`
}

// Bounds is the bounding box of a track.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Stats aggregates one GPX file. Distances and elevations are in meters,
// duration in seconds.
type Stats struct {
	Distance      float64
	ElevationGain float64
	ElevationLoss float64
	PointCount    int
	TrackCount    int
	Duration      float64
	Bounds        Bounds
	TrackName     string
}

// Parse reads a GPX document and computes its statistics.
func Parse(r io.Reader) (*Stats, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}

	var (
		coords     [][2]float64
		elevations []float64
		times      []time.Time
	)
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				coords = append(coords, [2]float64{p.Lat, p.Lon})
				if p.Ele != nil {
					elevations = append(elevations, *p.Ele)
				}
				if p.Time != "" {
					if ts, err := time.Parse(time.RFC3339, p.Time); err == nil {
						times = append(times, ts)
					}
				}
			}
		}
	}

	gain, loss := elevation(elevations)
	stats := &Stats{
		Distance:      distance(coords),
		ElevationGain: gain,
		ElevationLoss: loss,
		PointCount:    len(coords),
		TrackCount:    len(doc.Tracks),
		Duration:      duration(times),
		Bounds:        bounds(coords),
	}
	if len(doc.Tracks) > 0 && doc.Tracks[0].Name != "" {
		stats.TrackName = doc.Tracks[0].Name
	} else {
		stats.TrackName = "Unnamed Track"
	}
	return stats, nil
}

// ParseFile parses the GPX file at path.
func ParseFile(path string) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gpx %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Validate reports whether the file at path is a well-formed GPX document.
func Validate(path string) error {
	_, err := ParseFile(path)
	return err
}

// distance sums the haversine distance over consecutive points.
func distance(coords [][2]float64) float64 {
	if len(coords) < 2 {
		return 0
	}
	var total float64
	for i := 0; i < len(coords)-1; i++ {
		total += haversine(coords[i][0], coords[i][1], coords[i+1][0], coords[i+1][1])
	}
	return total
}

// haversine returns the great-circle distance between two points in meters.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// elevation accumulates positive and negative elevation change.
func elevation(elevations []float64) (gain, loss float64) {
	for i := 0; i+1 < len(elevations); i++ {
		diff := elevations[i+1] - elevations[i]
		if diff > 0 {
			gain += diff
		} else {
			loss += -diff
		}
	}
	return gain, loss
}

func duration(times []time.Time) float64 {
	if len(times) < 2 {
		return 0
	}
	return times[len(times)-1].Sub(times[0]).Seconds()
}

func bounds(coords [][2]float64) Bounds {
	if len(coords) == 0 {
		return Bounds{}
	}
	b := Bounds{
		MinLat: coords[0][0], MaxLat: coords[0][0],
		MinLon: coords[0][1], MaxLon: coords[0][1],
	}
	for _, c := range coords[1:] {
		b.MinLat = math.Min(b.MinLat, c[0])
		b.MaxLat = math.Max(b.MaxLat, c[0])
		b.MinLon = math.Min(b.MinLon, c[1])
		b.MaxLon = math.Max(b.MaxLon, c[1])
	}
	return b
}

package envdata

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sync"
	"time"

	"eldersafe/internal/types"
)

// smoothingWindow is the number of readings averaged per sensor field.
const smoothingWindow = 5

// sensorRange is the accepted physical range for one sensor field; readings
// outside it are dropped as hardware glitches.
type sensorRange struct {
	low, high float64
}

var sensorRanges = map[string]sensorRange{
	"pm25":        {0, 1000}, // µg/m³
	"pm10":        {0, 1500}, // µg/m³
	"temperature": {-20, 60}, // °C
	"humidity":    {0, 100},  // relative %
	"noise_db":    {0, 150},  // dB
	"water_level": {0, 500},  // cm
}

// fieldWindow is a fixed-size rolling buffer of valid readings.
type fieldWindow struct {
	values []float64
	next   int
	filled int
}

func newFieldWindow(size int) *fieldWindow {
	return &fieldWindow{values: make([]float64, size)}
}

func (w *fieldWindow) push(v float64) {
	w.values[w.next] = v
	w.next = (w.next + 1) % len(w.values)
	if w.filled < len(w.values) {
		w.filled++
	}
}

func (w *fieldWindow) average() (float64, bool) {
	if w.filled == 0 {
		return 0, false
	}
	sum := 0.0
	for i := 0; i < w.filled; i++ {
		sum += w.values[i]
	}
	return sum / float64(w.filled), true
}

// SensorSmoother validates and temporally smooths hardware sensor readings.
// Out-of-range values are rejected; accepted values enter a rolling window
// whose average is returned, which damps single-reading spikes. The last
// valid value survives gaps where a sensor briefly reports nothing.
type SensorSmoother struct {
	mu        sync.Mutex
	windows   map[string]*fieldWindow
	lastValid map[string]float64
	logger    *slog.Logger
}

// NewSensorSmoother creates a SensorSmoother with the standard window size.
func NewSensorSmoother(logger *slog.Logger) *SensorSmoother {
	if logger == nil {
		logger = slog.Default()
	}
	return &SensorSmoother{
		windows:   make(map[string]*fieldWindow),
		lastValid: make(map[string]float64),
		logger:    logger,
	}
}

// Ingest processes one sensor reading set: each field is range-validated,
// pushed into its rolling window, and returned as the window average rounded
// to two decimals. Fields that have never reported remain nil.
func (s *SensorSmoother) Ingest(reading types.SensorReadings) types.SensorReadings {
	s.mu.Lock()
	defer s.mu.Unlock()

	return types.SensorReadings{
		PM25:        s.smooth("pm25", reading.PM25),
		PM10:        s.smooth("pm10", reading.PM10),
		Temperature: s.smooth("temperature", reading.Temperature),
		Humidity:    s.smooth("humidity", reading.Humidity),
		NoiseDB:     s.smooth("noise_db", reading.NoiseDB),
		WaterLevel:  s.smooth("water_level", reading.WaterLevel),
	}
}

// Latest returns the current smoothed value set without ingesting anything.
func (s *SensorSmoother) Latest() types.SensorReadings {
	s.mu.Lock()
	defer s.mu.Unlock()

	return types.SensorReadings{
		PM25:        s.current("pm25"),
		PM10:        s.current("pm10"),
		Temperature: s.current("temperature"),
		Humidity:    s.current("humidity"),
		NoiseDB:     s.current("noise_db"),
		WaterLevel:  s.current("water_level"),
	}
}

// smooth must be called with the mutex held.
func (s *SensorSmoother) smooth(field string, raw *float64) *float64 {
	if raw != nil {
		r := sensorRanges[field]
		if *raw < r.low || *raw > r.high {
			s.logger.Warn("rejecting out-of-range sensor reading",
				"field", field,
				"value", *raw,
				"range_low", r.low,
				"range_high", r.high,
			)
		} else {
			w, ok := s.windows[field]
			if !ok {
				w = newFieldWindow(smoothingWindow)
				s.windows[field] = w
			}
			w.push(*raw)
			s.lastValid[field] = *raw
		}
	}
	return s.current(field)
}

// current must be called with the mutex held.
func (s *SensorSmoother) current(field string) *float64 {
	if w, ok := s.windows[field]; ok {
		if avg, ok := w.average(); ok {
			v := math.Round(avg*100) / 100
			return &v
		}
	}
	if v, ok := s.lastValid[field]; ok {
		return &v
	}
	return nil
}

// metroNoiseOffset raises the ambient noise floor near dense metros, based
// on published CPCB measurements. Influence fades linearly with distance
// from the city center.
type metroNoiseOffset struct {
	lat, lon  float64
	radiusDeg float64
	offsetDB  float64
}

var metroNoiseOffsets = []metroNoiseOffset{
	{28.61, 77.21, 0.3, 8},   // Delhi NCR
	{19.08, 72.88, 0.25, 6},  // Mumbai
	{22.57, 88.36, 0.2, 5},   // Kolkata
	{13.08, 80.27, 0.2, 3},   // Chennai
	{12.97, 77.59, 0.2, 2},   // Bangalore
	{17.39, 78.49, 0.2, 2},   // Hyderabad
	{18.52, 73.86, 0.2, 0},   // Pune
}

// EstimateNoise approximates the ambient noise level for a location with no
// hardware sensor, from the urban time-of-day pattern (IST), metro density
// offsets, and a small deterministic per-coordinate variance.
func EstimateNoise(lat, lon float64, now time.Time) float64 {
	ist := now.UTC().Add(5*time.Hour + 30*time.Minute)
	hour := ist.Hour()

	var timeBase float64
	switch {
	case hour < 5:
		timeBase = 35 // late night
	case hour < 7:
		timeBase = 45 // early morning
	case hour < 10:
		timeBase = 62 // morning rush
	case hour < 13:
		timeBase = 55
	case hour < 16:
		timeBase = 52
	case hour < 20:
		timeBase = 65 // evening rush
	case hour < 22:
		timeBase = 50
	default:
		timeBase = 42
	}

	cityAdj := 0.0
	for _, m := range metroNoiseOffsets {
		dist := math.Hypot(lat-m.lat, lon-m.lon)
		if dist < m.radiusDeg {
			influence := 1 - dist/m.radiusDeg
			cityAdj = math.Max(cityAdj, m.offsetDB*influence)
		}
	}

	// Deterministic ±3 dB variance so neighboring points differ slightly.
	h := fnv.New32a()
	fmt.Fprintf(h, "%.4f,%.4f", lat, lon)
	micro := (float64(h.Sum32()%60) - 30) / 10

	noise := timeBase + cityAdj + micro
	noise = math.Max(25, math.Min(95, noise))
	return math.Round(noise*10) / 10
}

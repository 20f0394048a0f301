package risk

// FactorKind is the closed enumeration of the six environmental risk factors.
// Scorers, weights, and display names are bound to kinds at compile time;
// there is no string-keyed dispatch anywhere in the engine.
type FactorKind int

const (
	FactorAirQuality FactorKind = iota
	FactorThermal
	FactorHumidity
	FactorUV
	FactorFlood
	FactorNoise
)

// AllFactors lists the kinds in canonical assessment order. The aggregator's
// tie-breaking for top-risk selection depends on this order being stable.
var AllFactors = [6]FactorKind{
	FactorAirQuality,
	FactorThermal,
	FactorHumidity,
	FactorUV,
	FactorFlood,
	FactorNoise,
}

// DisplayName returns the human-facing factor name used in assessments,
// summaries, and alert titles.
func (k FactorKind) DisplayName() string {
	switch k {
	case FactorAirQuality:
		return "Air Quality"
	case FactorThermal:
		return "Thermal Comfort"
	case FactorHumidity:
		return "Humidity"
	case FactorUV:
		return "UV Exposure"
	case FactorFlood:
		return "Flood / Waterlogging"
	case FactorNoise:
		return "Noise Pollution"
	default:
		return "Unknown"
	}
}

// Weight returns the canonical aggregation weight for the factor. Thermal and
// air quality are weighted highest because they cause the most acute health
// events in the elderly population.
func (k FactorKind) Weight() float64 {
	switch k {
	case FactorAirQuality:
		return 0.25
	case FactorThermal:
		return 0.25
	case FactorHumidity:
		return 0.15
	case FactorUV:
		return 0.12
	case FactorFlood:
		return 0.13
	case FactorNoise:
		return 0.10
	default:
		return defaultWeight
	}
}

// defaultWeight applies to assessments whose name does not match any known
// factor kind. Callers composing custom factor lists still aggregate cleanly.
const defaultWeight = 0.10

// KindForName resolves a display name back to its FactorKind. The boolean is
// false for unrecognized names, which the aggregator handles as an explicit
// default-weight branch.
func KindForName(name string) (FactorKind, bool) {
	for _, k := range AllFactors {
		if k.DisplayName() == name {
			return k, true
		}
	}
	return 0, false
}

// weightForName returns the aggregation weight for a factor assessment by
// display name, falling back to defaultWeight for unrecognized names.
func weightForName(name string) float64 {
	if k, ok := KindForName(name); ok {
		return k.Weight()
	}
	return defaultWeight
}

package device

import "strings"

// capabilities is ordered table of supported device classes. Multiple tags can point to the same driver.
var capabilities = []Capability{
	{Tag: "GPS", New: NewGPS, ParseConfig: ParseGPSConfig},
	{Tag: "I2C", New: NewI2C, ParseConfig: ParseI2CConfig},
	{Tag: "NMEA", New: NewNMEA, ParseConfig: ParseNMEAConfig},
	{Tag: "MP", New: NewMP, ParseConfig: ParseMPConfig},
	{Tag: "SL", New: NewMP, ParseConfig: ParseMPConfig},
	{Tag: "TIMER", New: NewTimer, ParseConfig: ParseTimerConfig},
	{Tag: "TICK", New: NewTimer, ParseConfig: ParseTimerConfig},
}

// matchTag reports if id starts with tag (case-insensitive)
func matchTag(id string, tag string) bool {
	return len(id) >= len(tag) && strings.EqualFold(id[:len(tag)], tag)
}

// Lookup returns first capability whose tag is prefix of id. Zero Capability is returned when id is not supported.
func Lookup(id string) Capability {
	for _, c := range capabilities {
		if matchTag(id, c.Tag) {
			return c
		}
	}
	return Capability{}
}

// Parser returns config parser of first capability whose tag is prefix of id or nil when id is not supported.
func Parser(id string) ConfigParser {
	for _, c := range capabilities {
		if matchTag(id, c.Tag) {
			return c.ParseConfig
		}
	}
	return nil
}

// Tags returns all registered tags in lookup order
func Tags() []string {
	result := make([]string, 0, len(capabilities))
	for _, c := range capabilities {
		result = append(result, c.Tag)
	}
	return result
}

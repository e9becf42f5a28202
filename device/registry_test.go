package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	var testCases = []struct {
		name      string
		when      string
		expectTag string
	}{
		{name: "ok, exact", when: "GPS", expectTag: "GPS"},
		{name: "ok, prefix and case insensitive", when: "gpsreceiver", expectTag: "GPS"},
		{name: "ok, nmea", when: "Nmea2000", expectTag: "NMEA"},
		{name: "ok, mp", when: "mp", expectTag: "MP"},
		{name: "ok, sl alias", when: "SLImu", expectTag: "SL"},
		{name: "ok, timer", when: "timer1", expectTag: "TIMER"},
		{name: "ok, tick alias", when: "tick", expectTag: "TICK"},
		{name: "nok, unknown", when: "unknowntype", expectTag: ""},
		{name: "ok, i2c", when: "i2cpower", expectTag: "I2C"},
		{name: "nok, spi is not supported", when: "SPI", expectTag: ""},
		{name: "nok, shorter than tag", when: "gp", expectTag: ""},
		{name: "nok, empty", when: "", expectTag: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Lookup(tc.when)

			assert.Equal(t, tc.expectTag, c.Tag)
			assert.Equal(t, tc.expectTag != "", c.Supported())
			assert.Equal(t, tc.expectTag != "", Parser(tc.when) != nil)
		})
	}
}

func TestLookup_UnknownIsEmpty(t *testing.T) {
	c := Lookup("unknowntype")

	assert.False(t, c.Supported())
	assert.Nil(t, c.New)
	assert.Nil(t, c.ParseConfig)
	assert.Nil(t, Parser("unknowntype"))
}

func TestLookup_AliasesShareParser(t *testing.T) {
	opts, err := Parser("SL")(tomlSection{name: "imu", body: `port = "/dev/ttyUSB1"`})
	assert.NoError(t, err)
	assert.IsType(t, &MPOptions{}, opts)

	opts, err = Parser("tick")(tomlSection{name: "clock", body: `frequency = 5`})
	assert.NoError(t, err)
	assert.IsType(t, &TimerOptions{}, opts)
}

func TestTags(t *testing.T) {
	assert.Equal(t, []string{"GPS", "I2C", "NMEA", "MP", "SL", "TIMER", "TICK"}, Tags())
}

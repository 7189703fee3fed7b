package cosem

import "strconv"

// Unit is the enumerated physical unit attached to a register reading.
type Unit uint8

const (
	UnitNone           Unit = 0
	UnitCubicMeter     Unit = 13
	UnitWatt           Unit = 27
	UnitVoltAmpere     Unit = 28
	UnitVar            Unit = 29
	UnitWattHour       Unit = 30
	UnitVoltAmpereHour Unit = 31
	UnitVarHour        Unit = 32
	UnitAmpere         Unit = 33
	UnitVolt           Unit = 35
	UnitHertz          Unit = 44
	UnitPercent        Unit = 57
	UnitCount          Unit = 255
)

var unitNames = map[Unit]string{
	UnitNone:           "",
	5:                  "h",
	6:                  "min",
	7:                  "s",
	9:                  "degC",
	UnitCubicMeter:     "m3",
	UnitWatt:           "W",
	UnitVoltAmpere:     "VA",
	UnitVar:            "var",
	UnitWattHour:       "Wh",
	UnitVoltAmpereHour: "VAh",
	UnitVarHour:        "varh",
	UnitAmpere:         "A",
	UnitVolt:           "V",
	UnitHertz:          "Hz",
	UnitPercent:        "%",
	UnitCount:          "count",
}

// String returns the conventional short symbol, or unit(N) for values
// outside the table.
func (u Unit) String() string {
	if s, ok := unitNames[u]; ok {
		return s
	}
	return "unit(" + strconv.Itoa(int(u)) + ")"
}

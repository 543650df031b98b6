package models

// Label tables translating model codes to domain values.
var (
	IduStatusLabels = map[int]string{0: "OFF", 1: "ON"}

	TemperatureLabels = map[int]int{0: 0, 1: 20, 2: 21, 3: 22, 4: 23, 5: 24, 6: 25, 7: 26}

	FanSpeedLabels = map[int]string{0: "0", 1: "High", 2: "Low"}

	ModeLabels = map[int]string{0: "0", 1: "Cool"}
)

// MaxTemperatureCode is the largest code in TemperatureLabels.
const MaxTemperatureCode = 7

// TemperatureCodeFor returns the code whose label is degrees.
func TemperatureCodeFor(degrees int) (int, bool) {
	for code, label := range TemperatureLabels {
		if label == degrees && code != 0 {
			return code, true
		}
	}
	return 0, false
}

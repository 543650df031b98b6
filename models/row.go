package models

// TimeLayout is the zone-local display format of Row.Time (DD-MM-YYYY HH:MM:SS).
const TimeLayout = "02-01-2006 15:04:05"

// SourcePrediction marks rows produced by the prediction pipeline. It is also
// the default for externally submitted rows that omit Source.
const SourcePrediction = "Prediction"

// Columns is the fixed column order of the result table.
var Columns = []string{"Time", "Cabin_No", "Idu_Status", "Temperature", "FanSpeed", "Mode", "Source"}

// Row is one predicted (or externally submitted) cabin state.
type Row struct {
	Time        string `json:"Time"`
	CabinNo     int    `json:"Cabin_No"`
	IduStatus   string `json:"Idu_Status"`
	Temperature int    `json:"Temperature"`
	FanSpeed    string `json:"FanSpeed"`
	Mode        string `json:"Mode"`
	Source      string `json:"Source"`
}

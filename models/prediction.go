package models

import "time"

// CabinPrediction is the Postgres mirror of a result row.
type CabinPrediction struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TS          time.Time `gorm:"column:ts;index" json:"ts"`
	CabinNo     int       `gorm:"column:cabin_no;index" json:"cabin_no"`
	IduStatus   string    `gorm:"column:idu_status" json:"idu_status"`
	Temperature int       `gorm:"column:temperature" json:"temperature"`
	FanSpeed    string    `gorm:"column:fan_speed" json:"fan_speed"`
	Mode        string    `gorm:"column:mode" json:"mode"`
	Source      string    `gorm:"column:source;default:Prediction" json:"source"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (CabinPrediction) TableName() string { return "cabin_predictions" }

// ParseTime parses a Row.Time value in loc.
func ParseTime(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, value, loc)
}

// ToCabinPrediction converts a result row for the mirror table.
func (r Row) ToCabinPrediction(loc *time.Location) (CabinPrediction, error) {
	ts, err := ParseTime(r.Time, loc)
	if err != nil {
		return CabinPrediction{}, err
	}
	return CabinPrediction{
		TS:          ts,
		CabinNo:     r.CabinNo,
		IduStatus:   r.IduStatus,
		Temperature: r.Temperature,
		FanSpeed:    r.FanSpeed,
		Mode:        r.Mode,
		Source:      r.Source,
	}, nil
}

package domain

import "time"

// LookupInput identifies a data source by its names
type LookupInput struct {
	Observatory string `query:"observatory" validate:"required,max=64" example:"SDO"`
	Instrument  string `query:"instrument" validate:"required,max=64" example:"AIA"`
	Detector    string `query:"detector" validate:"required,max=64" example:"AIA"`
	Measurement string `query:"measurement" validate:"required,max=64" example:"171"`
}

// ClosestInput asks for the image nearest a time
type ClosestInput struct {
	SourceID int64     `query:"source_id" validate:"required,min=1" example:"3"`
	Date     time.Time `query:"date" validate:"required" example:"2014-01-01T00:00:00.000Z"`
}

// LookupOutput is the resolved source id
type LookupOutput struct {
	ID int64 `json:"id"`
}

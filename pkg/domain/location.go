package domain

import dErrors "beacon/pkg/domain-errors"

// Location is a WGS84 coordinate with optional reported accuracy in meters.
type Location struct {
	Lat      float64
	Lng      float64
	Accuracy *float64
}

// ParseLocation validates externally supplied coordinates.
func ParseLocation(lat, lng float64, accuracy *float64) (Location, error) {
	if lat < -90 || lat > 90 {
		return Location{}, dErrors.New(dErrors.CodeInvalidInput, "latitude out of range")
	}
	if lng < -180 || lng > 180 {
		return Location{}, dErrors.New(dErrors.CodeInvalidInput, "longitude out of range")
	}
	if accuracy != nil && *accuracy < 0 {
		return Location{}, dErrors.New(dErrors.CodeInvalidInput, "accuracy cannot be negative")
	}
	return Location{Lat: lat, Lng: lng, Accuracy: accuracy}, nil
}

package multizone

import "errors"

// Domain errors for the multizone package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, multizone.ErrInvalidZone) {
//	    // handle out-of-range zone id
//	}
var (
	// ErrNoZones is returned when a zone selection is empty.
	ErrNoZones = errors.New("multizone: no zones selected")

	// ErrInvalidZone is returned when a zone id is outside the configured range.
	ErrInvalidZone = errors.New("multizone: invalid zone id")

	// ErrDuplicateZone is returned when a zone selection contains the same id twice.
	ErrDuplicateZone = errors.New("multizone: duplicate zone id")

	// ErrZoneNotFound is returned when querying a zone that does not exist.
	ErrZoneNotFound = errors.New("multizone: zone not found")
)

package domain

import "errors"

var (
	ErrRouteTooShort      = errors.New("route geometry needs at least two vertices")
	ErrNoCurrentPosition  = errors.New("current position is not available yet")
	ErrNoDestination      = errors.New("original destination is not available")
	ErrWatchStopped       = errors.New("position watch stopped after permission was denied")
	ErrOutsideBoundary    = errors.New("coordinates are outside the campus boundary")
	ErrDirectionsFailed   = errors.New("directions service failed")
	ErrNoRouteFound       = errors.New("directions service found no route")
	ErrLocationNotFound   = errors.New("location not found")
	ErrInvalidLocation    = errors.New("location needs an id, a name and valid coordinates")
	ErrInvalidMode        = errors.New("unsupported travel mode")
	ErrQueryTooShort      = errors.New("search text needs at least two characters")
	ErrInvalidCoordinates = errors.New("latitude or longitude out of range")
	ErrSessionNotFound    = errors.New("navigation session not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrForbidden          = errors.New("access forbidden")

	ErrNotificationNotFound = errors.New("notification not found")
)

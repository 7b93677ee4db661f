package domain

import "errors"

var (
	// ErrInvalidArea возникает, когда область интереса не задана или задана дважды
	ErrInvalidArea = errors.New("invalid area: exactly one of bbox or center+radius required")

	// ErrInvalidCoordinates возникает при координатах вне диапазона
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	// ErrInvalidRadius возникает при неположительном или чрезмерном радиусе
	ErrInvalidRadius = errors.New("invalid radius: must be positive and at most 50km")
)

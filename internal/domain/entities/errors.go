package entities

import "errors"

var (
	// ErrTokenNotFound is returned when no token has the requested id
	ErrTokenNotFound = errors.New("token not found")

	// ErrDuplicateToken is returned when a name or slug is already taken
	ErrDuplicateToken = errors.New("token with this slug or name already exists")

	// ErrInvalidToken is returned when a new token lacks a name or slug
	ErrInvalidToken = errors.New("name and slug are required")

	// ErrTokenArchived is returned when a volume update targets an archived token
	ErrTokenArchived = errors.New("cannot update volume for archived token")

	// ErrSymbolNotFound is returned when the market vendor does not list a symbol
	ErrSymbolNotFound = errors.New("symbol not listed by market data vendor")

	// ErrMarketDataUnavailable is returned when the vendor has no usable data
	ErrMarketDataUnavailable = errors.New("market data unavailable")
)

package transaction

import "errors"

var (
	// ErrNotFound is returned when a transaction cannot be found
	ErrNotFound = errors.New("transaction not found")

	// ErrMissingUserID is returned when the user id is empty
	ErrMissingUserID = errors.New("user id is required")

	// ErrMissingDeviceID is returned when the device id is empty
	ErrMissingDeviceID = errors.New("device id is required")

	// ErrNegativeAmount is returned when transaction amount is negative
	ErrNegativeAmount = errors.New("transaction amount cannot be negative")

	// ErrInvalidCurrency is returned when currency is not a 3-letter ISO code
	ErrInvalidCurrency = errors.New("currency must be a 3-letter ISO-4217 code")

	// ErrInvalidType is returned when the transaction type is not recognized
	ErrInvalidType = errors.New("transaction type must be one of TRANSFER, CARD, QR, POS")

	// ErrInvalidLocation is returned when latitude or longitude is out of range
	ErrInvalidLocation = errors.New("location coordinates out of range")
)

package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the current state of a transaction record
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusDenied   Status = "DENIED"
	StatusFlagged  Status = "FLAGGED"
)

// Type categorizes the payment channel of a transaction
type Type string

const (
	TypeTransfer Type = "TRANSFER"
	TypeCard     Type = "CARD"
	TypeQR       Type = "QR"
	TypePOS      Type = "POS"
)

// Location is the geographic origin of a transaction.
// Comparing it against the user's last known location is what powers the
// geo-jump rule.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CardDetails carries the card context for CARD transactions
type CardDetails struct {
	Last4   string `json:"last4"`
	BIN     string `json:"bin"`
	Country string `json:"country"`
}

// Transaction is the core entity flowing through the scoring pipeline.
// Amounts use decimal for financial precision; callers normalize to a single
// currency before submission.
type Transaction struct {
	// Identity
	ID uuid.UUID `json:"id"`

	// Subject
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`

	// Details
	Type     Type            `json:"type"`
	Status   Status          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`

	// Optional context
	Location            *Location    `json:"location,omitempty"`
	BeneficiaryAccount  string       `json:"beneficiary_account,omitempty"`
	BeneficiaryBankCode string       `json:"beneficiary_bank_code,omitempty"`
	MerchantID          string       `json:"merchant_id,omitempty"`
	Card                *CardDetails `json:"card_details,omitempty"`

	// Engine-assigned
	IPAddress string  `json:"ip_address,omitempty"`
	RiskScore float64 `json:"risk_score"`

	// Timestamps - CreatedAt anchors every window read
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a transaction with required fields and a fresh id.
// CreatedAt defaults to now when the caller did not supply one.
func New(userID, deviceID string, txType Type, amount decimal.Decimal, currency string, createdAt time.Time) *Transaction {
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		DeviceID:  deviceID,
		Type:      txType,
		Status:    StatusPending,
		Amount:    amount,
		Currency:  currency,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// SetOutcome records the scoring result. Status is FLAGGED exactly when the
// score reached the flag threshold at creation.
func (t *Transaction) SetOutcome(score float64, flagged bool) {
	t.RiskScore = score
	if flagged {
		t.Status = StatusFlagged
	} else {
		t.Status = StatusPending
	}
	t.UpdatedAt = time.Now()
}

// IsFinal reports whether a ground-truth label has already been applied.
func (t *Transaction) IsFinal() bool {
	return t.Status == StatusApproved || t.Status == StatusDenied
}

// Validate performs domain validation on the transaction
func (t *Transaction) Validate() error {
	if t.UserID == "" {
		return ErrMissingUserID
	}
	if t.DeviceID == "" {
		return ErrMissingDeviceID
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if len(t.Currency) != 3 {
		return ErrInvalidCurrency
	}
	switch t.Type {
	case TypeTransfer, TypeCard, TypeQR, TypePOS:
	default:
		return ErrInvalidType
	}
	if t.Location != nil {
		if t.Location.Latitude < -90 || t.Location.Latitude > 90 {
			return ErrInvalidLocation
		}
		if t.Location.Longitude < -180 || t.Location.Longitude > 180 {
			return ErrInvalidLocation
		}
	}
	return nil
}

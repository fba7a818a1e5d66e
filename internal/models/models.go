package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated account holder.
type User struct {
	ID           uuid.UUID
	Email        string
	PhoneNumber  string
	FullName     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserWallet is a user's personal wallet, credited by verified personal
// savings and loan disbursements outside any chama.
type UserWallet struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Balance   int64 // cents
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chama is a savings group. Marketplace chamas start inactive and are
// activated when their registration payment succeeds.
type Chama struct {
	ID                    uuid.UUID
	Name                  string
	Description           string
	CreatedBy             uuid.UUID
	MaxMembers            int32
	CurrentMembers        int32
	ContributionAmount    int64 // cents
	ContributionFrequency string
	PurchasePrice         int64 // cents
	TotalSavings          int64 // cents
	Status                string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ChamaMember links a user to a chama and carries both balances: savings
// (verified contributions) and the liquid MGR wallet.
type ChamaMember struct {
	ID               uuid.UUID
	ChamaID          uuid.UUID
	UserID           uuid.UUID
	Role             string
	SavingsBalance   int64 // cents
	MGRBalance       int64 // cents
	WithdrawalLocked bool
	JoinedAt         time.Time
	UpdatedAt        time.Time
}

// Transaction is a ledger row. Reference is the unique gateway reference;
// provider fields stay empty until the transaction is finalized.
type Transaction struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	ChamaID         uuid.NullUUID
	Reference       string
	AccessCode      string
	Purpose         string
	Amount          int64 // cents
	Currency        string
	Status          string
	Channel         string
	GatewayResponse string
	ResultCode      string
	PaidAt          *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Loan is a member loan against a chama. Interest is flat:
// principal * rate/100 * months/12.
type Loan struct {
	ID             uuid.UUID
	ChamaID        uuid.UUID
	BorrowerID     uuid.UUID
	Amount         int64 // cents, principal
	InterestRate   float64
	DurationMonths int32
	Purpose        string
	Status         string
	TotalDue       int64 // cents, principal + flat interest
	RepaidAmount   int64 // cents
	ApprovedBy     uuid.NullUUID
	DisbursedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Contribution is a member payment into a chama, pending until a treasurer
// or admin verifies it.
type Contribution struct {
	ID            uuid.UUID
	ChamaID       uuid.UUID
	MemberID      uuid.UUID
	Amount        int64 // cents
	PaymentMethod string
	Status        string
	VerifiedBy    uuid.NullUUID
	VerifiedAt    *time.Time
	CreatedAt     time.Time
}

// SavingsGoal is a personal savings target outside any chama.
type SavingsGoal struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Name          string
	TargetAmount  int64 // cents
	CurrentAmount int64 // cents
	Frequency     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AuditRecord is an immutable state-transition entry.
type AuditRecord struct {
	ID         int64
	EntityType string
	EntityID   string
	ActorID    uuid.NullUUID
	Action     string
	PrevState  string
	NextState  string
	Metadata   []byte
	CreatedAt  time.Time
}

// IdempotencyRecord is the durable copy of a processed mutating request.
type IdempotencyRecord struct {
	Key            string
	RequestHash    string
	Method         string
	Path           string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	InProgress     bool
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

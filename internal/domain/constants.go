package domain

const (
	CurrencyKES = "KES"

	// Transaction statuses as stored in the ledger.
	TxStatusPending = "pending"
	TxStatusSuccess = "success"
	TxStatusFailed  = "failed"

	// Transaction purposes carried through gateway metadata.
	PurposeContribution    = "contribution"
	PurposeRegistration    = "registration"
	PurposePersonalSavings = "personal_savings"
	PurposeWalletTopup     = "wallet_topup"
	PurposeWalletTransfer  = "wallet_transfer"
	PurposeWithdrawal      = "withdrawal"
	PurposeOther           = "other"

	// Wallet operations accepted by the dispatcher.
	WalletOpTopup    = "topup"
	WalletOpWithdraw = "withdraw"
	WalletOpSend     = "send"

	// Chama member roles.
	RoleAdmin     = "admin"
	RoleTreasurer = "treasurer"
	RoleSecretary = "secretary"
	RoleMember    = "member"

	// Loan statuses.
	LoanStatusPending   = "pending"
	LoanStatusApproved  = "approved"
	LoanStatusRejected  = "rejected"
	LoanStatusActive    = "active"
	LoanStatusCompleted = "completed"
	LoanStatusDefaulted = "defaulted"

	// Contribution statuses.
	ContributionStatusPending  = "pending"
	ContributionStatusVerified = "verified"
	ContributionStatusRejected = "rejected"
)

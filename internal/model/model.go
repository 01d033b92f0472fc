package model

import "time"

type Status string

const (
	StatusAvailable    Status = "available"
	StatusNotAvailable Status = "not-available"
)

// StatusForQuantity derives the book status from its quantity: a book is
// not-available iff no copies are left.
func StatusForQuantity(quantity int) Status {
	if quantity == 0 {
		return StatusNotAvailable
	}
	return StatusAvailable
}

type Book struct {
	ID           int       `json:"-" db:"id"`
	BookUid      string    `json:"bookUid" db:"book_uid"`
	Title        string    `json:"title" db:"title"`
	Author       string    `json:"author" db:"author"`
	Category     string    `json:"category" db:"category"`
	Quantity     int       `json:"quantity" db:"quantity"`
	BorrowingFee float64   `json:"borrowingFee" db:"borrowing_fee"`
	Status       Status    `json:"status" db:"status"`
	Admin        string    `json:"-" db:"admin"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

type Member struct {
	ID        int       `json:"-" db:"id"`
	MemberUid string    `json:"memberUid" db:"member_uid"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	AmountDue float64   `json:"amountDue" db:"amount_due"`
	Admin     string    `json:"-" db:"admin"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// BorrowedBook is a lending-ledger entry. Joined member and book fields are
// carried for listings.
type BorrowedBook struct {
	ID         int       `json:"-" db:"id"`
	BorrowUid  string    `json:"borrowUid" db:"borrow_uid"`
	MemberUid  string    `json:"memberUid" db:"member_uid"`
	MemberName string    `json:"memberName" db:"member_name"`
	BookUid    string    `json:"bookUid" db:"book_uid"`
	BookTitle  string    `json:"bookTitle" db:"book_title"`
	ReturnDate time.Time `json:"returnDate" db:"return_date"`
	Fine       float64   `json:"fine" db:"fine"`
	Returned   bool      `json:"returned" db:"returned"`
	Admin      string    `json:"-" db:"admin"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

type Transaction struct {
	ID             int       `json:"-" db:"id"`
	TransactionUid string    `json:"transactionUid" db:"transaction_uid"`
	MemberUid      string    `json:"memberUid" db:"member_uid"`
	MemberName     string    `json:"memberName" db:"member_name"`
	Amount         float64   `json:"amount" db:"amount"`
	PaymentMethod  string    `json:"paymentMethod" db:"payment_method"`
	Admin          string    `json:"-" db:"admin"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

type Dashboard struct {
	TotalMembers    int     `json:"totalMembers" db:"total_members"`
	TotalBooks      int     `json:"totalBooks" db:"total_books"`
	TotalBorrowed   int     `json:"totalBorrowed" db:"total_borrowed"`
	TotalOverdue    int     `json:"totalOverdue" db:"total_overdue"`
	TotalCollected  float64 `json:"totalCollected" db:"-"`
	OverdueExposure float64 `json:"overdueExposure" db:"-"`
	RecentBooks     []Book  `json:"recentBooks" db:"-"`
}

type CreateBookRequest struct {
	Title        string  `json:"title" validate:"required,max=100"`
	Author       string  `json:"author" validate:"required,max=100"`
	Category     string  `json:"category" validate:"required,oneof=Programming Technology Science History Story Other"`
	Quantity     int     `json:"quantity" validate:"gte=0"`
	BorrowingFee float64 `json:"borrowingFee" validate:"gte=0"`
}

type UpdateBookRequest struct {
	Title        *string  `json:"title" validate:"omitempty,max=100"`
	Author       *string  `json:"author" validate:"omitempty,max=100"`
	Category     *string  `json:"category" validate:"omitempty,oneof=Programming Technology Science History Story Other"`
	Quantity     *int     `json:"quantity" validate:"omitempty,gte=0"`
	BorrowingFee *float64 `json:"borrowingFee" validate:"omitempty,gte=0"`
}

type CreateMemberRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
}

type UpdateMemberRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type LendRequest struct {
	MemberUid     string   `json:"memberUid" validate:"required,uuid"`
	BookUids      []string `json:"bookUids" validate:"required,min=1,dive,uuid"`
	ReturnDate    string   `json:"returnDate" validate:"required,datetime=2006-01-02"`
	Fine          float64  `json:"fine" validate:"gte=0"`
	PaymentMethod string   `json:"paymentMethod" validate:"required,oneof=Cash Gpay PhonePay Paytm Card"`
}

type SettleFineRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=Cash Gpay PhonePay Paytm Card"`
}

type UpdateBorrowedBookRequest struct {
	ReturnDate *string  `json:"returnDate" validate:"omitempty,datetime=2006-01-02"`
	Fine       *float64 `json:"fine" validate:"omitempty,gte=0"`
}

// LendParams is the repository-level form of LendRequest with the return
// date parsed.
type LendParams struct {
	MemberUid     string
	BookUids      []string
	ReturnDate    time.Time
	Fine          float64
	PaymentMethod string
}

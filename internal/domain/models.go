package domain

import "time"

// Status - состояние модерации заявки или комментария.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Terminal сообщает, что из состояния больше нет переходов.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransition: PENDING -> APPROVED | REJECTED, остальные переходы запрещены.
func (s Status) CanTransition(to Status) bool {
	return s == StatusPending && to.Terminal()
}

// Decision - решение администратора по записи в очереди модерации.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// Valid проверяет, что решение из допустимого набора.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Target - статус, в который переводит запись это решение.
func (d Decision) Target() Status {
	if d == DecisionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// Role - роль пользователя.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid проверяет, что роль из допустимого набора.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Place представляет опубликованное заведение.
// Координаты хранятся текстом, как в исходной коллекции документов.
type Place struct {
	ID           string   `json:"id" mapstructure:"id"`
	Name         string   `json:"name" mapstructure:"name"`
	Address      string   `json:"address" mapstructure:"address"`
	Province     string   `json:"province" mapstructure:"province"`
	Municipality string   `json:"municipality" mapstructure:"municipality"`
	Latitude     string   `json:"latitude" mapstructure:"latitude"`
	Longitude    string   `json:"longitude" mapstructure:"longitude"`
	Phone        string   `json:"phone,omitempty" mapstructure:"phone"`
	OpeningHours string   `json:"openingHours,omitempty" mapstructure:"openingHours"`
	Rating       *float64 `json:"rating,omitempty" mapstructure:"rating"`
}

// PlaceRequest - заявка пользователя на добавление заведения.
type PlaceRequest struct {
	ID           string    `json:"id" mapstructure:"id"`
	Name         string    `json:"name" mapstructure:"name"`
	Address      string    `json:"address" mapstructure:"address"`
	Province     string    `json:"province" mapstructure:"province"`
	Municipality string    `json:"municipality" mapstructure:"municipality"`
	Latitude     float64   `json:"latitude" mapstructure:"latitude"`
	Longitude    float64   `json:"longitude" mapstructure:"longitude"`
	Phone        string    `json:"phone,omitempty" mapstructure:"phone"`
	OpeningHours string    `json:"openingHours,omitempty" mapstructure:"openingHours"`
	Rating       *float64  `json:"rating,omitempty" mapstructure:"rating"`
	Status       Status    `json:"status" mapstructure:"status"`
	SubmittedBy  string    `json:"submittedBy" mapstructure:"submittedBy"`
	CreatedAt    time.Time `json:"createdAt" mapstructure:"createdAt"`
}

// Comment - отзыв пользователя о заведении.
type Comment struct {
	ID        string    `json:"id" mapstructure:"id"`
	Text      string    `json:"text" mapstructure:"text"`
	AuthorID  string    `json:"authorId" mapstructure:"authorId"`
	PlaceID   string    `json:"placeId" mapstructure:"placeId"`
	Status    Status    `json:"status" mapstructure:"status"`
	CreatedAt time.Time `json:"createdAt" mapstructure:"createdAt"`
	Rating    *int      `json:"rating,omitempty" mapstructure:"rating"`
}

// User - учетная запись с единственной ролью.
type User struct {
	ID    string `json:"id" mapstructure:"id"`
	Name  string `json:"name" mapstructure:"name"`
	Email string `json:"email" mapstructure:"email"`
	Role  Role   `json:"role" mapstructure:"role"`
}

// IsAdmin сообщает, есть ли у пользователя права модератора.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Approval - запись журнала решений по заявке. Ключ записи совпадает с ID
// заявки; кто первым создал запись, тот и решает судьбу заявки.
// PlaceID заполняется только для APPROVE.
type Approval struct {
	RequestID  string    `json:"requestId" mapstructure:"requestId"`
	Decision   Decision  `json:"decision" mapstructure:"decision"`
	PlaceID    string    `json:"placeId" mapstructure:"placeId"`
	ReviewedBy string    `json:"reviewedBy" mapstructure:"reviewedBy"`
	Completed  bool      `json:"completed" mapstructure:"completed"`
	CreatedAt  time.Time `json:"createdAt" mapstructure:"createdAt"`
}

// Outcome - принятое решение. Записи без поля decision созданы одобрением.
func (a Approval) Outcome() Decision {
	if a.Decision == "" {
		return DecisionApprove
	}
	return a.Decision
}

// CommentReview - запись журнала решений по комментарию, ключ - ID комментария.
type CommentReview struct {
	CommentID  string    `json:"commentId" mapstructure:"commentId"`
	Decision   Decision  `json:"decision" mapstructure:"decision"`
	ReviewedBy string    `json:"reviewedBy" mapstructure:"reviewedBy"`
	Completed  bool      `json:"completed" mapstructure:"completed"`
	CreatedAt  time.Time `json:"createdAt" mapstructure:"createdAt"`
}

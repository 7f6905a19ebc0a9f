package members

import "time"

type RegisterRequest struct {
	FirstName   string  `json:"first_name" binding:"required"`
	LastName    string  `json:"last_name" binding:"required"`
	Email       string  `json:"email" binding:"required"`
	Password    string  `json:"password" binding:"required"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Address     *string `json:"address,omitempty"`
}

// UpdateProfileRequest は部分更新。nil のフィールドは触らない。
type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Address     *string `json:"address,omitempty"`
	Password    *string `json:"password,omitempty"`
}

type MemberResponse struct {
	MemberID         int64     `json:"member_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            string    `json:"email"`
	PhoneNumber      *string   `json:"phone_number,omitempty"`
	Address          *string   `json:"address,omitempty"`
	Role             string    `json:"role"`
	MembershipStatus string    `json:"membership_status"`
	CreatedAt        time.Time `json:"created_at"`
}

func toResponse(m Member) MemberResponse {
	res := MemberResponse{
		MemberID:         m.MemberID,
		FirstName:        m.FirstName,
		LastName:         m.LastName,
		Email:            m.Email,
		Role:             string(m.Role),
		MembershipStatus: m.MembershipStatus,
		CreatedAt:        m.CreatedAt,
	}
	if m.PhoneNumber.Valid {
		res.PhoneNumber = &m.PhoneNumber.String
	}
	if m.Address.Valid {
		res.Address = &m.Address.String
	}
	return res
}

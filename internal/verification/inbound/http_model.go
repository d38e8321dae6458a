package inbound

import "time"

type RequestCodeRequest struct {
	SubjectID int64  `json:"subject_id,omitempty"`
	Email     string `json:"email"`
}

type RequestCodeResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}

func (RequestCodeResponse) Message() string {
	return "If the address is eligible, a verification code has been sent."
}

type VerifyCodeRequest struct {
	SubjectID int64  `json:"subject_id,omitempty"`
	Email     string `json:"email"`
	Code      string `json:"code"`
}

type VerifyCodeResponse struct {
	VerifiedAt time.Time `json:"verified_at"`
}

func (VerifyCodeResponse) Message() string {
	return "Email address verified."
}

package inbound

import (
	"github.com/0xmonas/cobbee/internal/audit"
	"github.com/0xmonas/cobbee/internal/pkg/jwt"
	"github.com/0xmonas/cobbee/internal/pkg/router"
	"github.com/0xmonas/cobbee/internal/verification/usecase"
)

// HTTPEndpoint exposes HTTP handlers for the verification workflow.
type HTTPEndpoint struct {
	uc uc
}

// RequestCode issues a fresh verification code for an email address.
func (h *HTTPEndpoint) RequestCode(r *router.Request) (any, error) {
	var req RequestCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	subjectID, actor := resolveSubject(r, req.SubjectID)

	resp, err := h.uc.Issue(r.Context(), usecase.IssueInput{
		SubjectID: subjectID,
		Email:     req.Email,
		Actor:     actor,
		IP:        r.ClientIP(),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		return nil, err
	}

	return RequestCodeResponse{ExpiresAt: resp.ExpiresAt}, nil
}

// VerifyCode checks a submitted code against the pending challenge.
func (h *HTTPEndpoint) VerifyCode(r *router.Request) (any, error) {
	var req VerifyCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	subjectID, actor := resolveSubject(r, req.SubjectID)

	resp, err := h.uc.Verify(r.Context(), usecase.VerifyInput{
		SubjectID: subjectID,
		Email:     req.Email,
		Code:      req.Code,
		Actor:     actor,
		IP:        r.ClientIP(),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		return nil, err
	}

	return VerifyCodeResponse{VerifiedAt: resp.VerifiedAt}, nil
}

// resolveSubject prefers the authenticated claims over the body: a bearer
// token pins both the subject ID and the actor classification, while a bare
// request relies on the body-provided subject and counts as anonymous.
func resolveSubject(r *router.Request, bodySubjectID int64) (int64, audit.ActorType) {
	if clm := jwt.GetAuth(r.Context()); clm != nil {
		return clm.SubjectID, audit.ActorUser
	}
	return bodySubjectID, audit.ActorAnonymous
}

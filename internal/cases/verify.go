package cases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"beacon/internal/crypto/password"
	"beacon/internal/notify"
	"beacon/internal/responders"
	"beacon/internal/timeline"
	"beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	"beacon/pkg/platform/sentinel"
)

// MintVerificationToken issues the QR token a responder presents on scene.
// Only the responder currently assigned to the case can carry its token.
func (s *Service) MintVerificationToken(ctx context.Context, caseID domain.CaseID, responderID domain.ResponderID) (string, time.Time, error) {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return "", time.Time{}, err
	}
	if c.AssignedResponderID == nil || *c.AssignedResponderID != responderID {
		return "", time.Time{}, dErrors.New(dErrors.CodeForbidden, "responder is not assigned to this case")
	}

	token, payload, err := s.protocol.Mint(responderID, caseID)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, time.Unix(payload.ExpiresAt, 0).UTC(), nil
}

// Verify checks a responder's identity on scene. Failures fail closed: no
// verification record is written, no event is emitted, and the caller gets
// a coded error. Successful checks are persisted with a timeline entry and
// a notification event.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (ResponderVerification, error) {
	ctx, span := s.tracer.Start(ctx, "cases.Verify")
	defer span.End()

	if !req.Method.IsValid() {
		return ResponderVerification{}, dErrors.New(dErrors.CodeInvalidInput, "invalid verification method")
	}

	c, err := s.getCase(ctx, req.CaseID)
	if err != nil {
		return ResponderVerification{}, err
	}

	responder, err := s.responders.FindByID(ctx, req.ResponderID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return ResponderVerification{}, dErrors.New(dErrors.CodeNotFound, "responder not found")
	}
	if err != nil {
		return ResponderVerification{}, dErrors.Wrap(err, dErrors.CodeInternal, "load responder")
	}

	switch req.Method {
	case MethodQR:
		if err := s.verifyQR(ctx, req, c); err != nil {
			caseVerifications.WithLabelValues(string(req.Method), "failed").Inc()
			return ResponderVerification{}, err
		}
	case MethodCode, MethodManual:
		if err := verifySharedCode(req.Code, responder); err != nil {
			caseVerifications.WithLabelValues(string(req.Method), "failed").Inc()
			return ResponderVerification{}, err
		}
	}

	record := ResponderVerification{
		CaseID:      c.ID,
		ResponderID: responder.ID,
		Method:      req.Method,
		RawCode:     req.Code,
		QRPayload:   req.QRToken,
		VerifierID:  req.VerifierID,
		Location:    req.Location,
		VerifiedAt:  s.now().UTC(),
	}

	err = s.transact(ctx, func(ctx context.Context) error {
		if err := s.verifications.Create(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "persist verification")
		}

		entry := timeline.Entry{
			CaseID:      c.ID,
			Actor:       domain.UserActor(req.VerifierID),
			Action:      timeline.ActionVerified,
			Description: "responder identity verified",
			NewValue:    responder.ID.String(),
			Metadata:    map[string]string{"method": string(req.Method)},
		}
		if err := s.timeline.Emit(ctx, entry); err != nil {
			return err
		}

		event := notify.NewEvent(notify.EventResponderVerified, c.ID, c.CaseUID)
		event.ResponderID = responder.ID.String()
		event.Method = string(req.Method)
		return s.dispatcher.Notify(ctx, event)
	})
	if err != nil {
		return ResponderVerification{}, err
	}

	caseVerifications.WithLabelValues(string(req.Method), "verified").Inc()
	span.SetAttributes(
		attribute.String("case.uid", c.CaseUID.String()),
		attribute.String("verification.method", string(req.Method)),
	)
	s.logger.InfoContext(ctx, "responder verified",
		slog.String("case_uid", c.CaseUID.String()),
		slog.String("responder_id", responder.ID.String()),
		slog.String("method", string(req.Method)),
	)
	return record, nil
}

// verifyQR validates the presented token and binds it to the case and
// responder at hand. A valid signature over the wrong case is still a
// rejection.
func (s *Service) verifyQR(ctx context.Context, req VerifyRequest, c Case) error {
	if req.QRToken == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "qr token cannot be empty")
	}
	payload, err := s.protocol.Verify(ctx, req.QRToken)
	if err != nil {
		return err
	}
	if payload.CaseID != c.ID.String() {
		return dErrors.New(dErrors.CodeCryptoFailure, "token was issued for a different case")
	}
	if payload.ResponderID != req.ResponderID.String() {
		return dErrors.New(dErrors.CodeCryptoFailure, "token was issued for a different responder")
	}
	return nil
}

// verifySharedCode checks the out-of-band code against the responder's
// stored PBKDF2 hash. A responder without a provisioned code cannot be
// verified by code at all.
func verifySharedCode(code string, r responders.Responder) error {
	if code == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "verification code cannot be empty")
	}
	if r.SharedCode == nil {
		return dErrors.New(dErrors.CodeUnauthorized, "responder has no verification code provisioned")
	}
	if err := password.Verify(code, *r.SharedCode); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "verification code rejected")
	}
	return nil
}

package verification

import (
	"github.com/rs/zerolog"

	"github.com/hearthshare/hearth-api/internal/notification"
)

// Reason is a stable machine-readable code for an expected verification outcome.
type Reason string

const (
	ReasonRateLimited  Reason = "rate_limited"
	ReasonCodeNotFound Reason = "code_not_found"
	ReasonCodeMismatch Reason = "code_mismatch"
)

// Result reports the outcome of a business-fallible verification operation.
type Result struct {
	OK     bool
	Reason Reason
}

func ok() Result           { return Result{OK: true} }
func fail(r Reason) Result { return Result{Reason: r} }

// Service drives the issue/verify flow for one-time codes: generation,
// throttling, storage, and delivery triggering. Message composition and
// transport stay inside the mailer.
type Service struct {
	codes  *CodeStore
	mailer notification.CodeMailer
	logger zerolog.Logger
}

func NewService(codes *CodeStore, mailer notification.CodeMailer, logger zerolog.Logger) *Service {
	return &Service{
		codes:  codes,
		mailer: mailer,
		logger: logger.With().Str("component", "verification").Logger(),
	}
}

// IssueCode generates and stores a fresh code for identity and triggers its
// delivery. A prior live code is overwritten. Issuing is refused while the
// resend cool-down marker is live.
func (s *Service) IssueCode(identity string) (Result, error) {
	if !s.codes.CanResend(identity) {
		return fail(ReasonRateLimited), nil
	}

	code, err := GenerateCode()
	if err != nil {
		return Result{}, err
	}

	s.codes.StoreCode(identity, code)
	s.codes.MarkSent(identity)

	if s.mailer != nil {
		if err := s.mailer.SendVerificationCode(identity, code); err != nil {
			s.logger.Error().Err(err).Str("identity", identity).Msg("failed to send verification code")
			return Result{}, err
		}
	}

	s.logger.Info().Str("identity", identity).Msg("verification code issued")
	return ok(), nil
}

// VerifyCode checks the submitted code for identity and consumes it on match.
// A mismatch leaves the stored code usable; a match removes it so that of two
// concurrent verifications exactly one succeeds.
func (s *Service) VerifyCode(identity, submitted string) Result {
	stored, present := s.codes.FetchCode(identity)
	if !present {
		return fail(ReasonCodeNotFound)
	}
	if !CodesEqual(submitted, stored) {
		return fail(ReasonCodeMismatch)
	}

	consumed, present := s.codes.ConsumeCode(identity)
	if !present || !CodesEqual(submitted, consumed) {
		// Lost the consume race, or the code was replaced between fetch
		// and consume.
		return fail(ReasonCodeNotFound)
	}
	return ok()
}

// CanResend reports whether a new code may be issued for identity right now.
func (s *Service) CanResend(identity string) bool {
	return s.codes.CanResend(identity)
}

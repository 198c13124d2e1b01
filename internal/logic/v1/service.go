package v1

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/user-auth/internal/core/domain"
	"github.com/duynhne/user-auth/internal/core/mail"
	"github.com/duynhne/user-auth/internal/logger"
	"github.com/duynhne/user-auth/middleware"
)

// Options tunes the password reset flow.
type Options struct {
	// ResetTokenTTL is the absolute lifetime of a reset token.
	ResetTokenTTL time.Duration
	// FrontendURL is the base of the link embedded in reset emails.
	FrontendURL string
	// MailTimeout bounds one reset email delivery.
	MailTimeout time.Duration
}

// DefaultOptions returns a 3-day token lifetime and a local frontend.
func DefaultOptions() Options {
	return Options{
		ResetTokenTTL: 72 * time.Hour,
		FrontendURL:   "http://localhost:3000",
		MailTimeout:   10 * time.Second,
	}
}

// AuthService implements authentication business rules.
// It depends on repository interfaces (injected via constructor) and
// MUST NOT access the database or Redis directly.
type AuthService struct {
	users  domain.UserRepository
	tokens domain.TokenRepository
	mailer domain.Mailer
	hasher PasswordHasher
	opts   Options

	// mailMu orders sendAsync's Add against Close's Wait.
	mailMu     sync.Mutex
	mail       sync.WaitGroup
	mailClosed bool
}

// NewAuthService creates a new AuthService with the given dependencies.
// A non-positive ResetTokenTTL falls back to the default lifetime.
func NewAuthService(
	users domain.UserRepository,
	tokens domain.TokenRepository,
	mailer domain.Mailer,
	hasher PasswordHasher,
	opts Options,
) *AuthService {
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = DefaultOptions().ResetTokenTTL
	}
	return &AuthService{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		hasher: hasher,
		opts:   opts,
	}
}

// Me returns the user the session is logged in as, or nil.
func (s *AuthService) Me(ctx context.Context, sess domain.Session) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.me", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	userID, ok := sess.UserID()
	if !ok {
		span.SetAttributes(attribute.Bool("session.authenticated", false))
		return nil, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user %d: %w", userID, err)
	}

	span.SetAttributes(
		attribute.Int("user.id", userID),
		attribute.Bool("session.authenticated", user != nil),
	)
	return user, nil
}

// Register creates an account and logs the session in as it.
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest, sess domain.Session) (*domain.UserResponse, error) {
	const op = "register"
	ctx, span := middleware.StartSpan(ctx, "auth."+op, trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if err := ValidateRegister(&req); err != nil {
		return nil, invalid(span, op, err)
	}
	span.SetAttributes(attribute.String("email", req.Email))

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, failed(span, op, fmt.Errorf("hash password: %w", err))
	}

	user, err := s.users.Insert(ctx, req.Email, req.Name, passwordHash)
	if errors.Is(err, domain.ErrDuplicateEmail) {
		outcome(span, op, middleware.ResultRejected)
		return domain.Failed(FieldEmail, MsgEmailExists), nil
	}
	if err != nil {
		return nil, failed(span, op, fmt.Errorf("insert user: %w", err))
	}

	if err := sess.SetUserID(ctx, user.ID); err != nil {
		return nil, failed(span, op, fmt.Errorf("start session for user %d: %w", user.ID, err))
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))
	span.AddEvent("user.registered")
	outcome(span, op, middleware.ResultSuccess)
	return domain.Succeeded(user), nil
}

// Login verifies credentials and logs the session in.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest, sess domain.Session) (*domain.UserResponse, error) {
	const op = "login"
	ctx, span := middleware.StartSpan(ctx, "auth."+op, trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if err := ValidateLogin(&req); err != nil {
		return nil, invalid(span, op, err)
	}
	span.SetAttributes(attribute.String("email", req.Email))

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, failed(span, op, fmt.Errorf("query user %q: %w", req.Email, err))
	}
	if user == nil {
		span.AddEvent("authentication.failed")
		outcome(span, op, middleware.ResultRejected)
		return domain.Failed(FieldEmail, MsgEmailNotFound), nil
	}

	valid, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, failed(span, op, fmt.Errorf("verify password for user %d: %w", user.ID, err))
	}
	if !valid {
		span.AddEvent("authentication.failed")
		outcome(span, op, middleware.ResultRejected)
		return domain.Failed(FieldPassword, MsgIncorrectPassword), nil
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, req.Password)
	}

	if err := sess.SetUserID(ctx, user.ID); err != nil {
		return nil, failed(span, op, fmt.Errorf("start session for user %d: %w", user.ID, err))
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))
	span.AddEvent("user.authenticated")
	outcome(span, op, middleware.ResultSuccess)
	return domain.Succeeded(user), nil
}

// upgradeHash rehashes a legacy hash. Failure leaves the old hash in place.
func (s *AuthService) upgradeHash(ctx context.Context, user *domain.User, password string) {
	log := logger.FromContext(ctx)

	upgraded, err := s.hasher.Hash(password)
	if err != nil {
		log.Warn().Err(err).Int("user_id", user.ID).Msg("Password rehash failed")
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, upgraded); err != nil {
		log.Warn().Err(err).Int("user_id", user.ID).Msg("Password rehash not persisted")
		return
	}
	user.PasswordHash = upgraded
}

// Logout destroys the session. It reports false if the store failed.
func (s *AuthService) Logout(ctx context.Context, sess domain.Session) bool {
	const op = "logout"
	ctx, span := middleware.StartSpan(ctx, "auth."+op, trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if err := sess.Destroy(ctx); err != nil {
		logger.FromContext(ctx).Debug().Err(err).Msg("Session destroy failed")
		span.RecordError(err)
		outcome(span, op, middleware.ResultError)
		return false
	}

	outcome(span, op, middleware.ResultSuccess)
	return true
}

// ForgotPassword issues a reset token and emails it. It returns true whether
// or not the email belongs to an account.
func (s *AuthService) ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) (bool, error) {
	const op = "forgot_password"
	ctx, span := middleware.StartSpan(ctx, "auth."+op, trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if err := ValidateForgotPassword(&req); err != nil {
		return false, invalid(span, op, err)
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return false, failed(span, op, fmt.Errorf("query user %q: %w", req.Email, err))
	}
	if user == nil {
		logger.FromContext(ctx).Debug().Msg("email doesn't exist")
		outcome(span, op, middleware.ResultRejected)
		return true, nil
	}

	token := uuid.NewString()
	if err := s.tokens.Put(ctx, token, strconv.Itoa(user.ID), s.opts.ResetTokenTTL); err != nil {
		return false, failed(span, op, fmt.Errorf("store reset token: %w", err))
	}

	html, err := mail.ResetPasswordEmail(s.opts.FrontendURL, token)
	if err != nil {
		return false, failed(span, op, err)
	}

	s.sendAsync(ctx, user.Email, mail.ResetPasswordSubject, html)

	span.SetAttributes(attribute.Int("user.id", user.ID))
	outcome(span, op, middleware.ResultSuccess)
	return true, nil
}

// sendAsync delivers mail in the background. Delivery failures are logged only.
func (s *AuthService) sendAsync(ctx context.Context, to, subject, html string) {
	log := logger.FromContext(ctx).With().Str("to", to).Logger()
	ctx = context.WithoutCancel(ctx)

	s.mailMu.Lock()
	defer s.mailMu.Unlock()
	if s.mailClosed {
		log.Warn().Msg("Reset email dropped, service is shutting down")
		return
	}

	s.mail.Add(1)
	go func() {
		defer s.mail.Done()

		sendCtx := ctx
		if s.opts.MailTimeout > 0 {
			var cancel context.CancelFunc
			sendCtx, cancel = context.WithTimeout(ctx, s.opts.MailTimeout)
			defer cancel()
		}

		if err := s.mailer.Send(sendCtx, to, subject, html); err != nil {
			log.Error().Err(err).Msg("Reset email not sent")
			return
		}
		log.Debug().Msg("Reset email sent")
	}()
}

// Wait blocks until in-flight emails finish. It must not race with
// ForgotPassword; use Close when requests may still be running.
func (s *AuthService) Wait() {
	s.mail.Wait()
}

// Close stops accepting reset emails and waits for queued ones to finish.
func (s *AuthService) Close() {
	s.mailMu.Lock()
	s.mailClosed = true
	s.mailMu.Unlock()

	s.mail.Wait()
}

// ChangePassword consumes a reset token, sets a new password and logs the
// session in as the token's user.
func (s *AuthService) ChangePassword(ctx context.Context, req domain.ChangePasswordRequest, sess domain.Session) (*domain.UserResponse, error) {
	const op = "change_password"
	ctx, span := middleware.StartSpan(ctx, "auth."+op, trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if err := ValidateChangePassword(&req); err != nil {
		return nil, invalid(span, op, err)
	}

	value, remaining, ok, err := s.tokens.Take(ctx, req.Token)
	if err != nil {
		return nil, failed(span, op, fmt.Errorf("take reset token: %w", err))
	}
	userID, convErr := strconv.Atoi(value)
	if !ok || convErr != nil {
		outcome(span, op, middleware.ResultRejected)
		return domain.Failed(FieldToken, MsgTokenExpired), nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.restoreToken(ctx, req.Token, value, remaining)
		return nil, failed(span, op, fmt.Errorf("query user %d: %w", userID, err))
	}
	if user == nil {
		outcome(span, op, middleware.ResultRejected)
		return domain.Failed(FieldToken, MsgUserGone), nil
	}

	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		s.restoreToken(ctx, req.Token, value, remaining)
		return nil, failed(span, op, fmt.Errorf("hash password: %w", err))
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		s.restoreToken(ctx, req.Token, value, remaining)
		return nil, failed(span, op, fmt.Errorf("update password for user %d: %w", user.ID, err))
	}
	user.PasswordHash = passwordHash

	if err := sess.SetUserID(ctx, user.ID); err != nil {
		return nil, failed(span, op, fmt.Errorf("start session for user %d: %w", user.ID, err))
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))
	span.AddEvent("password.changed")
	outcome(span, op, middleware.ResultSuccess)
	return domain.Succeeded(user), nil
}

// restoreToken puts back a token taken by a change that did not happen.
func (s *AuthService) restoreToken(ctx context.Context, token, value string, remaining time.Duration) {
	if remaining <= 0 {
		return
	}
	if err := s.tokens.Put(ctx, token, value, remaining); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("Reset token not restored")
	}
}

func outcome(span trace.Span, op, result string) {
	span.SetAttributes(attribute.String("auth.result", result))
	middleware.RecordAuthOperation(op, result)
}

func invalid(span trace.Span, op string, err error) error {
	span.SetAttributes(attribute.Bool("request.valid", false))
	outcome(span, op, middleware.ResultInvalid)
	return err
}

func failed(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	outcome(span, op, middleware.ResultError)
	return err
}

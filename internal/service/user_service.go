package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"chitchat/internal/cache"
	"chitchat/internal/mailer"
	"chitchat/internal/models"
	"chitchat/internal/observability"
	"chitchat/internal/repository"
	"chitchat/internal/storage"
	"chitchat/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

const (
	bcryptCost    = 10
	otpValidity   = 10 * time.Minute
	defaultAvatar = "https://cdn-icons-png.flaticon.com/512/149/149071.png"
)

// UserService implements account lifecycle and profile operations.
type UserService struct {
	users     repository.UserRepository
	posts     repository.PostRepository
	media     storage.MediaStore
	mail      mailer.Mailer
	jwtSecret string
}

// NewUserService creates a new UserService.
func NewUserService(
	users repository.UserRepository,
	posts repository.PostRepository,
	media storage.MediaStore,
	mail mailer.Mailer,
	jwtSecret string,
) *UserService {
	return &UserService{users: users, posts: posts, media: media, mail: mail, jwtSecret: jwtSecret}
}

// SignupInput carries the signup request fields.
type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// SignupResult is returned on successful account creation.
type SignupResult struct {
	User   models.UserSummary
	Tokens TokenPair
}

// Signup validates the input, creates the account with a hashed password and
// OTP, issues tokens, and fires the verification email without blocking.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Password == "" {
		return nil, models.NewValidationError("All inputs are required")
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateName(in.FirstName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateName(in.LastName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if existing, err := s.users.FindByEmail(ctx, in.Email); err == nil && existing != nil {
		return nil, models.NewConflictError("User already exists")
	} else if err != nil && err != repository.ErrNotFound {
		return nil, models.NewInternalError(err)
	}

	otp, err := GenerateNumericOTP()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	pwdHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	otpHash, err := bcrypt.GenerateFromPassword([]byte(otp), bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	now := time.Now()
	user := &models.User{
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Password:     string(pwdHash),
		OTP:          string(otpHash),
		OTPExpire:    now.Add(otpValidity),
		ProfileImage: defaultAvatar,
		CreatedAt:    now,
	}

	id, err := s.users.Insert(ctx, user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user.ID = id

	tokens, err := GenerateTokens(user.Email, s.jwtSecret)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	// Email delivery never blocks or fails signup.
	go func() {
		subject, body := mailer.OTPMessage(user.FirstName, otp)
		if err := s.mail.Send(user.Email, subject, body); err != nil {
			observability.GlobalLogger.Error("otp email failed",
				slog.String("email", user.Email), slog.String("error", err.Error()))
		}
	}()

	return &SignupResult{User: user.Summary(), Tokens: *tokens}, nil
}

// Login verifies credentials and issues a fresh token pair.
func (s *UserService) Login(ctx context.Context, email, password string) (*SignupResult, error) {
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err == repository.ErrNotFound {
		return nil, models.NewValidationError("user not found")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewValidationError("password is not correct try again")
	}

	tokens, err := GenerateTokens(user.Email, s.jwtSecret)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	return &SignupResult{User: user.Summary(), Tokens: *tokens}, nil
}

// VerifyOTP checks the submitted code against the stored hash and its expiry,
// then marks the account verified.
func (s *UserService) VerifyOTP(ctx context.Context, email, otp string) error {
	if email == "" || otp == "" {
		return models.NewValidationError("Email and OTP are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err == repository.ErrNotFound {
		return models.NewValidationError("User not found. Please sign up or log in.")
	}
	if err != nil {
		return models.NewInternalError(err)
	}

	if user.OTP == "" {
		return models.NewValidationError("No pending verification for this account")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.OTP), []byte(otp)); err != nil {
		return models.NewValidationError("OTP does not match. Please try again.")
	}
	if time.Now().After(user.OTPExpire) {
		return models.NewValidationError("OTP has expired. Please request a new one.")
	}

	if err := s.users.MarkVerified(ctx, email); err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, email)
	return nil
}

// ResendOTP regenerates the verification code and emails it again.
func (s *UserService) ResendOTP(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err == repository.ErrNotFound {
		return models.NewNotFoundError("User not found")
	}
	if err != nil {
		return models.NewInternalError(err)
	}
	if user.IsVerified {
		return models.NewConflictError("Account is already verified")
	}

	otp, err := GenerateNumericOTP()
	if err != nil {
		return models.NewInternalError(err)
	}
	otpHash, err := bcrypt.GenerateFromPassword([]byte(otp), bcryptCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.users.SetOTP(ctx, email, string(otpHash), time.Now().Add(otpValidity)); err != nil {
		return models.NewInternalError(err)
	}

	go func() {
		subject, body := mailer.OTPMessage(user.FirstName, otp)
		if err := s.mail.Send(email, subject, body); err != nil {
			observability.GlobalLogger.Error("otp email failed",
				slog.String("email", email), slog.String("error", err.Error()))
		}
	}()

	return nil
}

// GetProfile returns the full user document, cache-aside with the user TTL.
func (s *UserService) GetProfile(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := cache.CacheAside(ctx, cache.UserKey(email), &user, cache.UserTTL, func() error {
		u, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		user = *u
		return nil
	})
	if err == repository.ErrNotFound {
		return nil, models.NewNotFoundError("User not found")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user.Password = ""
	user.OTP = ""
	return &user, nil
}

// PublicProfile is the profile variant served to other users: notifications
// and pending requests stay private.
func (s *UserService) PublicProfile(ctx context.Context, email string) (*models.User, error) {
	user, err := s.GetProfile(ctx, email)
	if err != nil {
		return nil, err
	}
	user.Notifications = nil
	user.FriendRequests = nil
	return user, nil
}

// SetProfileImage uploads the data-URL payload and propagates the new URL to
// the user document, every embedded post, and the flat posts collection.
func (s *UserService) SetProfileImage(ctx context.Context, email, dataURL string) (string, error) {
	if dataURL == "" {
		return "", models.NewValidationError("media is required")
	}

	url, _, err := s.media.UploadDataURL(ctx, dataURL)
	if err != nil {
		return "", models.NewValidationError(err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.users.SetProfileImage(gctx, email, url); err != nil {
			observability.RecordDualWriteFailure("profile_image", "users")
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := s.posts.UpdateProfileImageByOwner(gctx, email, url); err != nil {
			observability.RecordDualWriteFailure("profile_image", "posts")
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		observability.GlobalLogger.Error("profile image partial write",
			slog.String("email", email), slog.String("error", err.Error()))
		return "", models.NewInternalError(err)
	}

	cache.InvalidateUser(ctx, email)
	cache.InvalidatePostLists(ctx, email)
	return url, nil
}

// SetCoverImage uploads the data-URL payload and stores the cover URL.
func (s *UserService) SetCoverImage(ctx context.Context, email, dataURL string) (string, error) {
	if dataURL == "" {
		return "", models.NewValidationError("media is required")
	}

	url, _, err := s.media.UploadDataURL(ctx, dataURL)
	if err != nil {
		return "", models.NewValidationError(err.Error())
	}
	return url, s.storeCoverURL(ctx, email, url)
}

// SetCoverImageFile uploads a multipart file stream and stores the cover URL.
func (s *UserService) SetCoverImageFile(ctx context.Context, email, contentType string, r io.Reader, size int64) (string, error) {
	ext, err := validation.ValidateMediaType(contentType)
	if err != nil {
		return "", models.NewValidationError(err.Error())
	}

	key := uuid.NewString() + ext
	url, err := s.media.Upload(ctx, key, r, size, contentType)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return url, s.storeCoverURL(ctx, email, url)
}

func (s *UserService) storeCoverURL(ctx context.Context, email, url string) error {
	if err := s.users.SetCoverImage(ctx, email, url); err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, email)
	return nil
}

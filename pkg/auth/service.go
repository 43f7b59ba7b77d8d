package auth

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/database"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost  = 12
	TokenExpiry = 7 * 24 * time.Hour

	tokenIssuer = "shelfwatch"
	clockSkew   = 30 * time.Second
)

// dummyHash is compared against when a login names an unknown user, so both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), BcryptCost)

// Claims carry the user ID in the standard subject claim.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (int, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("token subject %q is not a user id", c.Subject)
	}
	return id, nil
}

type Service struct {
	db        *bun.DB
	jwtSecret []byte
	now       func() time.Time
}

func NewService(db *bun.DB, jwtSecret string) *Service {
	return &Service{
		db:        db,
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

func (s *Service) CountUsers(ctx context.Context) (int, error) {
	count, err := s.db.NewSelect().Model((*models.User)(nil)).Count(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return count, nil
}

// Authenticate checks a username (case-insensitive) and password. Unknown
// users and wrong passwords give the same error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("u.username = ? COLLATE NOCASE", strings.TrimSpace(username)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, errcodes.InvalidCredentials()
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, errcodes.InvalidCredentials()
	}
	return user, nil
}

func (s *Service) GenerateToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.Itoa(user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return signed, nil
}

// ValidateToken accepts only HS256 tokens issued by this server that have
// not expired.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Service) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("User")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// CreateFirstAdmin is the setup step. It only works while the users table
// is empty.
func (s *Service) CreateFirstAdmin(ctx context.Context, username, password string) (*models.User, error) {
	count, err := s.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errcodes.Forbidden("Running setup again")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		IsAdmin:      true,
	}
	_, err = s.db.NewInsert().Model(user).Returning("*").Exec(ctx)
	if database.IsUniqueViolation(err) {
		return nil, errcodes.Conflict("Username is already taken.")
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return user, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(hash), nil
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

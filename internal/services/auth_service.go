package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"festival-system/internal/apperror"
	"festival-system/internal/config"
	"festival-system/internal/database"
	"festival-system/internal/logger"
	"festival-system/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// AuthClaims — полезная нагрузка bearer-токена.
type AuthClaims struct {
	AccountID uuid.UUID
	IsAdmin   bool
}

// AuthService управляет аккаунтами: регистрация, вход, инвайт-коды, JWT.
type AuthService struct {
	db       *database.DB
	log      *logger.Logger
	secret   []byte
	tokenTTL time.Duration
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(db *database.DB, log *logger.Logger, cfg *config.AuthConfig) *AuthService {
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &AuthService{
		db:       db,
		log:      log,
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: ttl,
	}
}

// Signup регистрирует аккаунт. Инвайт-код не обязателен при регистрации:
// без него аккаунт существует, но не допускается к покупкам, пока код
// не будет применён. Если код передан, он занимается в той же транзакции.
func (s *AuthService) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.EmailAddress))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.Validation("a valid email address is required", nil)
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperror.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength), nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	account := &models.Account{
		AccountID:    uuid.New(),
		EmailAddress: email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO account (account_id, email_address, password_hash, is_seed_account, account_notes, created_at)
		VALUES ($1, $2, $3, false, '', $4)
	`, account.AccountID, account.EmailAddress, account.PasswordHash, account.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, apperror.Conflict("an account with this email already exists", err)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if code := strings.TrimSpace(req.InviteCode); code != "" {
		if err := claimInviteCode(ctx, tx, code, account.AccountID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit signup: %w", err)
	}

	s.log.WithField("account_id", account.AccountID).Info("Account registered")

	token, err := s.issueToken(account.AccountID, account.IsSeedAccount)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Jwt: token}, nil
}

// Login проверяет пароль и выдаёт JWT.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.EmailAddress))

	var accountID uuid.UUID
	var passwordHash string
	var isSeed bool
	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, password_hash, is_seed_account
		FROM account
		WHERE email_address = $1
	`, email).Scan(&accountID, &passwordHash, &isSeed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.Unauthorized("invalid email or password", err)
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		return nil, apperror.Unauthorized("invalid email or password", err)
	}

	token, err := s.issueToken(accountID, isSeed)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Jwt: token}, nil
}

// SubmitInviteCode применяет инвайт-код к существующему аккаунту.
func (s *AuthService) SubmitInviteCode(ctx context.Context, accountID uuid.UUID, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return apperror.Validation("invite code is required", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := claimInviteCode(ctx, tx, code, accountID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit invite code claim: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"account_id": accountID,
		"code":       code,
	}).Info("Invite code claimed")

	return nil
}

// claimInviteCode занимает код под блокировкой строки: код одноразовый,
// конкурентные попытки сериализуются через FOR UPDATE.
func claimInviteCode(ctx context.Context, tx *sql.Tx, code string, accountID uuid.UUID) error {
	var usedBy *uuid.UUID
	err := tx.QueryRowContext(ctx, `
		SELECT used_by_account_id
		FROM invite_code
		WHERE code = $1
		FOR UPDATE
	`, code).Scan(&usedBy)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound("invite code not found", err)
		}
		return fmt.Errorf("failed to fetch invite code: %w", err)
	}

	if usedBy != nil {
		return apperror.Conflict("invite code has already been used", nil)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE invite_code SET used_by_account_id = $1 WHERE code = $2
	`, accountID, code); err != nil {
		return fmt.Errorf("failed to claim invite code: %w", err)
	}

	return nil
}

// AccountInfo собирает данные личного кабинета: реферальный статус,
// выданные аккаунту инвайт-коды и купленные единицы.
func (s *AuthService) AccountInfo(ctx context.Context, accountID uuid.UUID) (*models.AccountInfo, error) {
	info := &models.AccountInfo{AccountID: accountID}

	err := s.db.QueryRowContext(ctx, `
		SELECT a.email_address,
		       (a.is_seed_account OR COALESCE(a.is_application_accepted, false) OR EXISTS (
		           SELECT 1 FROM invite_code ic WHERE ic.used_by_account_id = a.account_id
		       ))
		FROM account a
		WHERE a.account_id = $1
	`, accountID).Scan(&info.EmailAddress, &info.AllowedToPurchase)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account not found", err)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	codeRows, err := s.db.QueryContext(ctx, `
		SELECT code, festival_id, created_by_account_id, used_by_account_id
		FROM invite_code
		WHERE created_by_account_id = $1
		ORDER BY code
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invite codes: %w", err)
	}
	defer codeRows.Close()
	for codeRows.Next() {
		var ic models.InviteCode
		if err := codeRows.Scan(&ic.Code, &ic.FestivalID, &ic.CreatedByAccountID, &ic.UsedByAccountID); err != nil {
			return nil, fmt.Errorf("failed to scan invite code: %w", err)
		}
		info.InviteCodes = append(info.InviteCodes, ic)
	}
	if err := codeRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invite codes: %w", err)
	}

	purchaseRows, err := s.db.QueryContext(ctx, `
		SELECT purchase_id, purchase_type_id, owned_by_account_id, stripe_payment_intent, purchased_on
		FROM purchase
		WHERE owned_by_account_id = $1
		ORDER BY purchased_on DESC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load purchases: %w", err)
	}
	defer purchaseRows.Close()
	for purchaseRows.Next() {
		var p models.Purchase
		if err := purchaseRows.Scan(&p.PurchaseID, &p.PurchaseTypeID, &p.OwnedByAccountID, &p.StripePaymentIntent, &p.PurchasedOn); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		info.Purchases = append(info.Purchases, p)
	}
	if err := purchaseRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchases: %w", err)
	}

	return info, nil
}

// ParseToken проверяет bearer-токен и возвращает клеймы.
func (s *AuthService) ParseToken(tokenString string) (*AuthClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, apperror.Unauthorized("invalid token", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperror.Unauthorized("invalid token claims", nil)
	}

	sub, _ := claims["sub"].(string)
	accountID, err := uuid.Parse(sub)
	if err != nil {
		return nil, apperror.Unauthorized("invalid token subject", err)
	}

	isAdmin, _ := claims["adm"].(bool)

	return &AuthClaims{AccountID: accountID, IsAdmin: isAdmin}, nil
}

func (s *AuthService) issueToken(accountID uuid.UUID, isAdmin bool) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": accountID.String(),
		"adm": isAdmin,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

package service

import (
	"context"
	"strings"
	"time"

	"restopos/internal/config"
	"restopos/internal/dto"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for vendedor password hashes.
const BcryptCost = 12

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	CrearVendedor(ctx context.Context, v *model.Vendedor, password string) error
}

type authService struct {
	repo repository.VendedorRepository
	cfg  *config.Config
}

func NewAuthService(repo repository.VendedorRepository, cfg *config.Config) AuthService {
	return &authService{repo: repo, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	v, err := s.repo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, newError(ErrCredenciales, "credenciales invalidas")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(v.PasswordHash), []byte(req.Password)); err != nil {
		return nil, newError(ErrCredenciales, "credenciales invalidas")
	}

	token, err := s.generateToken(v, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   s.cfg.JWTExpirationHours * 3600,
		Vendedor:    vendedorToResponse(v),
	}, nil
}

// CrearVendedor hashes password and inserts v. Used by posctl seed.
func (s *authService) CrearVendedor(ctx context.Context, v *model.Vendedor, password string) error {
	if len(password) < 4 {
		return invalido("la contraseña debe tener al menos 4 caracteres")
	}
	switch v.Rol {
	case model.RolAdmin, model.RolCajero, model.RolMesero:
	default:
		return invalido("rol inválido: %s", v.Rol)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return err
	}
	v.PasswordHash = string(hash)
	v.Activo = true
	return duplicadoOr(s.repo.Create(ctx, v), "el usuario ya existe")
}

func (s *authService) generateToken(v *model.Vendedor, duration time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"vendedor_id":    v.ID.String(),
		"username":       v.Username,
		"restaurante_id": v.RestauranteID.String(),
		"rol":            v.Rol,
		"exp":            now.Add(duration).Unix(),
		"iat":            now.Unix(),
	}
	if v.SucursalID != nil {
		claims["sucursal_id"] = v.SucursalID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func vendedorToResponse(v *model.Vendedor) dto.VendedorResponse {
	return dto.VendedorResponse{
		ID:            v.ID.String(),
		Username:      v.Username,
		Nombre:        v.Nombre,
		Rol:           v.Rol,
		RestauranteID: v.RestauranteID.String(),
		SucursalID:    uuidString(v.SucursalID),
	}
}

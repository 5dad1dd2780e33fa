package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"showroom/server/internal/models"
)

// AuthController управляет авторизацией сотрудников салона
type AuthController struct {
	db        *gorm.DB
	jwtSecret []byte
}

// NewAuthController создает новый контроллер авторизации
func NewAuthController(db *gorm.DB, jwtSecret string) *AuthController {
	return &AuthController{
		db:        db,
		jwtSecret: []byte(jwtSecret),
	}
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse представляет ответ на вход
type LoginResponse struct {
	Token     string          `json:"token"`
	UserID    string          `json:"user_id"`
	Username  string          `json:"username"`
	FullName  string          `json:"full_name"`
	Role      models.UserRole `json:"role"`
	ExpiresAt int64           `json:"expires_at"`
}

type authClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Login обрабатывает вход сотрудника
// POST /api/v1/auth/login
func (ac *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}

	var user models.User
	if err := ac.db.Where("username = ? AND is_active = ?", req.Username, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusUnauthorized, gin.H{
				"error": "Неверный логин или пароль",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error": "Ошибка проверки учетных данных",
		})
		return
	}

	if !user.CheckPassword(req.Password) {
		ctx.JSON(http.StatusUnauthorized, gin.H{
			"error": "Неверный логин или пароль",
		})
		return
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	claims := authClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ac.jwtSecret)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error": "Ошибка создания токена",
		})
		return
	}

	ctx.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		FullName:  user.FullName,
		Role:      user.Role,
		ExpiresAt: expiresAt.Unix(),
	})
}

// RegisterRequest представляет запрос на создание сотрудника
type RegisterRequest struct {
	Username string          `json:"username" binding:"required"`
	Password string          `json:"password" binding:"required,min=8"`
	FullName string          `json:"full_name"`
	Role     models.UserRole `json:"role"`
}

// Register создает нового сотрудника (только администратор)
// POST /api/v1/auth/register
func (ac *AuthController) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}

	user := models.User{
		Username: req.Username,
		FullName: req.FullName,
		Role:     req.Role,
	}
	if err := user.SetPassword(req.Password); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error": "Ошибка хеширования пароля",
		})
		return
	}

	if err := ac.db.Create(&user).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			ctx.JSON(http.StatusConflict, gin.H{
				"error": "Сотрудник с таким логином уже существует",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error": "Ошибка создания сотрудника",
		})
		return
	}

	ctx.JSON(http.StatusCreated, user)
}

// Me возвращает текущего сотрудника по токену
// GET /api/v1/auth/me
func (ac *AuthController) Me(ctx *gin.Context) {
	userID := ctx.GetString("user_id")

	var user models.User
	if err := ac.db.First(&user, "id = ?", userID).Error; err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{
			"error": "Сотрудник не найден",
		})
		return
	}

	ctx.JSON(http.StatusOK, user)
}

// RequireAuth проверяет JWT токен и кладет данные сотрудника в контекст
func (ac *AuthController) RequireAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Требуется авторизация",
			})
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &authClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return ac.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Недействительный токен",
			})
			return
		}

		ctx.Set("user_id", claims.UserID)
		ctx.Set("username", claims.Username)
		ctx.Set("role", claims.Role)
		ctx.Next()
	}
}

// RequireAdmin пропускает только администраторов. Используется после RequireAuth.
func (ac *AuthController) RequireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetString("role") != string(models.UserRoleAdmin) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Требуются права администратора",
			})
			return
		}
		ctx.Next()
	}
}

package entity

// LoginRequest - запрос на вход
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=255,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// RegisterRequest - запрос на регистрацию
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,max=255,email"`
	Password        string `json:"password" validate:"required,min=8,max=128,password_complexity"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Name            string `json:"name,omitempty" validate:"omitempty,max=100"`
	Role            Role   `json:"role,omitempty" validate:"omitempty,role"`
}

// ChangePasswordRequest - запрос на смену пароля
type ChangePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required,min=8,max=128,password_complexity"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required,eqfield=NewPassword"`
}

// UpdateUserRoleRequest - запрос на смену роли пользователя
type UpdateUserRoleRequest struct {
	UserID string `json:"userId" validate:"required"`
	Role   Role   `json:"role" validate:"required,role"`
}

// RefreshRequest - запрос на обновление токенов
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse - ответ на обновление токенов
type RefreshResponse struct {
	Tokens TokenPair `json:"tokens"`
}

// UserResponse - ответ с данными пользователя
type UserResponse struct {
	User PublicUser `json:"user"`
}

// UsersResponse - список пользователей
type UsersResponse struct {
	Users []PublicUser `json:"users"`
}

// PermissionsResponse - разрешения роли текущего пользователя
type PermissionsResponse struct {
	Role        Role         `json:"role"`
	Permissions []Permission `json:"permissions"`
}

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// SuccessResponse - стандартный ответ об успехе
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

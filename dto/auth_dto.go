package dto

type FullNameDTO struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
}

type RegisterDTO struct {
	Email    string      `json:"email" binding:"required,email"`
	Username string      `json:"username" binding:"required,min=3"`
	FullName FullNameDTO `json:"fullName" binding:"required"`
	Password string      `json:"password" binding:"required,min=6"`
}

type LoginDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordDTO struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordDTO struct {
	Password        string `json:"password" binding:"required,min=6"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

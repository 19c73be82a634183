package catalog

import "boatcatalog/internal/backend"

type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,max=50"`
	Model   string `json:"model" validate:"omitempty,max=100"`
	Message string `json:"message" validate:"required,max=5000"`
}

func (r ContactRequest) toForm() backend.ContactForm {
	return backend.ContactForm{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Model:   r.Model,
		Message: r.Message,
	}
}

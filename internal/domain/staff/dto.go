package staff

type LoginRequest struct {
	Code       string `json:"code" validate:"required,max=32"`
	Pin        string `json:"pin" validate:"required,min=4,max=12"`
	TerminalID string `json:"terminal_id" validate:"omitempty,max=64"`
}

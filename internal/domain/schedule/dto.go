package schedule

type ConfigRequest struct {
	EffectiveFrom   string `json:"effective_from" validate:"required,civildate"`
	Timezone        string `json:"timezone"`
	OpensAt         string `json:"opens_at" validate:"required,hhmm"`
	ClosesAt        string `json:"closes_at" validate:"required,hhmm"`
	IntervalMinutes int    `json:"interval_minutes" validate:"required,gt=0,lte=60"`
	Crossover       bool   `json:"crossover"`
	Shotgun         bool   `json:"shotgun"`
}

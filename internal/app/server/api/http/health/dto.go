package health

type Input struct{}

type Output struct {
	Body Response
}

// Response - общий статус и результат каждой проверки
type Response struct {
	Status string            `json:"status" example:"OK" doc:"Overall status"`
	Checks map[string]string `json:"checks,omitempty" doc:"Per-dependency status"`
}

package dto

const (
	ModeHero   = "Hero"
	ModePlayer = "Player"
)

// ClientIDHeader scopes cancellation and progress state on the server to one
// client. Requests without it share the "default" owner.
const ClientIDHeader = "X-Client-ID"

// QueryRequest carries the form parameters of one report submission.
// PlayerId is always required; HeroName in Hero mode, OtherPlayerId in Player mode.
type QueryRequest struct {
	Mode          string `json:"mode" form:"mode" validate:"required,oneof=Hero Player"`
	PlayerId      string `json:"player_id" form:"player_id" validate:"required,numeric"`
	HeroName      string `json:"hero_name" form:"hero_name" validate:"required_if=Mode Hero"`
	OtherPlayerId string `json:"other_player_id" form:"other_player_id" validate:"required_if=Mode Player"`
	Window        string `json:"window" form:"window" validate:"omitempty,oneof=month 3months 6months year all"`
}

type ProgressResponse struct {
	Current    int  `json:"current"`
	Total      int  `json:"total"`
	Percentage *int `json:"percentage,omitempty"`
}

type AckResponse struct {
	Status string `json:"status"`
}

type HeroListResponse struct {
	Heroes []string `json:"heroes"`
}

type PlayerResponse struct {
	AccountId   int64  `json:"account_id"`
	PersonaName string `json:"persona_name"`
}

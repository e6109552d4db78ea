package entity

// Team is the side a player fought on.
type Team int

const (
	TeamRadiant Team = iota
	TeamDire
)

func (t Team) String() string {
	if t == TeamRadiant {
		return "Radiant"
	}
	return "Dire"
}

// TeamFromSlot maps an OpenDota player_slot to a side; slots below 128 are Radiant.
func TeamFromSlot(slot int) Team {
	if slot < 128 {
		return TeamRadiant
	}
	return TeamDire
}

// HeroStat is one entry of the /heroStats listing.
type HeroStat struct {
	Id            int    `json:"id"`
	LocalizedName string `json:"localized_name"`
}

// PlayerMatch is the summary row returned by /players/{id}/matches.
type PlayerMatch struct {
	MatchId    int64 `json:"match_id"`
	HeroId     int   `json:"hero_id"`
	StartTime  int64 `json:"start_time"`
	PlayerSlot int   `json:"player_slot"`
	RadiantWin bool  `json:"radiant_win"`
}

func (m PlayerMatch) Team() Team {
	return TeamFromSlot(m.PlayerSlot)
}

func (m PlayerMatch) Won() bool {
	return (m.Team() == TeamRadiant) == m.RadiantWin
}

// MatchPlayer is one participant of a full match. AccountId is nil for
// anonymous profiles.
type MatchPlayer struct {
	AccountId  *int64 `json:"account_id"`
	HeroId     int    `json:"hero_id"`
	PlayerSlot int    `json:"player_slot"`
	TeamNumber *int   `json:"team_number"`
	GoldPerMin int    `json:"gold_per_min"`
}

func (p MatchPlayer) Team() Team {
	if p.TeamNumber != nil {
		if *p.TeamNumber == 0 {
			return TeamRadiant
		}
		return TeamDire
	}
	return TeamFromSlot(p.PlayerSlot)
}

func (p MatchPlayer) Is(accountId int64) bool {
	return p.AccountId != nil && *p.AccountId == accountId
}

// MatchDetail is the /matches/{id} payload.
type MatchDetail struct {
	MatchId    int64         `json:"match_id"`
	StartTime  int64         `json:"start_time"`
	RadiantWin bool          `json:"radiant_win"`
	Players    []MatchPlayer `json:"players"`
}

// PlayerProfile is the subset of /players/{id} used for name lookups.
type PlayerProfile struct {
	Profile struct {
		AccountId   int64  `json:"account_id"`
		PersonaName string `json:"personaname"`
	} `json:"profile"`
}

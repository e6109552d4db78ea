package querysession

import (
	"fmt"
	"strconv"
	"strings"

	"dota-report-be/internal/dto"

	"github.com/go-playground/validator/v10"
)

// Field names accepted by Form.Set.
const (
	FieldPlayer      = "player"
	FieldHero        = "hero"
	FieldOtherPlayer = "other_player"
	FieldWindow      = "window"
)

// Starter is the part of the Controller a Form drives.
type Starter interface {
	StartQuery(params Parameters) error
	AbortCurrent() error
}

var validate = validator.New()

// Form holds the parameter inputs of one front end and decides when a change
// should fetch. Selections (hero, window) fetch as soon as the parameters are
// complete; typed ids only fetch through Submit. A Form is not safe for
// concurrent use.
type Form struct {
	starter Starter
	params  Parameters
}

func NewForm(starter Starter) *Form {
	return &Form{
		starter: starter,
		params:  Parameters{Mode: dto.ModeHero, Window: "year"},
	}
}

func (f *Form) Parameters() Parameters {
	return f.params
}

// Ready reports whether the current parameters make a valid request.
func (f *Form) Ready() bool {
	if err := validate.Struct(f.params.Request()); err != nil {
		return false
	}
	if f.params.Mode == dto.ModePlayer {
		if _, err := strconv.ParseInt(f.params.OtherPlayerID, 10, 64); err != nil {
			return false
		}
	}
	return true
}

// Init performs the initial load when the form starts out complete.
func (f *Form) Init() error {
	if !f.Ready() {
		return nil
	}
	return f.starter.StartQuery(f.params)
}

// SetMode switches between Hero and Player analysis. The running query is
// always aborted first so that nothing from the old mode can be rendered
// into the new one.
func (f *Form) SetMode(mode string) error {
	if mode != dto.ModeHero && mode != dto.ModePlayer {
		return fmt.Errorf("unknown mode %q", mode)
	}
	if mode == f.params.Mode {
		return nil
	}
	if err := f.starter.AbortCurrent(); err != nil {
		return err
	}
	f.params.Mode = mode
	return nil
}

// Set updates one field.
func (f *Form) Set(field, value string) error {
	value = strings.TrimSpace(value)

	switch field {
	case FieldPlayer:
		f.params.PlayerID = value
		return nil
	case FieldOtherPlayer:
		f.params.OtherPlayerID = value
		return nil
	case FieldHero:
		f.params.HeroName = value
	case FieldWindow:
		f.params.Window = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}

	if field == FieldHero && f.params.Mode != dto.ModeHero {
		return nil
	}
	if !f.Ready() {
		return nil
	}
	return f.starter.StartQuery(f.params)
}

// Submit is the Enter-key path. Both identity fields of the current mode must
// be filled in; otherwise nothing happens.
func (f *Form) Submit() error {
	if f.params.PlayerID == "" {
		return nil
	}
	switch f.params.Mode {
	case dto.ModeHero:
		if f.params.HeroName == "" {
			return nil
		}
	case dto.ModePlayer:
		if f.params.OtherPlayerID == "" {
			return nil
		}
	}
	return f.starter.StartQuery(f.params)
}

package mirakc

import "time"

// Program is a single broadcast event as reported by /api/programs.
//
// Genre, video and audio codes follow ARIB STD-B10 and are passed through
// untouched.
type Program struct {
	ID                int64             `json:"id,omitempty"`
	EventID           int               `json:"eventId,omitempty"`
	NetworkID         int               `json:"networkId,omitempty"`
	TransportStreamID int               `json:"transportStreamId,omitempty"`
	ServiceID         int               `json:"serviceId,omitempty"`
	StartAt           int64             `json:"startAt"`
	Duration          int64             `json:"duration"`
	IsFree            bool              `json:"isFree,omitempty"`
	Name              string            `json:"name,omitempty"`
	Description       string            `json:"description,omitempty"`
	Extended          map[string]string `json:"extended,omitempty"`
	Video             *Video            `json:"video,omitempty"`
	Audio             *Audio            `json:"audio,omitempty"`
	Audios            []Audio           `json:"audios,omitempty"`
	Genres            []Genre           `json:"genres,omitempty"`
}

// Start returns the program start time.
func (p *Program) Start() time.Time {
	return time.UnixMilli(p.StartAt)
}

// End returns the reported end time.
func (p *Program) End() time.Time {
	return time.UnixMilli(p.StartAt + p.Duration)
}

// Identified reports whether the program carries a name and a full channel
// identity. Unidentified programs cannot be placed in a guide.
func (p *Program) Identified() bool {
	return p.Name != "" && p.NetworkID != 0 && p.ServiceID != 0
}

// Video describes the video component.
type Video struct {
	Type          string `json:"type"`
	Resolution    string `json:"resolution"`
	StreamContent int    `json:"streamContent"`
	ComponentType int    `json:"componentType"`
}

// Audio describes an audio component.
type Audio struct {
	ComponentType int      `json:"componentType"`
	IsMain        bool     `json:"isMain"`
	SamplingRate  int      `json:"samplingRate"`
	Langs         []string `json:"langs"`
}

// Genre is a content descriptor nibble set.
type Genre struct {
	Lv1 int `json:"lv1"`
	Lv2 int `json:"lv2"`
	Un1 int `json:"un1"`
	Un2 int `json:"un2"`
}

// Service is a broadcast service (channel) as reported by /api/services.
// ServiceID is only unique within its NetworkID; ID is mirakc's own
// globally unique identifier.
type Service struct {
	ID                 int64   `json:"id"`
	ServiceID          int     `json:"serviceId"`
	TransportStreamID  int     `json:"transportStreamId"`
	NetworkID          int     `json:"networkId"`
	Type               int     `json:"type"`
	LogoID             int     `json:"logoId"`
	RemoteControlKeyID int     `json:"remoteControlKeyId"`
	Name               string  `json:"name"`
	Channel            Channel `json:"channel"`
}

// Channel is the physical channel a service is carried on.
type Channel struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// Version is the response of /api/version. mirakc reports latest equal to current.
type Version struct {
	Current string `json:"current"`
	Latest  string `json:"latest"`
}

// UpdateAvailable reports whether the server knows of a newer release.
func (v *Version) UpdateAvailable() bool {
	return v != nil && v.Latest != "" && v.Latest != v.Current
}

// Tuner is a tuner device as reported by /api/tuners.
type Tuner struct {
	Index       int         `json:"index"`
	Name        string      `json:"name"`
	Types       []string    `json:"types"`
	Command     string      `json:"command,omitempty"`
	PID         int         `json:"pid,omitempty"`
	Users       []TunerUser `json:"users,omitempty"`
	IsAvailable bool        `json:"isAvailable"`
	IsRemote    bool        `json:"isRemote"`
	IsFree      bool        `json:"isFree"`
	IsUsing     bool        `json:"isUsing"`
	IsFault     bool        `json:"isFault"`
}

// TunerUser is a client holding a tuner.
type TunerUser struct {
	ID       string `json:"id"`
	Priority int    `json:"priority"`
	Agent    string `json:"agent,omitempty"`
}

// TunerState summarises a tuner's flags.
type TunerState string

// Tuner states, checked in this order.
const (
	TunerFault       TunerState = "fault"
	TunerFree        TunerState = "free"
	TunerPreemptible TunerState = "preemptible" // in use at priority <= 0, e.g. EPG collection
	TunerUsing       TunerState = "using"
	TunerUnknown     TunerState = "unknown"
)

// State returns the tuner's state.
func (t *Tuner) State() TunerState {
	switch {
	case t.IsFault:
		return TunerFault
	case t.IsFree:
		return TunerFree
	case t.IsUsing && len(t.Users) > 0 && t.Users[0].Priority <= 0:
		return TunerPreemptible
	case t.IsUsing:
		return TunerUsing
	default:
		return TunerUnknown
	}
}

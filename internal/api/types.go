package api

import (
	"bytes"
	"encoding/json"
)

// envelope is the wrapper every endpoint responds with
type envelope struct {
	Success bool            `json:"success"`
	Results json.RawMessage `json:"results"`
	Message string          `json:"message,omitempty"`
}

// ErrorResponse is the body of a failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// flexString accepts a JSON string or number. Upstream ids switch between
// the two depending on the endpoint.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// InfoResponse is the payload of /api/info
type InfoResponse struct {
	Data    InfoData     `json:"data"`
	Seasons []SeasonInfo `json:"seasons"`
}

// InfoData is the title block of an info response
type InfoData struct {
	ID            string     `json:"id"`
	DataID        flexString `json:"data_id"`
	Title         string     `json:"title"`
	JapaneseTitle string     `json:"japanese_title"`
	Poster        string     `json:"poster"`
	ShowType      string     `json:"showType"`
	AnimeInfo     AnimeInfo  `json:"animeInfo"`
}

// AnimeInfo carries the descriptive fields of a title
type AnimeInfo struct {
	Overview string `json:"Overview"`
	Status   string `json:"Status"`
}

// SeasonInfo links to a related season
type SeasonInfo struct {
	ID           string `json:"id"`
	DataNumber   int    `json:"data_number"`
	Season       string `json:"season"`
	Title        string `json:"title"`
	SeasonPoster string `json:"season_poster"`
}

// EpisodesResponse is the payload of /api/episodes/{id}
type EpisodesResponse struct {
	TotalEpisodes int          `json:"totalEpisodes"`
	Episodes      []APIEpisode `json:"episodes"`
}

// APIEpisode is one episode in an episodes response
type APIEpisode struct {
	EpisodeNo     int    `json:"episode_no"`
	ID            string `json:"id"`
	Title         string `json:"title"`
	JapaneseTitle string `json:"japanese_title"`
	Filler        bool   `json:"filler"`
}

// ServerInfo is one mirror in a servers response
type ServerInfo struct {
	Type       string     `json:"type"`
	DataID     flexString `json:"data_id"`
	ServerID   flexString `json:"server_id"`
	ServerName string     `json:"serverName"`
}

// StreamResponse is the payload of /api/stream
type StreamResponse struct {
	StreamingLink streamingLinks `json:"streamingLink"`
}

// StreamingLink is a single playable source
type StreamingLink struct {
	ID     flexString `json:"id"`
	Type   string     `json:"type"`
	Link   Link       `json:"link"`
	Tracks []Track    `json:"tracks"`
	Intro  *Range     `json:"intro"`
	Outro  *Range     `json:"outro"`
	Server string     `json:"server"`
}

// Link is the media file of a streaming link
type Link struct {
	File string `json:"file"`
	Type string `json:"type"`
}

// Track is a text track attached to a streaming link
type Track struct {
	File    string `json:"file"`
	Label   string `json:"label"`
	Kind    string `json:"kind"`
	Default bool   `json:"default"`
}

// Range is an intro/outro marker in seconds
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// streamingLinks accepts either a single link object or an array of them
type streamingLinks []StreamingLink

func (s *streamingLinks) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}
	if b[0] == '[' {
		var links []StreamingLink
		if err := json.Unmarshal(b, &links); err != nil {
			return err
		}
		*s = links
		return nil
	}
	var link StreamingLink
	if err := json.Unmarshal(b, &link); err != nil {
		return err
	}
	*s = streamingLinks{link}
	return nil
}

// ScheduleItem is one entry of a schedule response
type ScheduleItem struct {
	ID            string     `json:"id"`
	DataID        flexString `json:"data_id"`
	Title         string     `json:"title"`
	JapaneseTitle string     `json:"japanese_title"`
	ReleaseDate   string     `json:"releaseDate"`
	Time          string     `json:"time"`
	EpisodeNo     int        `json:"episode_no"`
}

// NextEpisodeResponse is the payload of /api/schedule/{id}
type NextEpisodeResponse struct {
	NextEpisodeSchedule string `json:"nextEpisodeSchedule"`
}

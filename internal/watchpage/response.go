package watchpage

import "encoding/json"

// PlayerResponse is the typed subset of the config's player_response payload
// that the session exposes as video metadata.
type PlayerResponse struct {
	VideoDetails VideoDetails `json:"videoDetails"`
}

type VideoDetails struct {
	VideoID          string   `json:"videoId"`
	Title            string   `json:"title"`
	Author           string   `json:"author"`
	LengthSeconds    string   `json:"lengthSeconds"`
	ShortDescription string   `json:"shortDescription"`
	Keywords         []string `json:"keywords"`
}

// ParsePlayerResponse decodes the player_response JSON string found in the
// config args. The payload is optional upstream; callers pass only non-empty
// input.
func ParsePlayerResponse(raw string) (*PlayerResponse, error) {
	var resp PlayerResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, &ExtractionError{Missing: "args.player_response", Reason: "payload is not valid JSON: " + err.Error()}
	}
	return &resp, nil
}

package extract

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/Veraticus/nota-flow/internal/model"
)

var errNoJSONObject = errors.New("no JSON object in response")

// ParseResponse classifies a raw model reply. It never panics: anything that is
// not a JSON object becomes a malformed extraction carrying the raw text.
func ParseResponse(raw string) model.Extraction {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return model.MalformedExtraction(raw, errNoJSONObject)
	}

	var envelope struct {
		IsValidReceipt model.RawValue `json:"is_valid_receipt"`
		Reason         model.RawValue `json:"reason"`
	}
	if err := json.Unmarshal([]byte(clean), &envelope); err != nil {
		return model.MalformedExtraction(raw, err)
	}
	if declined(envelope.IsValidReceipt) {
		reason := strings.TrimSpace(envelope.Reason.Text())
		if reason == "" {
			reason = "not a receipt"
		}
		return model.DeclinedExtraction(reason)
	}

	var res model.ExtractionResult
	if err := json.Unmarshal([]byte(clean), &res); err != nil {
		return model.MalformedExtraction(raw, err)
	}
	return model.ValidExtraction(res)
}

func declined(v model.RawValue) bool {
	switch v.Kind {
	case model.ValueString:
		s := strings.ToLower(strings.TrimSpace(v.String))
		return s == "false" || s == "no" || s == "não" || s == "nao"
	case model.ValueNumber:
		return v.Number == 0
	default:
		return false
	}
}

// cleanModelJSON strips markdown fences and any prose around the outermost object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

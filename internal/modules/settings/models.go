package settings

// SettingDefaults holds all default values for configurable settings.
// An empty value means the environment variable of the same concern is used.
var SettingDefaults = map[string]string{
	// API credentials
	"finnhub_api_key":  "",
	"sendgrid_api_key": "",
	"smtp_password":    "",
	"openai_api_key":   "",
	"gemini_api_key":   "",

	// Workflow engine
	"inngest_event_key":   "",
	"inngest_signing_key": "",
}

// SettingDescriptions documents each known setting
var SettingDescriptions = map[string]string{
	"finnhub_api_key":     "Finnhub API key used to fetch market news",
	"sendgrid_api_key":    "SendGrid API key (MAIL_PROVIDER=sendgrid)",
	"smtp_password":       "SMTP password (MAIL_PROVIDER=smtp)",
	"openai_api_key":      "OpenAI API key for AI news summaries",
	"gemini_api_key":      "Gemini API key for AI news summaries",
	"inngest_event_key":   "Inngest event key used to publish workflow events",
	"inngest_signing_key": "Inngest signing key used to verify workflow requests",
}

// secretKeys are never returned in clear text by the API
var secretKeys = map[string]bool{
	"finnhub_api_key":     true,
	"sendgrid_api_key":    true,
	"smtp_password":       true,
	"openai_api_key":      true,
	"gemini_api_key":      true,
	"inngest_event_key":   true,
	"inngest_signing_key": true,
}

// SettingUpdate is the request body for updating a setting
type SettingUpdate struct {
	Value string `json:"value"`
}

// IsKnown reports whether key is a recognised setting
func IsKnown(key string) bool {
	_, ok := SettingDefaults[key]
	return ok
}

// Mask hides all but the last four characters of secret values
func Mask(key, value string) string {
	if !secretKeys[key] || value == "" {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

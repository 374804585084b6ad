package device

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Client types.
const (
	TypeDesktop = "desktop"
	TypeMobile  = "mobile"
	TypeTablet  = "tablet"
	TypeBot     = "bot"
	TypeUnknown = "unknown"
)

// Client is what a User-Agent header says about the software behind a session.
type Client struct {
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version,omitempty"`
	OS             string `json:"os"`
	Type           string `json:"type"`
	BotName        string `json:"bot_name,omitempty"`
}

// IsBot reports whether the client identified itself as a crawler.
func (c Client) IsBot() bool {
	return c.Type == TypeBot
}

// Label is a short description for session lists, e.g. "Chrome 126 on macOS".
func (c Client) Label() string {
	switch {
	case c.IsBot():
		return "Bot: " + c.BotName
	case c.Browser == "" && c.OS == "":
		return "Unknown device"
	case c.Browser == "":
		return c.OS + " " + c.Type
	case c.OS == "":
		return c.Browser + " " + major(c.BrowserVersion)
	}
	return strings.TrimSpace(c.Browser+" "+major(c.BrowserVersion)) + " on " + c.OS
}

type browserRule struct {
	name    string
	needle  string
	exclude []string
	version *regexp.Regexp
}

// Checked in order: Chromium derivatives carry "chrome" and "safari" too.
var browserRules = []browserRule{
	{"Edge", "edg", nil, regexp.MustCompile(`edg(?:e|a|ios)?/([\d.]+)`)},
	{"Opera", "opr/", nil, regexp.MustCompile(`opr/([\d.]+)`)},
	{"Samsung Internet", "samsungbrowser", nil, regexp.MustCompile(`samsungbrowser/([\d.]+)`)},
	{"Yandex", "yabrowser", nil, regexp.MustCompile(`yabrowser/([\d.]+)`)},
	{"Vivaldi", "vivaldi", nil, regexp.MustCompile(`vivaldi/([\d.]+)`)},
	{"Brave", "brave", nil, regexp.MustCompile(`brave/([\d.]+)`)},
	{"Firefox", "firefox", nil, regexp.MustCompile(`firefox/([\d.]+)`)},
	{"Firefox", "fxios", nil, regexp.MustCompile(`fxios/([\d.]+)`)},
	{"Chrome", "crios", nil, regexp.MustCompile(`crios/([\d.]+)`)},
	{"Chrome", "chrome", nil, regexp.MustCompile(`chrome/([\d.]+)`)},
	{"Safari", "safari", []string{"chrome", "chromium", "android"}, regexp.MustCompile(`version/([\d.]+)`)},
	{"Internet Explorer", "msie", nil, regexp.MustCompile(`msie ([\d.]+)`)},
	{"Internet Explorer", "trident/", nil, regexp.MustCompile(`rv:([\d.]+)`)},
}

var osRules = []struct{ name, needle string }{
	{"Windows Phone", "windows phone"},
	{"Windows", "windows"},
	{"iOS", "iphone"},
	{"iPadOS", "ipad"},
	{"macOS", "mac os x"},
	{"Android", "android"},
	{"ChromeOS", "cros"},
	{"Linux", "linux"},
}

var (
	botNeedles  = []string{"bot", "spider", "crawler", "slurp", "facebookexternalhit", "headlesschrome", "curl/", "wget/", "python-requests", "go-http-client"}
	botNameExpr = regexp.MustCompile(`([a-z0-9_-]*(?:bot|spider|crawler))`)
	titleCase   = cases.Title(language.English)
)

// ParseUserAgent classifies a User-Agent header. Unrecognized parts are
// left empty; the type falls back to TypeUnknown.
func ParseUserAgent(ua string) Client {
	lower := strings.ToLower(strings.TrimSpace(ua))
	if lower == "" {
		return Client{Type: TypeUnknown}
	}

	for _, needle := range botNeedles {
		if strings.Contains(lower, needle) {
			return Client{Type: TypeBot, BotName: botName(lower)}
		}
	}

	c := Client{Type: clientType(lower)}
	for _, rule := range osRules {
		if strings.Contains(lower, rule.needle) {
			c.OS = rule.name
			break
		}
	}
	for _, rule := range browserRules {
		if !strings.Contains(lower, rule.needle) || containsAny(lower, rule.exclude) {
			continue
		}
		c.Browser = rule.name
		if m := rule.version.FindStringSubmatch(lower); len(m) > 1 {
			c.BrowserVersion = m[1]
		}
		break
	}
	return c
}

func clientType(lower string) string {
	switch {
	case strings.Contains(lower, "ipad"), strings.Contains(lower, "tablet"),
		strings.Contains(lower, "android") && !strings.Contains(lower, "mobile"):
		return TypeTablet
	case strings.Contains(lower, "mobile"), strings.Contains(lower, "iphone"):
		return TypeMobile
	case containsAny(lower, []string{"windows", "macintosh", "x11", "linux", "cros"}):
		return TypeDesktop
	}
	return TypeUnknown
}

func botName(lower string) string {
	switch {
	case strings.Contains(lower, "googlebot"):
		return "Googlebot"
	case strings.Contains(lower, "facebookexternalhit"):
		return "Facebook"
	case strings.Contains(lower, "headlesschrome"):
		return "HeadlessChrome"
	}
	if m := botNameExpr.FindString(lower); m != "" {
		return titleCase.String(m)
	}
	if i := strings.IndexAny(lower, "/ "); i > 0 {
		return titleCase.String(lower[:i])
	}
	return "Unknown"
}

func major(version string) string {
	if i := strings.IndexByte(version, '.'); i > 0 {
		return version[:i]
	}
	return version
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

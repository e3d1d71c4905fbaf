package routing

import (
	"sort"
	"strings"
)

// DefaultLanguage is returned when a number is empty or matches no prefix.
const DefaultLanguage = "en-US"

// DefaultLanguages maps country calling code prefixes to the language tag
// their calls are transcribed in. "+1787" sits inside "+1" on purpose: the
// longer prefix wins.
var DefaultLanguages = map[string]string{
	"+1":    "en-US",
	"+1787": "es-US",
	"+1939": "es-US",
	"+44":   "en-GB",
	"+353":  "en-IE",
	"+61":   "en-AU",
	"+64":   "en-NZ",
	"+27":   "en-ZA",
	"+91":   "en-IN",
	"+34":   "es-ES",
	"+52":   "es-MX",
	"+54":   "es-AR",
	"+57":   "es-CO",
	"+33":   "fr-FR",
	"+32":   "fr-BE",
	"+49":   "de-DE",
	"+41":   "de-CH",
	"+39":   "it-IT",
	"+31":   "nl-NL",
	"+351":  "pt-PT",
	"+55":   "pt-BR",
	"+81":   "ja-JP",
	"+82":   "ko-KR",
}

// Route is one row of the locale table.
type Route struct {
	Prefix     string
	ServiceSID string
	Language   string
}

// Router selects a transcription service and language from a phone number.
// It is built once at startup and never mutated, so it is safe for
// concurrent use.
type Router struct {
	routes         []Route
	defaultService string
}

// NewRouter merges per-prefix service SIDs and language tags into one table.
// A prefix present in only one map inherits the default for the other half.
func NewRouter(defaultService string, services, languages map[string]string) *Router {
	merged := map[string]*Route{}
	get := func(prefix string) *Route {
		prefix = strings.TrimSpace(prefix)
		if r, ok := merged[prefix]; ok {
			return r
		}
		r := &Route{Prefix: prefix, ServiceSID: defaultService, Language: DefaultLanguage}
		merged[prefix] = r
		return r
	}
	for p, sid := range services {
		if validPrefix(p) && sid != "" {
			get(p).ServiceSID = sid
		}
	}
	for p, lang := range languages {
		if validPrefix(p) && lang != "" {
			get(p).Language = lang
		}
	}

	routes := make([]Route, 0, len(merged))
	for _, r := range merged {
		routes = append(routes, *r)
	}
	sort.Slice(routes, func(i, j int) bool {
		if len(routes[i].Prefix) != len(routes[j].Prefix) {
			return len(routes[i].Prefix) > len(routes[j].Prefix)
		}
		return routes[i].Prefix < routes[j].Prefix
	})
	return &Router{routes: routes, defaultService: defaultService}
}

func validPrefix(p string) bool {
	p = strings.TrimSpace(p)
	return len(p) >= 2 && p[0] == '+'
}

// Resolve returns the service SID and language for phone. It never fails:
// an empty or unknown number yields the default service and DefaultLanguage.
func (r *Router) Resolve(phone string) (serviceSID, language string) {
	rt, _ := r.Match(phone)
	return rt.ServiceSID, rt.Language
}

// Match is Resolve plus whether a table row matched.
func (r *Router) Match(phone string) (Route, bool) {
	phone = strings.TrimSpace(phone)
	if phone != "" {
		for _, rt := range r.routes {
			if strings.HasPrefix(phone, rt.Prefix) {
				return rt, true
			}
		}
	}
	return Route{ServiceSID: r.defaultService, Language: DefaultLanguage}, false
}

// Routes returns a copy of the table in match order.
func (r *Router) Routes() []Route {
	out := make([]Route, len(r.routes))
	copy(out, r.routes)
	return out
}

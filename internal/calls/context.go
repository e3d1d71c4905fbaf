package calls

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Query parameter names used to round-trip a CallContext through provider
// callback URLs. Changing them breaks callbacks for calls already in flight.
const (
	ParamCallSID      = "callSid"
	ParamLeadID       = "leadID"
	ParamCampaignID   = "campaignID"
	ParamFrom         = "from"
	ParamTo           = "to"
	ParamVoicemailURL = "voicemailUrl"
)

var ErrInvalidContext = errors.New("calls: invalid call context")

// CallContext is the correlation state for one call. The provider's webhooks
// are stateless per leg, so it is built once when the call is initiated and
// carried verbatim in every callback URL.
type CallContext struct {
	CallSID    string `json:"callSid,omitempty"`
	LeadID     string `json:"leadID,omitempty"`
	CampaignID string `json:"campaignID,omitempty"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
}

var validate = validator.New()

type fieldRule struct {
	name  string
	get   func(*CallContext) *string
	rules string
}

var contextRules = []fieldRule{
	{ParamCallSID, func(c *CallContext) *string { return &c.CallSID }, "omitempty,alphanum,max=64"},
	{ParamLeadID, func(c *CallContext) *string { return &c.LeadID }, "omitempty,printascii,max=128"},
	{ParamCampaignID, func(c *CallContext) *string { return &c.CampaignID }, "omitempty,printascii,max=128"},
	{ParamFrom, func(c *CallContext) *string { return &c.From }, "omitempty,e164"},
	{ParamTo, func(c *CallContext) *string { return &c.To }, "omitempty,e164"},
}

// Validate checks the shape of every present field. Absent fields are fine;
// which ones are required depends on the entry point.
func (c CallContext) Validate() error {
	var bad []string
	for _, r := range contextRules {
		if err := validate.Var(*r.get(&c), r.rules); err != nil {
			bad = append(bad, r.name)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidContext, strings.Join(bad, ", "))
	}
	return nil
}

// Sanitized returns a copy with every malformed field cleared.
func (c CallContext) Sanitized() CallContext {
	out := c
	for _, r := range contextRules {
		if p := r.get(&out); validate.Var(*p, r.rules) != nil {
			*p = ""
		}
	}
	return out
}

// Query encodes the non-empty fields as callback query parameters.
func (c CallContext) Query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set(ParamCallSID, c.CallSID)
	set(ParamLeadID, c.LeadID)
	set(ParamCampaignID, c.CampaignID)
	set(ParamFrom, c.From)
	set(ParamTo, c.To)
	return q
}

// CallbackURL appends the context to base/path.
func (c CallContext) CallbackURL(base, path string) string {
	u := strings.TrimRight(base, "/") + path
	if q := c.Query(); len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// CallContextFromQuery decodes a context previously produced by Query.
func CallContextFromQuery(q url.Values) CallContext {
	return CallContext{
		CallSID:    strings.TrimSpace(q.Get(ParamCallSID)),
		LeadID:     strings.TrimSpace(q.Get(ParamLeadID)),
		CampaignID: strings.TrimSpace(q.Get(ParamCampaignID)),
		From:       NormalizePhone(q.Get(ParamFrom)),
		To:         NormalizePhone(q.Get(ParamTo)),
	}
}

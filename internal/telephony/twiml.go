package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

// TwiML is built with encoding/xml; only the verbs this service answers
// with are modelled.

var ErrEmptyVerb = errors.New("telephony: twiml verb missing required value")

// RecordFromAnswerDual records both legs of a dialed call on separate channels.
const RecordFromAnswerDual = "record-from-answer-dual"

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlDial struct {
	XMLName  xml.Name `xml:"Dial"`
	CallerID string   `xml:"callerId,attr,omitempty"`
	Record   string   `xml:"record,attr,omitempty"`
	Action   string   `xml:"action,attr,omitempty"`
	Method   string   `xml:"method,attr,omitempty"`
	Number   string   `xml:"Number"`
}

type twimlPlay struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Dial describes a <Dial><Number/></Dial> verb.
type Dial struct {
	Number   string
	CallerID string
	Record   string
	// Action receives the dialed leg's final status.
	Action string
	Method string
}

// Response accumulates verbs in order; the first invalid verb is reported by Render.
type Response struct {
	verbs []any
	err   error
}

func NewResponse() *Response { return &Response{} }

func (r *Response) Dial(d Dial) *Response {
	if strings.TrimSpace(d.Number) == "" {
		r.fail()
		return r
	}
	r.verbs = append(r.verbs, twimlDial{
		CallerID: d.CallerID,
		Record:   d.Record,
		Action:   d.Action,
		Method:   d.Method,
		Number:   d.Number,
	})
	return r
}

func (r *Response) Play(url string) *Response {
	if strings.TrimSpace(url) == "" {
		r.fail()
		return r
	}
	r.verbs = append(r.verbs, twimlPlay{URL: url})
	return r
}

func (r *Response) Say(text string) *Response {
	if strings.TrimSpace(text) == "" {
		r.fail()
		return r
	}
	r.verbs = append(r.verbs, twimlSay{Text: text})
	return r
}

func (r *Response) Hangup() *Response {
	r.verbs = append(r.verbs, twimlHangup{})
	return r
}

func (r *Response) fail() {
	if r.err == nil {
		r.err = ErrEmptyVerb
	}
}

// Render returns the XML document including the XML header.
func (r *Response) Render() (string, error) {
	if r.err != nil {
		return "", r.err
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(twimlResponse{Verbs: r.verbs}); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

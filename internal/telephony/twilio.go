package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"callsummary/internal/calls"

	twilio "github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	intelligence "github.com/twilio/twilio-go/rest/intelligence/v2"
)

const twilioAPIBase = "https://api.twilio.com"

var ErrInvalidArgument = errors.New("telephony: invalid argument")

// TwilioProvider implements Provider on the Twilio REST API.
// The SDK calls are not context aware; ctx is checked before each request
// so cancelled pipelines stop issuing new calls.
type TwilioProvider struct {
	client *twilio.RestClient
}

func NewTwilioProvider(accountSID, authToken string) *TwilioProvider {
	return &TwilioProvider{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
	}
}

func (p *TwilioProvider) Name() string { return "twilio" }

func (p *TwilioProvider) FetchCall(ctx context.Context, callSID string) (calls.Call, error) {
	if callSID == "" {
		return calls.Call{}, ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return calls.Call{}, err
	}
	c, err := p.client.Api.FetchCall(callSID, &twilioapi.FetchCallParams{})
	if err != nil {
		return calls.Call{}, fmt.Errorf("telephony: fetch call %s: %w", callSID, err)
	}

	out := calls.Call{
		SID:             deref(c.Sid),
		From:            deref(c.From),
		To:              deref(c.To),
		DurationSeconds: parseSeconds(deref(c.Duration)),
	}
	if c.Status != nil {
		out.Status = calls.ParseCallStatus(string(*c.Status))
	}
	return out, nil
}

func (p *TwilioProvider) LatestRecording(ctx context.Context, callSID string) (calls.Recording, bool, error) {
	if callSID == "" {
		return calls.Recording{}, false, ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return calls.Recording{}, false, err
	}
	params := &twilioapi.ListRecordingParams{}
	params.SetCallSid(callSID)
	params.SetLimit(1)

	recs, err := p.client.Api.ListRecording(params)
	if err != nil {
		return calls.Recording{}, false, fmt.Errorf("telephony: list recordings %s: %w", callSID, err)
	}
	if len(recs) == 0 {
		return calls.Recording{}, false, nil
	}

	r := recs[0]
	out := calls.Recording{
		SID:      deref(r.Sid),
		CallSID:  deref(r.CallSid),
		MediaURL: recordingMediaURL(deref(r.Uri)),
	}
	if r.Status != nil {
		out.Status = calls.RecordingStatus(strings.ToLower(string(*r.Status)))
	}
	return out, true, nil
}

func (p *TwilioProvider) CreateCall(ctx context.Context, req OutboundCallRequest) (string, error) {
	if req.To == "" || req.From == "" || req.AnswerURL == "" {
		return "", ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	params := &twilioapi.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(req.From)
	params.SetUrl(req.AnswerURL)
	params.SetMethod("POST")
	if req.MachineDetection != "" {
		params.SetMachineDetection(req.MachineDetection)
	}

	c, err := p.client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("telephony: create call to %s: %w", req.To, err)
	}
	return deref(c.Sid), nil
}

func (p *TwilioProvider) CreateTranscript(ctx context.Context, req TranscriptRequest) (calls.Transcript, error) {
	if req.RecordingSID == "" || req.ServiceSID == "" {
		return calls.Transcript{}, ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return calls.Transcript{}, err
	}
	params := &intelligence.CreateTranscriptParams{}
	params.SetServiceSid(req.ServiceSID)
	params.SetChannel(map[string]interface{}{
		"media_properties": map[string]interface{}{
			"source_sid": req.RecordingSID,
		},
	})
	if req.CustomerKey != "" {
		params.SetCustomerKey(req.CustomerKey)
	}

	tr, err := p.client.IntelligenceV2.CreateTranscript(params)
	if err != nil {
		return calls.Transcript{}, fmt.Errorf("telephony: create transcript for %s: %w", req.RecordingSID, err)
	}
	out := calls.Transcript{
		SID:          deref(tr.Sid),
		RecordingSID: req.RecordingSID,
		ServiceSID:   req.ServiceSID,
	}
	if tr.Status != nil {
		out.Status = calls.TranscriptStatus(string(*tr.Status))
	}
	return out, nil
}

func (p *TwilioProvider) FetchTranscript(ctx context.Context, transcriptSID string) (calls.Transcript, error) {
	if transcriptSID == "" {
		return calls.Transcript{}, ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return calls.Transcript{}, err
	}
	tr, err := p.client.IntelligenceV2.FetchTranscript(transcriptSID)
	if err != nil {
		return calls.Transcript{}, fmt.Errorf("telephony: fetch transcript %s: %w", transcriptSID, err)
	}
	out := calls.Transcript{SID: deref(tr.Sid), ServiceSID: deref(tr.ServiceSid)}
	if tr.Status != nil {
		out.Status = calls.TranscriptStatus(string(*tr.Status))
	}
	return out, nil
}

func (p *TwilioProvider) ListAnalysisResults(ctx context.Context, transcriptSID string) ([]calls.AnalysisResult, error) {
	if transcriptSID == "" {
		return nil, ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results, err := p.client.IntelligenceV2.ListOperatorResult(transcriptSID, &intelligence.ListOperatorResultParams{})
	if err != nil {
		return nil, fmt.Errorf("telephony: list operator results %s: %w", transcriptSID, err)
	}

	out := make([]calls.AnalysisResult, 0, len(results))
	for _, r := range results {
		ar := calls.AnalysisResult{Name: deref(r.Name)}
		if r.OperatorType != nil {
			ar.Type = string(*r.OperatorType)
		}
		if r.TextGenerationResults != nil {
			ar.Payload = textGenerationResult(r.TextGenerationResults)
		}
		out = append(out, ar)
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// parseSeconds reads Twilio's string durations; anything unparsable is 0.
func parseSeconds(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// recordingMediaURL turns a recording resource URI
// ("/2010-04-01/Accounts/AC../Recordings/RE...json") into its media URL.
func recordingMediaURL(uri string) string {
	if uri == "" {
		return ""
	}
	return twilioAPIBase + strings.TrimSuffix(uri, ".json")
}

// textGenerationResult pulls "result" out of the loosely typed
// text_generation_results payload.
func textGenerationResult(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	var body struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Result)
}
